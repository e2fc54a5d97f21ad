package mockapi_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/soil-advisor/internal/analysis"
	"github.com/ashureev/soil-advisor/internal/apiclient"
	"github.com/ashureev/soil-advisor/internal/auth"
	"github.com/ashureev/soil-advisor/internal/chat"
	"github.com/ashureev/soil-advisor/internal/credential"
	"github.com/ashureev/soil-advisor/internal/domain"
	"github.com/ashureev/soil-advisor/internal/mockapi"
	"github.com/ashureev/soil-advisor/internal/speech"
	"github.com/ashureev/soil-advisor/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stack struct {
	mock   *mockapi.Server
	srv    *httptest.Server
	creds  *credential.Store
	client *apiclient.Client
	auth   *auth.Orchestrator
}

func newStack(t *testing.T, opts ...mockapi.Option) *stack {
	t.Helper()
	mock := mockapi.New(opts...)
	srv := httptest.NewServer(mock.Handler())
	t.Cleanup(srv.Close)

	creds := credential.New(store.NewMemory())
	client := apiclient.New(srv.URL, creds)
	orch := auth.New(client, creds, nil)
	client.OnUnauthorized(orch.ForceLogout)
	require.NoError(t, orch.Init(context.Background()))

	return &stack{mock: mock, srv: srv, creds: creds, client: client, auth: orch}
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)

	require.NoError(t, s.auth.Register(ctx, "ada@example.com", "secret", "Ada"))
	state, ok := s.auth.State().(auth.Authenticated)
	require.True(t, ok)
	assert.Equal(t, "Ada", state.User.Name)
	assert.Equal(t, "1", state.User.ID.String())

	require.NoError(t, s.auth.Logout(ctx))
	assert.IsType(t, auth.Anonymous{}, s.auth.State())
	cred, err := s.creds.Get(ctx)
	require.NoError(t, err)
	assert.True(t, cred.IsEmpty())

	err = s.auth.Login(ctx, "ada@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, auth.Errored{Message: "Invalid credentials"}, s.auth.State())

	require.NoError(t, s.auth.Login(ctx, "ada@example.com", "secret"))
	require.NoError(t, s.auth.Refresh(ctx))
	assert.Equal(t, "ada@example.com", s.auth.Session().User.Email)
}

func TestDuplicateRegistration(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	require.NoError(t, s.auth.Register(ctx, "ada@example.com", "secret", "Ada"))
	require.NoError(t, s.auth.Logout(ctx))

	err := s.auth.Register(ctx, "ada@example.com", "other", "Ada Two")
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Status)
	assert.Equal(t, "Email already registered", s.auth.Session().Error)
}

func TestRevokedTokenForcesLogout(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	require.NoError(t, s.auth.Register(ctx, "ada@example.com", "secret", "Ada"))

	s.mock.RevokeAll()

	_, err := analysis.New(s.client, nil).History(ctx)
	require.True(t, apiclient.IsUnauthorized(err))
	assert.Equal(t, "Token has expired", apiclient.Message(err))
	assert.IsType(t, auth.Anonymous{}, s.auth.State())

	token, err := s.creds.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestAnalysisRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	require.NoError(t, s.auth.Register(ctx, "ada@example.com", "secret", "Ada"))
	p := analysis.New(s.client, nil)

	loc := "North field"
	reading := domain.SoilReading{
		Nitrogen: 40, Phosphorus: 30, Potassium: 200, PH: 6.5,
		OrganicMatter: 3, Moisture: 25, Temperature: 22, Location: &loc,
	}
	pred, err := p.Analyze(ctx, reading)
	require.NoError(t, err)
	fixture := mockapi.DefaultFixture()
	assert.Equal(t, domain.FertilityHigh, pred.FertilityLevel)
	assert.InDelta(t, fixture.Score, pred.Score, 0.001)
	assert.Equal(t, fixture.Reasons, pred.Reasons)
	assert.Equal(t, fixture.Recommendations.Crops, pred.Recommendations.Crops)
	assert.NotNil(t, pred.Recommendations.Fertilizers)

	history, err := p.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.InDelta(t, 6.5, history[0].Reading.PH, 0.001)
	require.NotNil(t, history[0].Reading.Location)
	assert.Equal(t, loc, *history[0].Reading.Location)
	assert.False(t, history[0].CreatedAt.IsZero())

	rec, err := p.Get(ctx, history[0].ID)
	require.NoError(t, err)
	assert.Equal(t, history[0].ID, rec.ID)

	stats, err := p.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalAnalyses)
	assert.Equal(t, 1, stats.FertilityDistribution.High)
	assert.Contains(t, stats.Raw, "average_score")
}

func TestChatAgainstService(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	require.NoError(t, s.auth.Register(ctx, "ada@example.com", "secret", "Ada"))
	p := chat.New(s.client)

	require.NoError(t, p.Send(ctx, "How much nitrogen does maize need?"))
	msgs := p.Messages()
	require.Len(t, msgs, 3)
	assert.True(t, msgs[1].IsUser)
	assert.Contains(t, msgs[2].Text, "Nitrogen")
	assert.Empty(t, p.LastError())

	page, err := p.History(ctx, 1, 20)
	require.NoError(t, err)
	require.Len(t, page.History, 1)
	assert.Equal(t, "How much nitrogen does maize need?", page.History[0].Message)
	assert.Equal(t, msgs[2].Text, page.History[0].Response)
}

func TestChatFailureAfterLogout(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	require.NoError(t, s.auth.Register(ctx, "ada@example.com", "secret", "Ada"))
	p := chat.New(s.client)
	require.NoError(t, s.auth.Logout(ctx))

	err := p.Send(ctx, "hello")
	require.Error(t, err)
	msgs := p.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, chat.FallbackReply, msgs[2].Text)
	assert.Equal(t, "Missing Authorization Header", p.LastError())
}

func TestSpeechFeedFillsPending(t *testing.T) {
	s := newStack(t, mockapi.WithSpeechLines([]string{"is my soil acidic"}))
	p := chat.New(s.client)

	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws/speech"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.StartListening(ctx, speech.NewWebSocketSource(url, nil)))

	require.Eventually(t, func() bool { return !p.Listening() }, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "is my soil acidic", p.Pending())
}
