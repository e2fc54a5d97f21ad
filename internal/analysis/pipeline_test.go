package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ashureev/soil-advisor/internal/apiclient"
	"github.com/ashureev/soil-advisor/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

func newPipeline(t *testing.T, handler http.HandlerFunc) *Pipeline {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(apiclient.New(srv.URL, staticToken("tok")), nil)
}

func sampleReading() domain.SoilReading {
	loc := "Field A"
	return domain.SoilReading{
		Nitrogen: 25, Phosphorus: 20, Potassium: 150, PH: 6.5,
		OrganicMatter: 3, Moisture: 45, Temperature: 22, Location: &loc,
	}
}

func TestAnalyzeMapsFields(t *testing.T) {
	t.Parallel()

	var got map[string]any
	var gotAuth string
	p := newPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/soil/analyze", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"fertility_level":"High","score":82,"reasons":["Good N"],` +
			`"recommendations":{"fertilizers":[],"crops":["Maize"],"improvements":[]}}`))
	})

	pred, err := p.Analyze(context.Background(), sampleReading())
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, map[string]any{
		"nitrogen": 25.0, "phosphorus": 20.0, "potassium": 150.0, "ph": 6.5,
		"organic_matter": 3.0, "moisture": 45.0, "temperature": 22.0, "location": "Field A",
	}, got)

	assert.Equal(t, domain.FertilityHigh, pred.FertilityLevel)
	assert.Equal(t, 82.0, pred.Score)
	assert.Equal(t, []string{"Good N"}, pred.Reasons)
	assert.NotNil(t, pred.Recommendations.Fertilizers)
	assert.Empty(t, pred.Recommendations.Fertilizers)
	assert.Equal(t, []string{"Maize"}, pred.Recommendations.Crops)
	assert.Empty(t, pred.Recommendations.Improvements)
}

func TestAnalyzeDefaultsLocationAndKeepsOrder(t *testing.T) {
	t.Parallel()

	var got map[string]any
	p := newPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"fertility_level":"Low","score":12,"reasons":["Low N","Acidic","Dry"],` +
			`"recommendations":{"fertilizers":["Urea","DAP"]}}`))
	})

	reading := sampleReading()
	reading.Location = nil
	pred, err := p.Analyze(context.Background(), reading)
	require.NoError(t, err)

	assert.Equal(t, "", got["location"])
	assert.Equal(t, []string{"Low N", "Acidic", "Dry"}, pred.Reasons)
	assert.Equal(t, []string{"Urea", "DAP"}, pred.Recommendations.Fertilizers)
	assert.NotNil(t, pred.Recommendations.Crops)
	assert.NotNil(t, pred.Recommendations.Improvements)
}

func TestAnalyzeSurfacesServerError(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"ph out of range"}`))
	})

	pred, err := p.Analyze(context.Background(), sampleReading())
	assert.Nil(t, pred)
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "ph out of range", apiErr.Message)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestAnalyzeDoesNotRetryOrValidate(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	p := newPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	reading := sampleReading()
	reading.PH = 20 // out of range, still submitted
	_, err := p.Analyze(context.Background(), reading)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHistory(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/soil/history", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{"history":[
			{"id":2,"nitrogen":25,"phosphorus":20,"potassium":150,"ph":6.5,"organic_matter":3,
			 "moisture":45,"temperature":22,"location":"Field A","fertility_level":"High","score":82,
			 "reasons":["Good N"],"recommendations":{"crops":["Maize"]},"created_at":"2024-05-01T10:30:00.123456"},
			{"id":1,"nitrogen":5,"phosphorus":5,"potassium":50,"ph":5,"organic_matter":1,
			 "moisture":10,"temperature":15,"location":null,"fertility_level":"Low","score":20,
			 "reasons":[],"recommendations":{},"created_at":"garbage"}
		],"total":2,"pages":1,"current_page":1}`))
	})

	history, err := p.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, int64(2), history[0].ID)
	assert.Equal(t, 3.0, history[0].Reading.OrganicMatter)
	require.NotNil(t, history[0].Reading.Location)
	assert.Equal(t, "Field A", *history[0].Reading.Location)
	assert.Equal(t, domain.FertilityHigh, history[0].Prediction.FertilityLevel)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 30, 0, 123456000, time.UTC), history[0].CreatedAt)

	assert.Nil(t, history[1].Reading.Location)
	assert.True(t, history[1].CreatedAt.IsZero())
	assert.Empty(t, history[1].Prediction.Recommendations.Crops)
}

func TestHistoryEmpty(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"history":[]}`))
	})

	history, err := p.History(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestGetAnalysis(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/soil/analysis/7" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Analysis not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"analysis":{"id":7,"fertility_level":"Medium","score":55}}`))
	})

	rec, err := p.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), rec.ID)
	assert.Equal(t, domain.FertilityMedium, rec.Prediction.FertilityLevel)

	_, err = p.Get(context.Background(), 8)
	assert.Equal(t, "Analysis not found", apiclient.Message(err))
}

func TestStatistics(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/soil/statistics", r.URL.Path)
		_, _ = w.Write([]byte(`{"total_analyses":3,"fertility_distribution":{"high":1,"medium":1,"low":1},` +
			`"average_score":51.3,"extra":"kept"}`))
	})

	stats, err := p.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalAnalyses)
	assert.Equal(t, domain.FertilityDistribution{High: 1, Medium: 1, Low: 1}, stats.FertilityDistribution)
	assert.InDelta(t, 51.3, stats.AverageScore, 1e-9)
	assert.Equal(t, "kept", stats.Raw["extra"])
}
