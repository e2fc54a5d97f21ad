package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

type failingToken struct{}

func (failingToken) Token(context.Context) (string, error) { return "", errors.New("disk gone") }

func TestDoAttachesHeaders(t *testing.T) {
	t.Parallel()

	var gotAuth, gotType string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"response":"ok"}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", staticToken("abc"))
	var out struct {
		Response string `json:"response"`
	}
	require.NoError(t, c.Post(context.Background(), "/api/chat/message", map[string]string{"message": "hi"}, true, &out))

	assert.Equal(t, "Bearer abc", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "hi", gotBody["message"])
	assert.Equal(t, "ok", out.Response)
}

func TestDoOmitsAuthorization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		tokens       TokenSource
		authRequired bool
	}{
		{"anonymous endpoint", staticToken("abc"), false},
		{"no token stored", staticToken(""), true},
		{"nil token source", nil, true},
		{"token read fails", failingToken{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var sawAuth bool
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, sawAuth = r.Header["Authorization"]
				w.WriteHeader(http.StatusNoContent)
			}))
			defer srv.Close()

			require.NoError(t, New(srv.URL, tt.tokens).Get(context.Background(), "/x", tt.authRequired, nil))
			assert.False(t, sawAuth, "request should still proceed without Authorization")
		})
	}
}

func TestDoNormalizesErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"error field verbatim", http.StatusBadRequest, `{"error":"ph out of range"}`, "ph out of range"},
		{"malformed body", http.StatusInternalServerError, `<html>oops</html>`, NetworkErrorMessage},
		{"empty body", http.StatusBadGateway, ``, NetworkErrorMessage},
		{"missing error field", http.StatusNotFound, `{"detail":"nope"}`, NetworkErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := New(srv.URL, nil).Get(context.Background(), "/x", false, nil)
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.True(t, apiErr.HasStatus())
		})
	}
}

func TestDoTransportFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := New(url, nil).Get(context.Background(), "/x", false, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, NetworkErrorMessage, apiErr.Message)
	assert.False(t, apiErr.HasStatus())
	assert.Equal(t, NetworkErrorMessage, Message(err))
}

func TestOnUnauthorizedOnlyForAuthenticatedCalls(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid credentials"}`))
	}))
	defer srv.Close()

	calls := 0
	c := New(srv.URL, staticToken("stale"))
	c.OnUnauthorized(func(context.Context) { calls++ })

	err := c.Post(context.Background(), "/api/auth/login", map[string]string{}, false, nil)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, 0, calls)

	err = c.Get(context.Background(), "/api/soil/history", true, nil)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, 1, calls)
}

func TestDoLocalFailuresAreAPIErrors(t *testing.T) {
	t.Parallel()

	t.Run("unencodable body", func(t *testing.T) {
		err := New("http://127.0.0.1:1", nil).Post(context.Background(), "/x", make(chan int), false, nil)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Contains(t, apiErr.Message, "encode request body")
		assert.False(t, apiErr.HasStatus())
		var typeErr *json.UnsupportedTypeError
		assert.ErrorAs(t, err, &typeErr)
	})

	t.Run("bad base url", func(t *testing.T) {
		err := New("://no-scheme", nil).Get(context.Background(), "/x", false, nil)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Contains(t, apiErr.Message, "build request")
		assert.False(t, apiErr.HasStatus())
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := New("http://127.0.0.1:1", nil).Get(ctx, "/x", false, nil)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, NetworkErrorMessage, apiErr.Message)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}
