package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memCredentials struct {
	mu    sync.Mutex
	token string
}

func (m *memCredentials) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *memCredentials) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

func newTestClient(t *testing.T, url string, creds CredentialStore, onError func(*Error)) *HTTPClient {
	t.Helper()
	c := NewHTTPClient(HTTPClientConfig{
		BaseURL:     url,
		Timeout:     2 * time.Second,
		Credentials: creds,
		OnError:     onError,
	}, zap.NewNop())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGetDecodesBodyAndSendsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tokens", r.URL.Path)
		assert.Equal(t, "base", r.URL.Query().Get("chain"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total":3}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/api/v1", nil, nil)
	var out struct {
		Total int `json:"total"`
	}
	require.NoError(t, c.Get(context.Background(), "/tokens", map[string]string{"chain": "base"}, &out))
	assert.Equal(t, 3, out.Total)
}

func TestUnauthorizedClearsCredential(t *testing.T) {
	var (
		mu      sync.Mutex
		headers []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		headers = append(headers, r.Header.Get("Authorization"))
		n := len(headers)
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	creds := &memCredentials{token: "secret"}
	c := newTestClient(t, srv.URL, creds, nil)

	err := c.Get(context.Background(), "/me", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.Empty(t, creds.Token())

	require.NoError(t, c.Get(context.Background(), "/me", nil, nil))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, headers, 2)
	assert.Equal(t, "Bearer secret", headers[0])
	assert.Empty(t, headers[1])
}

func TestStatusClassification(t *testing.T) {
	cases := []struct {
		status int
		kind   Kind
		retry  bool
	}{
		{http.StatusBadRequest, KindBadRequest, false},
		{http.StatusForbidden, KindForbidden, false},
		{http.StatusNotFound, KindNotFound, false},
		{http.StatusTooManyRequests, KindRateLimited, true},
		{http.StatusInternalServerError, KindServer, true},
		{http.StatusBadGateway, KindServer, true},
		{http.StatusServiceUnavailable, KindUnavailable, true},
		{http.StatusConflict, KindClient, false},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"code":"X_CODE","message":"server said no"}`))
			}))
			defer srv.Close()

			var reported []*Error
			c := newTestClient(t, srv.URL, nil, func(e *Error) { reported = append(reported, e) })

			err := c.Get(context.Background(), "/x", nil, nil)
			e, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, tc.kind, e.Kind)
			assert.Equal(t, tc.status, e.Status)
			assert.Equal(t, "X_CODE", e.Code)
			assert.Equal(t, tc.retry, e.Retryable())
			assert.NotEmpty(t, e.Message)
			require.Len(t, reported, 1)
			assert.Same(t, e, reported[0])
		})
	}
}

func TestNetworkErrorIsNormalized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url, nil, nil)
	err := c.Get(context.Background(), "/x", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetwork))

	e, _ := AsError(err)
	assert.Equal(t, "NETWORK_ERROR", e.Code)
	assert.Zero(t, e.Status)
}

func TestDecodeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil, nil)
	var out map[string]any
	err := c.Get(context.Background(), "/x", nil, &out)
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestPostJSONSendsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil, nil)
	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.PostJSON(context.Background(), "/wallets/compare", map[string]any{"addresses": []string{"a"}}, &out))
	assert.True(t, out.OK)
}
