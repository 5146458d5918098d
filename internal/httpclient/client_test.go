package httpclient

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"))
}

func TestNew(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		client := New(nil)
		assert.Equal(t, DefaultTimeout, client.Timeout())
		assert.Equal(t, defaultUserAgent, client.userAgent)
	})

	t.Run("custom config", func(t *testing.T) {
		cfg := Config{DefaultTimeout: 5 * time.Second, UserAgent: "mantaview-test/1.0"}
		client := New(&cfg)

		assert.Equal(t, 5*time.Second, client.Timeout())
		assert.Equal(t, "mantaview-test/1.0", client.userAgent)
	})

	t.Run("zero values use defaults without mutating caller", func(t *testing.T) {
		cfg := Config{}
		client := New(&cfg)

		assert.Equal(t, DefaultTimeout, client.Timeout())
		assert.Empty(t, cfg.UserAgent)
	})
}

func TestDo_BasicRequestAndUserAgent(t *testing.T) {
	var receivedUA string
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		receivedUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("success"))
	})

	client := newTestClient(t)

	resp, err := client.Get(t.Context(), server.URL)
	require.NoError(t, err)
	defer closeResponseBody(t, resp)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "success", string(body))
	assert.Equal(t, defaultUserAgent, receivedUA)
}

func TestDo_DefaultTimeoutApplied(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	})

	client := newTestClientWithConfig(t, &Config{DefaultTimeout: 50 * time.Millisecond})

	start := time.Now()
	resp, err := client.Get(context.Background(), server.URL)
	if resp != nil {
		closeResponseBody(t, resp)
	}
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDo_ContextDeadlineWins(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})

	client := newTestClientWithConfig(t, &Config{DefaultTimeout: 10 * time.Millisecond})

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, server.URL)
	require.NoError(t, err)
	defer closeResponseBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDo_NilRequest(t *testing.T) {
	client := newTestClient(t)
	_, err := client.Do(t.Context(), nil)
	assert.Error(t, err)
}

func TestHooks(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	client := newTestClient(t)

	var before, after atomic.Int32
	var status atomic.Int32
	client.SetBeforeRequestHook(func(*http.Request) { before.Add(1) })
	client.SetAfterResponseHook(func(_ *http.Request, resp *http.Response, err error) {
		after.Add(1)
		if err == nil {
			status.Store(int32(resp.StatusCode))
		}
	})

	resp, err := client.Get(t.Context(), server.URL)
	require.NoError(t, err)
	closeResponseBody(t, resp)

	assert.Equal(t, int32(1), before.Load())
	assert.Equal(t, int32(1), after.Load())
	assert.Equal(t, int32(http.StatusTeapot), status.Load())
}

type stubTransport struct{ calls atomic.Int32 }

func (s *stubTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	s.calls.Add(1)
	return &http.Response{StatusCode: http.StatusNoContent, Body: http.NoBody, Request: r}, nil
}

func TestCustomTransport(t *testing.T) {
	transport := &stubTransport{}
	client := New(&Config{Transport: transport})

	resp, err := client.Get(t.Context(), "http://example.invalid/")
	require.NoError(t, err)
	closeResponseBody(t, resp)

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, int32(1), transport.calls.Load())
}
