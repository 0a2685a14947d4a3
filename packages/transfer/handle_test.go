package transfer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle_SetterValidation(t *testing.T) {
	h := New()

	var cfgErr *ConfigError

	err := h.SetVerb("  ")
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "verb", cfgErr.Option)

	err = h.SetURL("/relative/path")
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "url", cfgErr.Option)

	err = h.SetMaxRedirects(-1)
	require.ErrorAs(t, err, &cfgErr)

	err = h.SetLowSpeed(-1, time.Second)
	require.ErrorAs(t, err, &cfgErr)

	err = h.SetTimeout(-time.Second)
	require.ErrorAs(t, err, &cfgErr)

	require.NoError(t, h.SetVerb("GET"))
	require.NoError(t, h.SetURL("https://example.test/get"))
	require.NoError(t, h.SetMaxRedirects(0))
	require.NoError(t, h.SetLowSpeed(0, time.Second)) // zero disables
	require.NoError(t, h.SetTimeout(0))
}

func TestHandle_StatusBeforeCompletion(t *testing.T) {
	h := New()
	_, ok := h.StatusCode()
	assert.False(t, ok)
}

func TestHandle_PerformDeliversHeadersAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello"))
	}))
	defer server.Close()

	h := New()
	require.NoError(t, h.SetVerb("GET"))
	require.NoError(t, h.SetURL(server.URL))

	var lines []string
	var body []byte
	h.OnHeaderLine(func(line []byte) bool {
		lines = append(lines, string(line))
		return true
	})
	h.OnBodyChunk(func(chunk []byte) int {
		body = append(body, chunk...)
		return len(chunk)
	})

	require.NoError(t, h.Perform(context.Background()))

	code, ok := h.StatusCode()
	require.True(t, ok)
	assert.Equal(t, 200, code)
	assert.Equal(t, "hello", string(body))

	// The first delivered line is the status line, then headers follow.
	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[0], "HTTP/1.1 200"))
	assert.Contains(t, lines, "Content-Type: text/plain")
}

func TestHandle_BodyRejectionAbortsTransfer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("payload"))
	}))
	defer server.Close()

	h := New()
	require.NoError(t, h.SetVerb("GET"))
	require.NoError(t, h.SetURL(server.URL))
	h.OnBodyChunk(func(chunk []byte) int {
		return len(chunk) - 1 // short write
	})

	err := h.Perform(context.Background())
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.ErrorIs(t, err, ErrBodyRejected)
}

func TestHandle_HeaderRejectionAbortsTransfer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	h := New()
	require.NoError(t, h.SetVerb("GET"))
	require.NoError(t, h.SetURL(server.URL))
	h.OnHeaderLine(func(line []byte) bool { return false })

	err := h.Perform(context.Background())
	assert.ErrorIs(t, err, ErrHeaderRejected)

	_, ok := h.StatusCode()
	assert.False(t, ok, "a failed transfer must not report a status code")
}

func TestHandle_LowSpeedAbort(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte("slow"))
		w.(http.Flusher).Flush()
		time.Sleep(2 * time.Second) // stall well past the window
	}))
	defer server.Close()

	h := New()
	require.NoError(t, h.SetVerb("GET"))
	require.NoError(t, h.SetURL(server.URL))
	require.NoError(t, h.SetLowSpeed(1024, 150*time.Millisecond))

	start := time.Now()
	err := h.Perform(context.Background())
	assert.ErrorIs(t, err, ErrLowSpeed)
	assert.Less(t, time.Since(start), time.Second, "abort should not wait for the server")
}

func TestHandle_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	h := New()
	require.NoError(t, h.SetVerb("GET"))
	require.NoError(t, h.SetURL(server.URL))
	require.NoError(t, h.SetTimeout(50*time.Millisecond))

	err := h.Perform(context.Background())
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHandle_ConnectFailure(t *testing.T) {
	h := New()
	require.NoError(t, h.SetVerb("GET"))
	require.NoError(t, h.SetURL("http://127.0.0.1:1/unreachable"))

	err := h.Perform(context.Background())
	var failure *Failure
	require.ErrorAs(t, err, &failure)
}

func TestHandle_DetachSilencesCallbacks(t *testing.T) {
	h := New()

	var headerCalls, bodyCalls atomic.Int64
	h.OnHeaderLine(func(line []byte) bool {
		headerCalls.Add(1)
		return true
	})
	h.OnBodyChunk(func(chunk []byte) int {
		bodyCalls.Add(1)
		return len(chunk)
	})
	h.Detach()

	assert.True(t, h.deliverHeader([]byte("X: y")), "detach gate must auto-accept")
	assert.Equal(t, 4, h.deliverBody([]byte("data")), "detach gate must auto-accept")
	assert.Zero(t, headerCalls.Load())
	assert.Zero(t, bodyCalls.Load())
}
