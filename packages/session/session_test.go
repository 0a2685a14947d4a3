package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/httpfetch/packages/metrics"
	"github.com/abdul-hamid-achik/httpfetch/packages/transfer"
)

func newHandle(t *testing.T, url string) *transfer.Handle {
	t.Helper()
	h := transfer.New()
	require.NoError(t, h.SetVerb("GET"))
	require.NoError(t, h.SetURL(url))
	return h
}

func TestSession_SubmitResolvesOnce(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	sess := New()
	h := newHandle(t, server.URL)

	future := sess.Submit(context.Background(), h)
	got, err := future.Wait(context.Background())
	require.NoError(t, err)
	assert.Same(t, h, got)

	code, ok := got.StatusCode()
	require.True(t, ok)
	assert.Equal(t, 200, code)

	// Waiting again returns the same resolution.
	got2, err := future.Wait(context.Background())
	require.NoError(t, err)
	assert.Same(t, h, got2)
}

func TestSession_FailureResolvesWithError(t *testing.T) {
	sess := New()
	h := newHandle(t, "http://127.0.0.1:1/nope")

	future := sess.Submit(context.Background(), h)
	_, err := future.Wait(context.Background())

	var failure *transfer.Failure
	require.ErrorAs(t, err, &failure)
}

func TestFuture_CancelStopsCallbacks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.WriteHeader(http.StatusOK)
		flusher.Flush()
		for i := 0; i < 50; i++ {
			if _, err := w.Write([]byte("chunk")); err != nil {
				return
			}
			flusher.Flush()
			time.Sleep(20 * time.Millisecond)
		}
	}))
	defer server.Close()

	h := newHandle(t, server.URL)
	var chunks atomic.Int64
	h.OnBodyChunk(func(chunk []byte) int {
		chunks.Add(1)
		return len(chunk)
	})

	sess := New()
	future := sess.Submit(context.Background(), h)

	// Let at least one chunk arrive, then drop the future.
	require.Eventually(t, func() bool { return chunks.Load() > 0 }, 2*time.Second, 5*time.Millisecond)
	future.Cancel()
	seen := chunks.Load()

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, seen, chunks.Load(), "no callback may fire after the future is dropped")

	_, err := future.Wait(context.Background())
	assert.Error(t, err)
}

func TestSession_RecorderObservesTransfers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	recorder := metrics.NewRecorder()
	sess := New(WithRecorder(recorder))

	h := newHandle(t, server.URL)
	_, err := sess.Submit(context.Background(), h).Wait(context.Background())
	require.NoError(t, err)

	bad := newHandle(t, "http://127.0.0.1:1/nope")
	_, err = sess.Submit(context.Background(), bad).Wait(context.Background())
	require.Error(t, err)

	snap := recorder.Snapshot()
	assert.Equal(t, int64(2), snap.Total)
	assert.Equal(t, int64(1), snap.Succeeded)
	assert.Equal(t, int64(1), snap.Failed)
	assert.Equal(t, 2, snap.Handles)
	assert.Equal(t, int64(1), recorder.TransfersFor(h.ID()))
}

func TestSession_RateLimitSpacesTransfers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sess := New(WithRateLimit(10, 1)) // one transfer per 100ms after the burst

	start := time.Now()
	for i := 0; i < 3; i++ {
		h := newHandle(t, server.URL)
		_, err := sess.Submit(context.Background(), h).Wait(context.Background())
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}
