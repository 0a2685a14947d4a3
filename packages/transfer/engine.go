package transfer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"
	"time"
)

// Perform runs the configured exchange to completion, feeding the
// registered callbacks as data arrives. It returns nil once the full
// response has been received, after which StatusCode reports the result.
// The handle must not be performed concurrently with itself.
func (h *Handle) Perform(ctx context.Context) error {
	if h.url == "" {
		return &ConfigError{Option: "url", Reason: "not set"}
	}
	if h.verb == "" {
		return &ConfigError{Option: "verb", Reason: "not set"}
	}

	h.status.Store(0)
	h.cbMu.Lock()
	h.detached = false
	h.cbMu.Unlock()

	if h.timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, h.timeout)
		defer cancelTimeout()
	}
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var bodyReader io.Reader
	if h.body != nil {
		bodyReader = bytes.NewReader(h.body)
	}
	req, err := http.NewRequestWithContext(ctx, h.verb, h.url, bodyReader)
	if err != nil {
		return &ConfigError{Option: "request", Reason: err.Error()}
	}
	for _, line := range h.headerLines {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		req.Header.Set(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	client := &http.Client{
		Transport: h.transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if !h.followRedirects || len(via) > h.maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	var received atomic.Int64
	if h.lowSpeedLimit > 0 && h.lowSpeedWindow > 0 {
		stop := h.watchLowSpeed(ctx, cancel, &received)
		defer stop()
	}

	resp, err := client.Do(req)
	if err != nil {
		return h.failure(ctx, err)
	}
	defer resp.Body.Close()

	if err := h.replayHeaders(resp); err != nil {
		return err
	}

	if !h.noBody {
		buf := make([]byte, chunkSize)
		for {
			n, rerr := resp.Body.Read(buf)
			if n > 0 {
				received.Add(int64(n))
				if accepted := h.deliverBody(buf[:n]); accepted != n {
					return &Failure{URL: h.url, Err: ErrBodyRejected}
				}
			}
			if rerr == io.EOF {
				break
			}
			if rerr != nil {
				return h.failure(ctx, rerr)
			}
		}
	}

	h.status.Store(int64(resp.StatusCode))
	return nil
}

// replayHeaders feeds the header callback one line at a time in wire
// shape: the status line first, then one "Name: Value" line per header
// value. net/http does not preserve arrival order, so names are replayed
// sorted; values within a name keep their received order.
func (h *Handle) replayHeaders(resp *http.Response) error {
	statusLine := resp.Proto + " " + resp.Status
	if !h.deliverHeader([]byte(statusLine)) {
		return &Failure{URL: h.url, Err: ErrHeaderRejected}
	}

	names := make([]string, 0, len(resp.Header))
	for name := range resp.Header {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, value := range resp.Header[name] {
			if !h.deliverHeader([]byte(name + ": " + value)) {
				return &Failure{URL: h.url, Err: ErrHeaderRejected}
			}
		}
	}
	return nil
}

// watchLowSpeed aborts the transfer when a full window passes with fewer
// than the configured number of bytes received.
func (h *Handle) watchLowSpeed(ctx context.Context, cancel context.CancelCauseFunc, received *atomic.Int64) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(h.lowSpeedWindow)
		defer ticker.Stop()
		var last int64
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				cur := received.Load()
				if cur-last < h.lowSpeedLimit {
					cancel(ErrLowSpeed)
					return
				}
				last = cur
			}
		}
	}()
	return func() { close(done) }
}

// failure wraps a transport error, surfacing the watchdog cause when the
// abort originated there.
func (h *Handle) failure(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); cause != nil && errors.Is(cause, ErrLowSpeed) {
		return &Failure{URL: h.url, Err: ErrLowSpeed}
	}
	return &Failure{URL: h.url, Err: err}
}
