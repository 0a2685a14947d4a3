package request

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/abdul-hamid-achik/httpfetch/packages/response"
	"github.com/abdul-hamid-achik/httpfetch/packages/session"
	"github.com/abdul-hamid-achik/httpfetch/packages/transfer"
)

// Future resolves to an assembled Response once the submitted transfer
// completes. Dropping interest in a pending future must go through
// Cancel, which guarantees no capture callback fires afterwards.
type Future struct {
	inner   *session.Future
	done    <-chan struct{}
	headerQ *transfer.Queue[string]
	bodyQ   *transfer.Queue[[]byte]

	once sync.Once
	resp *response.Response
	err  error
}

// Send consumes the descriptor and submits it to the session.
//
// Query parameters are merged into the URL sorted by name, values per
// name in insertion order; headers are materialized sorted by name with
// names and values trimmed. Both orders are part of the wire behavior and
// identical descriptor call sequences produce identical wire requests.
//
// Configuration failures resolve the returned future immediately with a
// *transfer.ConfigError; no I/O happens. Transport failures resolve it
// with a *transfer.Failure.
func (r *Request) Send(ctx context.Context, s *session.Session) *Future {
	if r.sent {
		return failedFuture(&transfer.ConfigError{Option: "request", Reason: "descriptor already submitted"})
	}
	r.sent = true

	u := *r.url
	q := u.Query()
	names := make([]string, 0, len(r.params))
	for name := range r.params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, value := range r.params[name] {
			q.Add(name, value)
		}
	}
	u.RawQuery = q.Encode()

	lines := make([]string, 0, len(r.headers))
	for name, value := range r.headers {
		lines = append(lines, strings.TrimSpace(name)+": "+strings.TrimSpace(value))
	}
	sort.Strings(lines)

	h := r.handle
	if h == nil {
		h = transfer.New()
	}

	if err := configure(h, r, u.String(), lines); err != nil {
		return failedFuture(err)
	}

	headerQ := transfer.NewQueue[string]()
	bodyQ := transfer.NewQueue[[]byte]()

	statusLine := true
	h.OnHeaderLine(func(line []byte) bool {
		if !utf8.Valid(line) {
			return false
		}
		if statusLine {
			// The first line is the HTTP status line, not a header.
			statusLine = false
			return true
		}
		if trimmed := strings.TrimSpace(string(line)); trimmed != "" {
			headerQ.Push(trimmed)
		}
		return true
	})
	h.OnBodyChunk(func(chunk []byte) int {
		// The engine owns the chunk buffer; copy before queueing.
		buf := make([]byte, len(chunk))
		copy(buf, chunk)
		bodyQ.Push(buf)
		return len(chunk)
	})

	inner := s.Submit(ctx, h)
	return &Future{
		inner:   inner,
		done:    inner.Done(),
		headerQ: headerQ,
		bodyQ:   bodyQ,
	}
}

// configure pushes every descriptor option onto the handle, stopping at
// the first invalid value.
func configure(h *transfer.Handle, r *Request, wireURL string, headerLines []string) error {
	if err := h.SetVerb(r.method.String()); err != nil {
		return err
	}
	if err := h.SetURL(wireURL); err != nil {
		return err
	}
	if err := h.SetMaxRedirects(r.maxRedirects); err != nil {
		return err
	}
	if err := h.SetLowSpeed(r.lowSpeedLimit, r.lowSpeedWindow); err != nil {
		return err
	}
	if err := h.SetTimeout(r.timeout); err != nil {
		return err
	}
	h.SetFollowRedirects(r.followRedirects)
	h.SetHeaderLines(headerLines)
	h.SetNoBody(r.method == HEAD)
	h.SetBody(r.body)
	return nil
}

// failedFuture returns a future already resolved to err.
func failedFuture(err error) *Future {
	done := make(chan struct{})
	close(done)
	return &Future{done: done, err: err}
}

// Done is closed once the transfer has finished or been cancelled.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the transfer resolves, then drains the captured
// header lines and body chunks and assembles the Response. Assembly
// happens exactly once; subsequent calls return the same value.
func (f *Future) Wait(ctx context.Context) (*response.Response, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-f.done:
	}

	f.once.Do(func() {
		if f.inner == nil {
			return // resolved at construction with a configuration error
		}
		h, err := f.inner.Wait(context.Background())
		if err != nil {
			f.err = err
			return
		}
		lines := f.headerQ.Drain()
		var body []byte
		for _, chunk := range f.bodyQ.Drain() {
			body = append(body, chunk...)
		}
		f.resp = response.New(h, lines, body)
	})
	return f.resp, f.err
}

// Cancel abandons the transfer. The handle's callbacks are detached
// before the transfer context is cancelled: once Cancel returns, neither
// delivery queue receives further writes.
func (f *Future) Cancel() {
	if f.inner != nil {
		f.inner.Cancel()
	}
}
