package transfer

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultMaxIdleConns is the maximum number of idle connections kept by
	// a handle's transport.
	DefaultMaxIdleConns = 100
	// DefaultMaxIdleConnsPerHost is the maximum number of idle connections
	// kept per host.
	DefaultMaxIdleConnsPerHost = 10
	// DefaultIdleConnTimeout is how long idle connections stay pooled.
	DefaultIdleConnTimeout = 90 * time.Second

	// chunkSize is the read granularity for the body callback.
	chunkSize = 32 * 1024
)

// HeaderFunc observes one received header line. The first invocation
// carries the HTTP status line. Returning false rejects the line and
// aborts the transfer.
type HeaderFunc func(line []byte) bool

// BodyFunc observes one received chunk of body data and returns the number
// of bytes it accepted. The chunk buffer is only valid for the duration of
// the call; implementations that retain data must copy it. Accepting fewer
// bytes than offered aborts the transfer as a write failure.
type BodyFunc func(chunk []byte) int

// Handle is one configurable network exchange. A handle performs at most
// one transfer at a time but survives completion: its transport (and the
// connections pooled inside it) can be reused for subsequent requests.
type Handle struct {
	id        uuid.UUID
	transport *http.Transport

	verb            string
	url             string
	headerLines     []string
	body            []byte
	followRedirects bool
	maxRedirects    int
	lowSpeedLimit   int64
	lowSpeedWindow  time.Duration
	timeout         time.Duration
	noBody          bool

	cbMu     sync.Mutex
	onHeader HeaderFunc
	onBody   BodyFunc
	detached bool

	status atomic.Int64
}

// New creates an unconfigured handle with a fresh transport.
func New() *Handle {
	return &Handle{
		id: uuid.New(),
		transport: &http.Transport{
			MaxIdleConns:        DefaultMaxIdleConns,
			MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
			IdleConnTimeout:     DefaultIdleConnTimeout,
		},
		followRedirects: true,
	}
}

// ID returns the stable identity of this handle. The id survives reuse so
// metrics and history entries can correlate transfers that shared a
// connection pool.
func (h *Handle) ID() uuid.UUID {
	return h.id
}

// SetVerb sets the request method string sent on the wire.
func (h *Handle) SetVerb(verb string) error {
	verb = strings.TrimSpace(verb)
	if verb == "" {
		return &ConfigError{Option: "verb", Reason: "must not be empty"}
	}
	h.verb = verb
	return nil
}

// SetURL sets the absolute destination URL.
func (h *Handle) SetURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return &ConfigError{Option: "url", Reason: err.Error()}
	}
	if !u.IsAbs() {
		return &ConfigError{Option: "url", Reason: fmt.Sprintf("%q is not absolute", raw)}
	}
	h.url = raw
	return nil
}

// SetHeaderLines sets the outgoing headers in wire "Name: Value" form.
func (h *Handle) SetHeaderLines(lines []string) {
	h.headerLines = lines
}

// SetBody sets the raw request body. A nil body sends no payload.
func (h *Handle) SetBody(body []byte) {
	h.body = body
}

// SetFollowRedirects controls whether 3xx responses are followed.
func (h *Handle) SetFollowRedirects(follow bool) {
	h.followRedirects = follow
}

// SetMaxRedirects caps the redirect chain length. The cap only applies
// when redirect following is enabled; once exceeded, the last 3xx response
// is returned as the transfer result rather than an error.
func (h *Handle) SetMaxRedirects(n int) error {
	if n < 0 {
		return &ConfigError{Option: "max redirects", Reason: "must not be negative"}
	}
	h.maxRedirects = n
	return nil
}

// SetLowSpeed arms the low-speed watchdog: the transfer aborts when fewer
// than limit bytes arrive within any single window. A zero in either
// component disables the watchdog.
func (h *Handle) SetLowSpeed(limit int64, window time.Duration) error {
	if limit < 0 {
		return &ConfigError{Option: "low speed limit", Reason: "must not be negative"}
	}
	if window < 0 {
		return &ConfigError{Option: "low speed window", Reason: "must not be negative"}
	}
	if limit == 0 || window == 0 {
		h.lowSpeedLimit, h.lowSpeedWindow = 0, 0
		return nil
	}
	h.lowSpeedLimit, h.lowSpeedWindow = limit, window
	return nil
}

// SetTimeout sets a hard wall-clock cap on the whole transfer. Zero
// disables the cap.
func (h *Handle) SetTimeout(d time.Duration) error {
	if d < 0 {
		return &ConfigError{Option: "timeout", Reason: "must not be negative"}
	}
	h.timeout = d
	return nil
}

// SetNoBody suppresses reading of the response body. Used for HEAD.
func (h *Handle) SetNoBody(noBody bool) {
	h.noBody = noBody
}

// OnHeaderLine registers the streaming header callback.
func (h *Handle) OnHeaderLine(fn HeaderFunc) {
	h.cbMu.Lock()
	h.onHeader = fn
	h.cbMu.Unlock()
}

// OnBodyChunk registers the streaming body callback.
func (h *Handle) OnBodyChunk(fn BodyFunc) {
	h.cbMu.Lock()
	h.onBody = fn
	h.cbMu.Unlock()
}

// Detach permanently silences both callbacks for the in-flight transfer.
// Once Detach returns, no callback invocation can be observed; a transfer
// whose future was dropped must never write into freed state.
func (h *Handle) Detach() {
	h.cbMu.Lock()
	h.detached = true
	h.cbMu.Unlock()
}

// StatusCode returns the numeric status reported by the last completed
// transfer. The second return is false until a transfer completes.
func (h *Handle) StatusCode() (int, bool) {
	code := h.status.Load()
	return int(code), code != 0
}

// deliverHeader runs the header callback under the detach gate.
func (h *Handle) deliverHeader(line []byte) bool {
	h.cbMu.Lock()
	defer h.cbMu.Unlock()
	if h.detached || h.onHeader == nil {
		return true
	}
	return h.onHeader(line)
}

// deliverBody runs the body callback under the detach gate.
func (h *Handle) deliverBody(chunk []byte) int {
	h.cbMu.Lock()
	defer h.cbMu.Unlock()
	if h.detached || h.onBody == nil {
		return len(chunk)
	}
	return h.onBody(chunk)
}
