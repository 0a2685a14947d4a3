package request

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/abdul-hamid-achik/httpfetch/packages/transfer"
)

const (
	// DefaultLowSpeedLimit is the default low-speed floor in bytes.
	DefaultLowSpeedLimit = 10
	// DefaultLowSpeedWindow is the default low-speed measurement window.
	DefaultLowSpeedWindow = 10 * time.Second
	// DefaultMaxRedirects is how many redirects are followed by default.
	DefaultMaxRedirects = 15
)

// Request is the descriptor for one not-yet-submitted HTTP request. It is
// built through fluent setters and consumed by Send; a descriptor cannot
// be submitted twice.
//
// Request headers overwrite by name. A header that legitimately needs
// several values can be set as a comma-separated list, which RFC 2616
// defines as equivalent to repeating the header. Query parameters, in
// contrast, allow repeated names.
type Request struct {
	method          Method
	url             *url.URL
	headers         map[string]string
	params          map[string][]string
	body            []byte
	followRedirects bool
	maxRedirects    int
	lowSpeedLimit   int64
	lowSpeedWindow  time.Duration
	timeout         time.Duration
	handle          *transfer.Handle
	sent            bool
}

// New creates a descriptor for the given URL and method. The URL is
// copied; later mutations of u do not affect the descriptor.
func New(u *url.URL, m Method) *Request {
	cloned := *u
	return &Request{
		method:          m,
		url:             &cloned,
		headers:         make(map[string]string),
		params:          make(map[string][]string),
		followRedirects: true,
		maxRedirects:    DefaultMaxRedirects,
		lowSpeedLimit:   DefaultLowSpeedLimit,
		lowSpeedWindow:  DefaultLowSpeedWindow,
	}
}

// Parse creates a descriptor from a raw URL string. The URL must be
// absolute.
func Parse(raw string, m Method) (*Request, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("invalid url %q: not absolute", raw)
	}
	return New(u, m), nil
}

// Get creates a GET descriptor.
func Get(u *url.URL) *Request { return New(u, GET) }

// Post creates a POST descriptor.
func Post(u *url.URL) *Request { return New(u, POST) }

// Put creates a PUT descriptor.
func Put(u *url.URL) *Request { return New(u, PUT) }

// Delete creates a DELETE descriptor.
func Delete(u *url.URL) *Request { return New(u, DELETE) }

// Head creates a HEAD descriptor.
func Head(u *url.URL) *Request { return New(u, HEAD) }

// Patch creates a PATCH descriptor.
func Patch(u *url.URL) *Request { return New(u, PATCH) }

// Options creates an OPTIONS descriptor.
func Options(u *url.URL) *Request { return New(u, OPTIONS) }

// GetString creates a GET descriptor from a raw URL string.
func GetString(raw string) (*Request, error) { return Parse(raw, GET) }

// PostString creates a POST descriptor from a raw URL string.
func PostString(raw string) (*Request, error) { return Parse(raw, POST) }

// PutString creates a PUT descriptor from a raw URL string.
func PutString(raw string) (*Request, error) { return Parse(raw, PUT) }

// DeleteString creates a DELETE descriptor from a raw URL string.
func DeleteString(raw string) (*Request, error) { return Parse(raw, DELETE) }

// SetHeader sets a request header, replacing any previous value for the
// name. Setting an empty value removes the header.
func (r *Request) SetHeader(name, value string) *Request {
	if value == "" {
		delete(r.headers, name)
	} else {
		r.headers[name] = value
	}
	return r
}

// AddParam appends a query parameter destined for the URL. Repeated names
// are allowed; every value is encoded.
func (r *Request) AddParam(name, value string) *Request {
	r.params[name] = append(r.params[name], value)
	return r
}

// SetBody sets the raw request body.
func (r *Request) SetBody(body []byte) *Request {
	r.body = body
	return r
}

// SetJSON serializes v as the request body and sets Content-Type to
// application/json. Serialization failure is returned, never swallowed
// into an empty body.
func (r *Request) SetJSON(v any) (*Request, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return r, fmt.Errorf("serialize request body: %w", err)
	}
	r.body = body
	return r.SetHeader("Content-Type", "application/json"), nil
}

// FollowRedirects controls whether 3xx responses are followed. Defaults
// to true.
func (r *Request) FollowRedirects(follow bool) *Request {
	r.followRedirects = follow
	return r
}

// MaxRedirects caps the redirect chain when following is enabled. With a
// cap of 0 the first redirect response is returned as the result.
func (r *Request) MaxRedirects(n int) *Request {
	r.maxRedirects = n
	return r
}

// LowSpeedLimit aborts the transfer when fewer than limit bytes arrive
// within any single window. Pass 0 for either argument to disable.
// Defaults to DefaultLowSpeedLimit bytes per DefaultLowSpeedWindow.
func (r *Request) LowSpeedLimit(limit int64, window time.Duration) *Request {
	if limit <= 0 || window <= 0 {
		r.lowSpeedLimit, r.lowSpeedWindow = 0, 0
		return r
	}
	r.lowSpeedLimit, r.lowSpeedWindow = limit, window
	return r
}

// Timeout sets a hard wall-clock cap on the whole transfer. Disabled by
// default in favor of the low-speed limit.
func (r *Request) Timeout(d time.Duration) *Request {
	r.timeout = d
	return r
}

// UseHandle supplies a previously used transfer handle whose pooled
// connections should be reused. Purely a performance measure; a fresh
// handle is created when none is supplied.
func (r *Request) UseHandle(h *transfer.Handle) *Request {
	r.handle = h
	return r
}

// String renders the request line, e.g. "GET https://example.test/get".
func (r *Request) String() string {
	return r.method.String() + " " + r.url.String()
}
