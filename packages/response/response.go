// Package response assembles and exposes the result of a completed
// transfer.
//
// Assembly is pure and synchronous: it takes the completed handle, the
// captured header lines, and the captured body bytes, and produces an
// immutable Response. Decoding accessors (UTF-8, JSON) are deferred until
// called and surface typed errors instead of failing the transfer.
package response

import (
	"encoding/json"
	"fmt"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/abdul-hamid-achik/httpfetch/packages/transfer"
)

// Header is one received name/value pair.
type Header struct {
	Name  string
	Value string
}

// DecodeError reports a failed body decoding requested by an accessor.
// It never aborts the transfer the body came from.
type DecodeError struct {
	What string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode response body as %s: %v", e.What, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Response is the immutable result of one successful transfer.
//
// Duplicate header names are preserved in received order; name lookups
// return the first match. Callers that need every value of a repeated
// header (Set-Cookie being the usual case) should iterate Headers.
type Response struct {
	statusCode int
	headers    []Header
	body       []byte
	handle     *transfer.Handle
}

// New assembles a Response from the terminal state of one transfer.
//
// Each captured line is split on the first ": "; both parts are trimmed
// and lines that do not yield two non-empty parts are dropped. A handle
// that reports no status code after a successful transfer violates the
// engine contract, so New panics rather than inventing a code.
func New(h *transfer.Handle, lines []string, body []byte) *Response {
	headers := make([]Header, 0, len(lines))
	for _, line := range lines {
		name, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if name == "" || value == "" {
			continue
		}
		headers = append(headers, Header{Name: name, Value: value})
	}

	code, ok := h.StatusCode()
	if !ok {
		panic("response: transfer completed without reporting a status code")
	}

	return &Response{
		statusCode: code,
		headers:    headers,
		body:       body,
		handle:     h,
	}
}

// StatusCode returns the HTTP status code reported by the engine.
func (r *Response) StatusCode() int {
	return r.statusCode
}

// IsSuccess reports whether the status code is in the 2xx range. Redirects
// and error statuses are not successes, but they are still full responses,
// never transfer failures.
func (r *Response) IsSuccess() bool {
	return r.statusCode >= 200 && r.statusCode <= 299
}

// Header returns the first value of the named header, or "" when absent.
// Name matching is case-insensitive.
func (r *Response) Header(name string) string {
	for _, h := range r.headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// Headers returns all received headers in order, duplicates included.
func (r *Response) Headers() []Header {
	return r.headers
}

// ContentType returns the media type of the Content-Type header, with
// parameters stripped. It returns "" when the header is absent or does
// not parse.
func (r *Response) ContentType() string {
	ct := r.Header("Content-Type")
	if ct == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	return mediaType
}

// Body returns the accumulated body bytes, verbatim.
func (r *Response) Body() []byte {
	return r.body
}

// BodyString interprets the body as UTF-8.
func (r *Response) BodyString() (string, error) {
	if !utf8.Valid(r.body) {
		return "", &DecodeError{What: "utf-8", Err: fmt.Errorf("body contains invalid byte sequences")}
	}
	return string(r.body), nil
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.body, v); err != nil {
		return &DecodeError{What: "json", Err: err}
	}
	return nil
}

// JSONPath evaluates a gjson path against the body. The zero Result is
// returned for non-JSON bodies or missing paths.
func (r *Response) JSONPath(path string) gjson.Result {
	return gjson.GetBytes(r.body, path)
}

// Reuse extracts the completed handle so a subsequent request can reuse
// its pooled connections. Ownership moves to the caller; further calls
// return nil.
func (r *Response) Reuse() *transfer.Handle {
	h := r.handle
	r.handle = nil
	return h
}
