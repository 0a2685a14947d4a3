package request

import "strings"

// Method is an HTTP verb. The exported constants cover the standard
// verbs; Custom produces any other verb the server understands.
type Method string

const (
	GET     Method = "GET"
	POST    Method = "POST"
	PUT     Method = "PUT"
	DELETE  Method = "DELETE"
	HEAD    Method = "HEAD"
	TRACE   Method = "TRACE"
	CONNECT Method = "CONNECT"
	PATCH   Method = "PATCH"
	OPTIONS Method = "OPTIONS"
)

// Custom returns a method carrying an arbitrary verb string.
func Custom(verb string) Method {
	return Method(strings.TrimSpace(verb))
}

// String returns the wire verb. The zero value reads as GET.
func (m Method) String() string {
	if m == "" {
		return string(GET)
	}
	return string(m)
}
