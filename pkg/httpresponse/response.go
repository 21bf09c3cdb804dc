// Package httpresponse parses raw, header-inclusive HTTP responses.
package httpresponse

import "strconv"

// Response is a parsed HTTP response. It is built once from a single raw
// transport response and is not modified afterwards.
type Response struct {
	Body    string
	Headers *Header
}

// Header returns the value of the named header, or "" when absent.
func (r *Response) Header(name string) string {
	if r == nil {
		return ""
	}
	return r.Headers.Get(name)
}

// StatusCode returns the numeric status code, or 0 when unavailable.
func (r *Response) StatusCode() int {
	code, err := strconv.Atoi(r.Header(KeyStatusCode))
	if err != nil {
		return 0
	}
	return code
}

// HTTPVersion returns the protocol version without the "HTTP/" prefix.
func (r *Response) HTTPVersion() string { return r.Header(KeyHTTPVersion) }

// Status returns "<code> <reason>".
func (r *Response) Status() string { return r.Header(KeyStatus) }

// String returns the response body.
func (r *Response) String() string {
	if r == nil {
		return ""
	}
	return r.Body
}
