package router

import (
	"bytes"
	"io"
	"net/http"
	"strings"
)

// HeaderField is one name/value pair of a Response.
type HeaderField struct {
	Name  string
	Value string
}

// Headers is an ordered multi-map. Duplicate names are kept in the order
// they were added; lookups are case-insensitive.
type Headers []HeaderField

// Add appends a value without touching existing entries for name.
func (h *Headers) Add(name, value string) {
	*h = append(*h, HeaderField{Name: name, Value: value})
}

// Set removes every entry for name, then appends value.
func (h *Headers) Set(name, value string) {
	h.Del(name)
	h.Add(name, value)
}

// Del removes every entry for name.
func (h *Headers) Del(name string) {
	kept := (*h)[:0]
	for _, f := range *h {
		if !strings.EqualFold(f.Name, name) {
			kept = append(kept, f)
		}
	}
	*h = kept
}

// Get returns the first value stored for name.
func (h Headers) Get(name string) string {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Values returns every value stored for name in insertion order.
func (h Headers) Values(name string) []string {
	var out []string
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			out = append(out, f.Value)
		}
	}
	return out
}

// Response is the response channel handlers write into. Nothing reaches the
// client until the host calls Flush, which lets the top-level request
// cycle replace the body when a handler fails.
type Response struct {
	status  int
	headers Headers
	body    bytes.Buffer
	stream  io.Reader
}

// NewResponse returns an empty 200 response.
func NewResponse() *Response {
	return &Response{status: http.StatusOK}
}

// SetStatus records the status code sent to the client.
func (r *Response) SetStatus(code int) { r.status = code }

// Status returns the recorded status code.
func (r *Response) Status() int { return r.status }

// Headers gives handlers direct access to the ordered header list.
func (r *Response) Headers() *Headers { return &r.headers }

// Header is shorthand for Headers().Set.
func (r *Response) Header(name, value string) { r.headers.Set(name, value) }

// AddHeader is shorthand for Headers().Add.
func (r *Response) AddHeader(name, value string) { r.headers.Add(name, value) }

// Write appends to the buffered body.
func (r *Response) Write(p []byte) (int, error) { return r.body.Write(p) }

// WriteString appends to the buffered body.
func (r *Response) WriteString(s string) (int, error) { return r.body.WriteString(s) }

// Stream makes Flush copy from src after the buffered body. It is meant
// for bodies too large to hold in memory.
func (r *Response) Stream(src io.Reader) { r.stream = src }

// Body returns the buffered part of the body.
func (r *Response) Body() []byte { return r.body.Bytes() }

// ReplaceBody discards anything written so far, including a pending
// stream, and stores s as the whole body. Status and headers are kept.
func (r *Response) ReplaceBody(s string) {
	r.body.Reset()
	r.stream = nil
	r.body.WriteString(s)
}

// Flush writes the response onto a net/http writer.
func (r *Response) Flush(w http.ResponseWriter) error {
	dst := w.Header()
	for _, f := range r.headers {
		dst.Add(f.Name, f.Value)
	}
	w.WriteHeader(r.status)
	if _, err := w.Write(r.body.Bytes()); err != nil {
		return err
	}
	if r.stream != nil {
		if _, err := io.Copy(w, r.stream); err != nil {
			return err
		}
	}
	return nil
}
