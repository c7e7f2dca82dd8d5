package server

import (
	"bytes"
	"net/http"
	"sort"

	"github.com/klauspost/compress/gzip"

	"github.com/user/mcp-server-template/router"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	gzipLevel       = 6
)

// corsHeaders answer browser preflights for the MCP endpoint.
var corsHeaders = []router.HeaderField{
	{Name: "Access-Control-Allow-Origin", Value: "*"},
	{Name: "Access-Control-Allow-Methods", Value: "GET, POST, DELETE, OPTIONS"},
	{Name: "Access-Control-Allow-Headers", Value: "Content-Type, Mcp-Session-Id, Mcp-Protocol-Version, Last-Event-ID, Authorization, Accept"},
	{Name: "Access-Control-Max-Age", Value: "86400"},
}

// writeCacheHeaders marks successful protocol responses as private and
// session-dependent, and failures as never cacheable.
func writeCacheHeaders(resp *router.Response, status int) {
	if status < http.StatusBadRequest {
		resp.AddHeader("Cache-Control", "no-cache, private")
		resp.AddHeader("Vary", "Mcp-Session-Id, Accept-Encoding")
	} else {
		resp.AddHeader("Cache-Control", "no-store, must-revalidate")
		resp.AddHeader("Pragma", "no-cache")
	}
}

// appendEngineHeaders copies the engine's headers after ours. Content-Type
// is ours to decide and Content-Length no longer holds once the body may be
// compressed.
func appendEngineHeaders(resp *router.Response, headers http.Header) {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		switch http.CanonicalHeaderKey(name) {
		case "Content-Type", "Content-Length":
			continue
		}
		for _, value := range headers[name] {
			resp.AddHeader(name, value)
		}
	}
}

func gzipBody(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzipLevel)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(body); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// responseWriter lets plain http.Handlers write into a router.Response.
type responseWriter struct {
	resp        *router.Response
	header      http.Header
	wroteHeader bool
}

func newResponseWriter(resp *router.Response) *responseWriter {
	return &responseWriter{resp: resp, header: make(http.Header)}
}

func (w *responseWriter) Header() http.Header { return w.header }

func (w *responseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.resp.SetStatus(status)
	names := make([]string, 0, len(w.header))
	for name := range w.header {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, value := range w.header[name] {
			w.resp.AddHeader(name, value)
		}
	}
}

func (w *responseWriter) Write(p []byte) (int, error) {
	w.WriteHeader(http.StatusOK)
	return w.resp.Write(p)
}
