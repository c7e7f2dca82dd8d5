package engine

import (
	"bytes"
	"context"
	"net/http"

	"github.com/user/mcp-server-template/logging"
)

// SessionHeader carries the protocol session id in both directions.
const SessionHeader = "Mcp-Session-Id"

// Result is what one HTTP transport cycle produced.
type Result struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// HTTPTransport runs the engine against a single HTTP request.
type HTTPTransport struct {
	Request *http.Request
}

func (t HTTPTransport) run(ctx context.Context, e *Engine) (*Result, error) {
	if t.Request == nil {
		return nil, ErrNoRequest
	}

	rec := newCapture()
	e.httpHandler().ServeHTTP(rec, t.Request.WithContext(ctx))
	res := rec.result()

	e.indexSession(t.Request, res)
	return res, nil
}

func (e *Engine) indexSession(req *http.Request, res *Result) {
	if e.store == nil || res.Status >= http.StatusBadRequest {
		return
	}

	if req.Method == http.MethodDelete {
		if id := req.Header.Get(SessionHeader); id != "" {
			if err := e.store.Forget(id); err != nil {
				e.logger.Warn("failed to forget session", logging.Fields{"session": id, "error": err.Error()})
			}
		}
		return
	}

	id := res.Headers.Get(SessionHeader)
	if id == "" {
		id = req.Header.Get(SessionHeader)
	}
	if id == "" {
		return
	}
	if _, err := e.store.Touch(id); err != nil {
		e.logger.Warn("failed to index session", logging.Fields{"session": id, "error": err.Error()})
	}
}

// capture buffers what the protocol handler writes so the caller can decorate
// it before anything reaches the client.
type capture struct {
	header      http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func newCapture() *capture {
	return &capture{header: make(http.Header)}
}

func (c *capture) Header() http.Header { return c.header }

func (c *capture) WriteHeader(status int) {
	if c.wroteHeader {
		return
	}
	c.status = status
	c.wroteHeader = true
}

func (c *capture) Write(p []byte) (int, error) {
	c.WriteHeader(http.StatusOK)
	return c.body.Write(p)
}

// Flush is a no-op; event streams are delivered once the cycle ends.
func (c *capture) Flush() {}

func (c *capture) result() *Result {
	status := c.status
	if !c.wroteHeader {
		status = http.StatusOK
	}
	return &Result{
		Status:  status,
		Headers: c.header.Clone(),
		Body:    c.body.Bytes(),
	}
}
