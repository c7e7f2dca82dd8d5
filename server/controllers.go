package server

import (
	"encoding/json"
	"net/http"

	"github.com/user/mcp-server-template/config"
	"github.com/user/mcp-server-template/engine"
	"github.com/user/mcp-server-template/logging"
	"github.com/user/mcp-server-template/tools"
)

func writeJSON(ex *exchange, status int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ex.response.SetStatus(status)
	ex.response.Header("Content-Type", contentTypeJSON)
	_, err = ex.response.Write(data)
	return err
}

// McpController hands protocol requests to the engine.
type McpController struct {
	*exchange
	cfg     *config.Config
	engine  *engine.Engine
	auth    *Authenticator
	metrics *Metrics
	trace   *TraceRecorder
	logger  logging.Logger
}

// Post runs the engine for POST and DELETE on the MCP endpoint and relays
// its answer with our cache, content-type and encoding headers.
func (c *McpController) Post() error {
	if c.auth != nil {
		header, _ := c.rc.Authorization()
		if _, err := c.auth.Verify(header); err != nil {
			c.logger.Warn("rejected MCP request", logging.Fields{"request_id": c.id, "error": err.Error()})
			writeCacheHeaders(c.response, http.StatusUnauthorized)
			c.response.Header("WWW-Authenticate", `Bearer realm="mcp"`)
			return writeJSON(c.exchange, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		}
	}

	res, err := c.engine.Run(c.request.Context(), engine.HTTPTransport{Request: c.request})
	if err != nil {
		return err
	}
	c.metrics.observeEngine(res.Status)

	c.response.SetStatus(res.Status)
	writeCacheHeaders(c.response, res.Status)
	c.response.Header("Content-Type", contentTypeJSON)
	appendEngineHeaders(c.response, res.Headers)

	body := res.Body
	if c.cfg.Server.Compression && c.rc.AcceptsGzip() {
		compressed, err := gzipBody(body)
		if err != nil {
			return err
		}
		c.response.Header("Content-Encoding", "gzip")
		body = compressed
	}
	if _, err := c.response.Write(body); err != nil {
		return err
	}

	c.trace.Add(TraceEvent{
		RequestID: c.id,
		Stage:     "engine",
		Route:     RouteMCP,
		Method:    c.rc.Method.String(),
		Path:      c.rc.Path(),
		Status:    res.Status,
		Session:   res.Headers.Get(engine.SessionHeader),
	})
	return nil
}

// Options answers CORS preflights.
func (c *McpController) Options() {
	c.response.SetStatus(http.StatusNoContent)
	for _, h := range corsHeaders {
		c.response.Header(h.Name, h.Value)
	}
}

// IndexController describes the server and where its endpoints live.
type IndexController struct {
	*exchange
	cfg       *config.Config
	catalogue *tools.Catalogue
}

type indexBody struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Endpoint  string   `json:"endpoint"`
	Health    string   `json:"health"`
	Tools     []string `json:"tools"`
	Resources []string `json:"resources"`
	Groups    []string `json:"groups"`
}

func (c *IndexController) Show() error {
	endpoint, err := c.table.Reverse(RouteMCP, nil)
	if err != nil {
		return err
	}
	health, err := c.table.Reverse(RouteHealth, nil)
	if err != nil {
		return err
	}

	body := indexBody{
		Name:      c.cfg.App.Name,
		Version:   c.cfg.App.Version,
		Endpoint:  endpoint,
		Health:    health,
		Tools:     []string{},
		Resources: []string{},
		Groups:    c.cfg.MCP.DiscoveryDirs,
	}
	for _, e := range c.catalogue.List() {
		switch e.Kind {
		case tools.KindTool:
			body.Tools = append(body.Tools, e.Name)
		case tools.KindResource:
			body.Resources = append(body.Resources, e.URI)
		}
	}
	return writeJSON(c.exchange, http.StatusOK, body)
}

// HealthController reports liveness.
type HealthController struct {
	*exchange
	cfg      *config.Config
	sessions *engine.SessionStore
}

func (c *HealthController) Show() error {
	body := map[string]any{
		"status":  "ok",
		"version": c.cfg.App.Version,
	}
	if c.sessions != nil {
		n, err := c.sessions.Count()
		if err != nil {
			return err
		}
		body["sessions"] = n
	}
	return writeJSON(c.exchange, http.StatusOK, body)
}

// MetricsController serves the Prometheus exposition.
type MetricsController struct {
	*exchange
	metrics *Metrics
}

func (c *MetricsController) Show() {
	c.metrics.handler.ServeHTTP(newResponseWriter(c.response), c.request)
}

// TraceController dumps the recent request trace. Only routed in debug.
type TraceController struct {
	*exchange
	trace *TraceRecorder
}

func (c *TraceController) Show() error {
	return writeJSON(c.exchange, http.StatusOK, c.trace.List())
}
