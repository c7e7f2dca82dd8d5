package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/mcp-server-template/config"
	"github.com/user/mcp-server-template/engine"
	"github.com/user/mcp-server-template/router"
)

const initializeBody = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"server-test","version":"1.0.0"}}}`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.App.Name = "Template Test"
	cfg.App.Version = "1.2.3"
	cfg.Server.ListenAddr = "127.0.0.1:0"
	cfg.MCP.SessionsDir = filepath.Join(t.TempDir(), "mcp-sessions")
	return cfg
}

func newTestApp(t *testing.T, mutate func(*config.Config)) *App {
	t.Helper()
	cfg := testConfig(t)
	if mutate != nil {
		mutate(cfg)
	}

	store, err := engine.OpenSessionStore(cfg.SessionsPath())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	app, err := NewApp(cfg, Options{Sessions: store})
	require.NoError(t, err)
	return app
}

func serve(app *App, req *http.Request) *http.Response {
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec.Result()
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func mcpRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	return req
}

func TestOptionsPreflight(t *testing.T) {
	app := newTestApp(t, nil)

	resp := serve(app, httptest.NewRequest(http.MethodOptions, "/mcp", nil))

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, http.Header{
		"Access-Control-Allow-Origin":  {"*"},
		"Access-Control-Allow-Methods": {"GET, POST, DELETE, OPTIONS"},
		"Access-Control-Allow-Headers": {"Content-Type, Mcp-Session-Id, Mcp-Protocol-Version, Last-Event-ID, Authorization, Accept"},
		"Access-Control-Max-Age":       {"86400"},
	}, resp.Header)
	assert.Empty(t, readBody(t, resp))
}

func TestOptionsPreflightIgnoresBody(t *testing.T) {
	app := newTestApp(t, nil)

	req := mcpRequest(http.MethodOptions, initializeBody)
	resp := serve(app, req)

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, http.Header{
		"Access-Control-Allow-Origin":  {"*"},
		"Access-Control-Allow-Methods": {"GET, POST, DELETE, OPTIONS"},
		"Access-Control-Allow-Headers": {"Content-Type, Mcp-Session-Id, Mcp-Protocol-Version, Last-Event-ID, Authorization, Accept"},
		"Access-Control-Max-Age":       {"86400"},
	}, resp.Header)
	assert.Empty(t, readBody(t, resp))

	families, err := app.Metrics().Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		assert.NotEqual(t, "mcp_server_engine_runs_total", f.GetName(), "engine must not run for a preflight")
	}
	n, err := app.Engine().Sessions().Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFallbackNotFound(t *testing.T) {
	app := newTestApp(t, nil)

	tests := []struct {
		method string
		target string
	}{
		{http.MethodGet, "/does-not-exist"},
		{http.MethodGet, "/mcp"},
		{http.MethodPut, "/mcp"},
		{http.MethodPost, "/"},
		{"BREW", "/healthz"},
	}

	for _, tt := range tests {
		resp := serve(app, httptest.NewRequest(tt.method, tt.target, nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, "%s %s", tt.method, tt.target)
		assert.Equal(t, "404", readBody(t, resp), "%s %s", tt.method, tt.target)
	}
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(t, nil)

	resp := serve(app, httptest.NewRequest(http.MethodGet, "/healthz?probe=1", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "1.2.3", body["version"])
	assert.Equal(t, float64(0), body["sessions"])

	_, err := app.Engine().Sessions().Touch("session-1")
	require.NoError(t, err)
	resp = serve(app, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	body = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, float64(1), body["sessions"])
}

func TestIndexDescribesServer(t *testing.T) {
	app := newTestApp(t, nil)

	resp := serve(app, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body indexBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Template Test", body.Name)
	assert.Equal(t, "/mcp", body.Endpoint)
	assert.Equal(t, "/healthz", body.Health)
	assert.Equal(t, []string{"calculate", "add", "greet"}, body.Tools)
	assert.Equal(t, []string{"config://calculator/settings"}, body.Resources)
}

func TestMCPInitialize(t *testing.T) {
	app := newTestApp(t, nil)

	resp := serve(app, mcpRequest(http.MethodPost, initializeBody))
	body := readBody(t, resp)

	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, []string{"application/json; charset=utf-8"}, resp.Header.Values("Content-Type"))
	assert.Equal(t, "no-cache, private", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "Mcp-Session-Id, Accept-Encoding", resp.Header.Get("Vary"))
	assert.Empty(t, resp.Header.Get("Pragma"))
	assert.Contains(t, body, "Template Test")

	sessionID := resp.Header.Get(engine.SessionHeader)
	require.NotEmpty(t, sessionID)
	_, err := app.Engine().Sessions().Get(sessionID)
	assert.NoError(t, err)
}

func TestMCPFailureHeaders(t *testing.T) {
	app := newTestApp(t, nil)

	// DELETE without a session id is rejected by the protocol engine
	resp := serve(app, mcpRequest(http.MethodDelete, ""))

	assert.GreaterOrEqual(t, resp.StatusCode, http.StatusBadRequest)
	assert.Equal(t, "no-store, must-revalidate", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "no-cache", resp.Header.Get("Pragma"))
	assert.Empty(t, resp.Header.Get("Vary"))
	assert.Equal(t, []string{"application/json; charset=utf-8"}, resp.Header.Values("Content-Type"))
}

func TestMCPGzip(t *testing.T) {
	app := newTestApp(t, nil)

	req := mcpRequest(http.MethodPost, initializeBody)
	req.Header.Set("Accept-Encoding", "deflate, gzip;q=0.8")
	resp := serve(app, req)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))

	zr, err := gzip.NewReader(resp.Body)
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(plain), "Template Test")
}

func TestMCPGzipDisabled(t *testing.T) {
	app := newTestApp(t, func(c *config.Config) { c.Server.Compression = false })

	req := mcpRequest(http.MethodPost, initializeBody)
	req.Header.Set("Accept-Encoding", "gzip")
	resp := serve(app, req)

	assert.Empty(t, resp.Header.Get("Content-Encoding"))
	assert.Contains(t, readBody(t, resp), "Template Test")
}

func TestHandlerErrorReplacesBody(t *testing.T) {
	app := newTestApp(t, nil)

	dir := app.Engine().Sessions().Dir()
	require.NoError(t, os.Rename(dir, dir+".moved"))
	require.NoError(t, os.WriteFile(dir, []byte("blocking file"), 0o644))

	resp := serve(app, mcpRequest(http.MethodPost, initializeBody))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `Directory "`+dir+`" was not created`, readBody(t, resp))
}

type panickingController struct{}

func (panickingController) Show() { panic("controller exploded") }

func TestHandlerPanicReplacesBody(t *testing.T) {
	app := newTestApp(t, nil)
	app.container.Bind(controllerIndex, func(*router.Container) (any, error) {
		return panickingController{}, nil
	})

	resp := serve(app, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "controller exploded", readBody(t, resp))
}

func TestBearerAuth(t *testing.T) {
	app := newTestApp(t, func(c *config.Config) {
		c.Auth.JWTSecret = "test-secret"
		c.Auth.Issuer = "template"
	})

	resp := serve(app, mcpRequest(http.MethodPost, initializeBody))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, `Bearer realm="mcp"`, resp.Header.Get("WWW-Authenticate"))
	assert.Equal(t, "no-store, must-revalidate", resp.Header.Get("Cache-Control"))
	assert.Contains(t, readBody(t, resp), ErrMissingToken.Error())

	token, err := NewAuthenticator("test-secret", "template").Issue("client-1", time.Minute)
	require.NoError(t, err)

	req := mcpRequest(http.MethodPost, initializeBody)
	req.Header.Set("Authorization", "Bearer "+token)
	resp = serve(app, req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// preflight stays open
	resp = serve(app, httptest.NewRequest(http.MethodOptions, "/mcp", nil))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t, nil)

	serve(app, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	serve(app, httptest.NewRequest(http.MethodGet, "/missing", nil))

	resp := serve(app, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, `mcp_server_requests_total{method="GET",route="health",status="200"} 1`)
	assert.Contains(t, body, `mcp_server_requests_total{method="GET",route="fallback",status="404"} 1`)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
}

func TestMetricsDisabled(t *testing.T) {
	app := newTestApp(t, func(c *config.Config) { c.Metrics.Enabled = false })

	resp := serve(app, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTraceOnlyInDebug(t *testing.T) {
	app := newTestApp(t, nil)
	resp := serve(app, httptest.NewRequest(http.MethodGet, "/debug/trace", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	app = newTestApp(t, func(c *config.Config) { c.App.Debug = true })
	serve(app, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	resp = serve(app, httptest.NewRequest(http.MethodGet, "/debug/trace", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var events []TraceEvent
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
	require.Len(t, events, 1)
	assert.Equal(t, "health", events[0].Route)
	assert.Equal(t, http.StatusOK, events[0].Status)
	assert.NotEmpty(t, events[0].RequestID)
}

func TestRoutesAreNamed(t *testing.T) {
	app := newTestApp(t, func(c *config.Config) { c.App.Debug = true })

	table, err := app.Routes(router.NewResponse())
	require.NoError(t, err)

	for name, want := range map[string]string{
		RouteIndex:   "/",
		RouteHealth:  "/healthz",
		RouteMCP:     "/mcp",
		RouteMetrics: "/metrics",
		RouteTrace:   "/debug/trace",
	} {
		got, err := table.Reverse(name, nil)
		require.NoError(t, err, name)
		assert.Equal(t, want, got)
	}

	// every request gets its own table
	other, err := app.Routes(router.NewResponse())
	require.NoError(t, err)
	assert.NotSame(t, table, other)
}

func TestCustomEndpoint(t *testing.T) {
	app := newTestApp(t, func(c *config.Config) { c.Server.Endpoint = "/rpc" })

	resp := serve(app, httptest.NewRequest(http.MethodOptions, "/rpc", nil))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = serve(app, httptest.NewRequest(http.MethodOptions, "/mcp", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGzipBodyRoundTrip(t *testing.T) {
	compressed, err := gzipBody([]byte(`{"ok":true}`))
	require.NoError(t, err)

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(plain))
}

func TestAppendEngineHeadersSkipsOwnedHeaders(t *testing.T) {
	resp := router.NewResponse()
	resp.Header("Content-Type", contentTypeJSON)
	appendEngineHeaders(resp, http.Header{
		"Content-Type":   {"text/event-stream"},
		"Content-Length": {"42"},
		"Mcp-Session-Id": {"abc"},
		"X-Extra":        {"1", "2"},
	})

	assert.Equal(t, []string{contentTypeJSON}, resp.Headers().Values("Content-Type"))
	assert.Empty(t, resp.Headers().Values("Content-Length"))
	assert.Equal(t, "abc", resp.Headers().Get("Mcp-Session-Id"))
	assert.Equal(t, []string{"1", "2"}, resp.Headers().Values("X-Extra"))
}
