package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/user/mcp-server-template/config"
	"github.com/user/mcp-server-template/engine"
	"github.com/user/mcp-server-template/logging"
	"github.com/user/mcp-server-template/router"
	"github.com/user/mcp-server-template/tools"
)

// Container names. Everything except the exchange is bound once per process.
const (
	keyConfig    = "config"
	keyLogger    = "logger"
	keyEngine    = "engine"
	keyCatalogue = "catalogue"
	keyMetrics   = "metrics"
	keyTrace     = "trace"
	keyExchange  = "exchange"

	controllerIndex   = "controller.index"
	controllerHealth  = "controller.health"
	controllerMCP     = "controller.mcp"
	controllerMetrics = "controller.metrics"
	controllerTrace   = "controller.trace"
)

// Route names usable with Table.Reverse.
const (
	RouteIndex   = "index"
	RouteHealth  = "health"
	RouteMCP     = "mcp"
	RouteMetrics = "metrics"
	RouteTrace   = "trace"

	routeFallback = "fallback"
	tracePath     = "/debug/trace"
)

// exchange is the per-request state handlers see through the container.
type exchange struct {
	id       string
	request  *http.Request
	rc       router.RequestContext
	response *router.Response
	table    *router.Table
}

func exchangeFrom(c *router.Container) (*exchange, error) {
	v, err := c.Resolve(keyExchange)
	if err != nil {
		return nil, err
	}
	ex, ok := v.(*exchange)
	if !ok {
		return nil, fmt.Errorf("resolve %q: got %T", keyExchange, v)
	}
	return ex, nil
}

// Options carries the collaborators NewApp does not build itself.
type Options struct {
	Logger    logging.Logger
	Catalogue *tools.Catalogue
	Sessions  *engine.SessionStore
}

// App is the request cycle: it turns one HTTP request into one
// router.Response through the route table and the controllers.
type App struct {
	cfg       *config.Config
	logger    logging.Logger
	container *router.Container
	engine    *engine.Engine
	catalogue *tools.Catalogue
	metrics   *Metrics
	trace     *TraceRecorder
	auth      *Authenticator
}

// NewApp builds the protocol engine and the process-wide container.
func NewApp(cfg *config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	catalogue := opts.Catalogue
	if catalogue == nil {
		var err error
		if catalogue, err = tools.Default(); err != nil {
			return nil, fmt.Errorf("failed to build tool catalogue: %w", err)
		}
	}

	builder := engine.NewBuilder().
		ServerInfo(cfg.App.Name, cfg.App.Version).
		Discovery(cfg.MCP.DiscoveryRoot, cfg.MCP.DiscoveryDirs, catalogue).
		Session(opts.Sessions).
		Stateless(cfg.MCP.Stateless).
		JSONResponse(cfg.MCP.JSONResponse)
	if cfg.App.Debug {
		builder = builder.Logger(logger)
	}
	eng, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build protocol engine: %w", err)
	}

	a := &App{
		cfg:       cfg,
		logger:    logger,
		container: router.NewContainer(),
		engine:    eng,
		catalogue: catalogue,
		metrics:   NewMetrics(),
		trace:     NewTraceRecorder(0),
		auth:      NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
	}
	a.bind()
	return a, nil
}

func (a *App) bind() {
	c := a.container
	c.Instance(keyConfig, a.cfg)
	c.Instance(keyLogger, a.logger)
	c.Instance(keyEngine, a.engine)
	c.Instance(keyCatalogue, a.catalogue)
	c.Instance(keyMetrics, a.metrics)
	c.Instance(keyTrace, a.trace)

	c.Bind(controllerIndex, func(c *router.Container) (any, error) {
		ex, err := exchangeFrom(c)
		if err != nil {
			return nil, err
		}
		return &IndexController{exchange: ex, cfg: a.cfg, catalogue: a.catalogue}, nil
	})
	c.Bind(controllerHealth, func(c *router.Container) (any, error) {
		ex, err := exchangeFrom(c)
		if err != nil {
			return nil, err
		}
		return &HealthController{exchange: ex, cfg: a.cfg, sessions: a.engine.Sessions()}, nil
	})
	c.Bind(controllerMCP, func(c *router.Container) (any, error) {
		ex, err := exchangeFrom(c)
		if err != nil {
			return nil, err
		}
		return &McpController{
			exchange: ex,
			cfg:      a.cfg,
			engine:   a.engine,
			auth:     a.auth,
			metrics:  a.metrics,
			trace:    a.trace,
			logger:   a.logger,
		}, nil
	})
	c.Bind(controllerMetrics, func(c *router.Container) (any, error) {
		ex, err := exchangeFrom(c)
		if err != nil {
			return nil, err
		}
		return &MetricsController{exchange: ex, metrics: a.metrics}, nil
	})
	c.Bind(controllerTrace, func(c *router.Container) (any, error) {
		ex, err := exchangeFrom(c)
		if err != nil {
			return nil, err
		}
		return &TraceController{exchange: ex, trace: a.trace}, nil
	})
}

// Routes builds the route table for one request. The fallback closes over
// that request's response.
func (a *App) Routes(resp *router.Response) (*router.Table, error) {
	t := router.NewTable()
	endpoint := a.cfg.Server.Endpoint

	steps := []func() error{
		func() error { return t.Get("/", router.Action{Controller: controllerIndex, Method: "Show"}, RouteIndex) },
		func() error { return t.Get("/healthz", router.Action{Controller: controllerHealth, Method: "Show"}, RouteHealth) },
		func() error {
			return t.Register([]router.Method{router.MethodPost, router.MethodDelete}, endpoint,
				router.Action{Controller: controllerMCP, Method: "Post"}, RouteMCP)
		},
		func() error { return t.Options(endpoint, router.Action{Controller: controllerMCP, Method: "Options"}) },
	}
	if a.cfg.Metrics.Enabled {
		steps = append(steps, func() error {
			return t.Get(a.cfg.Metrics.Path, router.Action{Controller: controllerMetrics, Method: "Show"}, RouteMetrics)
		})
	}
	if a.cfg.App.Debug {
		steps = append(steps, func() error {
			return t.Get(tracePath, router.Action{Controller: controllerTrace, Method: "Show"}, RouteTrace)
		})
	}
	steps = append(steps, func() error {
		return t.SetFallback(func() {
			resp.SetStatus(http.StatusNotFound)
			_, _ = resp.WriteString("404")
		})
	})

	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Handle runs one request cycle. Any handler error or panic replaces the
// body with its message; status and headers stay as the handler left them.
func (a *App) Handle(r *http.Request) *router.Response {
	start := time.Now()
	rc := router.FromEnv(router.EnvFromRequest(r))
	resp := router.NewResponse()
	ex := &exchange{
		id:       uuid.NewString(),
		request:  r,
		rc:       rc,
		response: resp,
	}

	scope := a.container.Scope()
	scope.Instance(keyExchange, ex)

	routeName := routeFallback
	table, err := a.Routes(resp)
	if err == nil {
		ex.table = table
		var route *router.Route
		route, err = router.Dispatch(rc, table, scope)
		if route != nil {
			routeName = route.Name
			if routeName == "" {
				routeName = route.Pattern
			}
		}
	}

	fields := logging.Fields{
		"request_id": ex.id,
		"method":     rc.Method.String(),
		"path":       rc.Path(),
		"route":      routeName,
	}

	event := TraceEvent{
		RequestID: ex.id,
		Stage:     "dispatch",
		Route:     routeName,
		Method:    rc.Method.String(),
		Path:      rc.Path(),
	}

	if err != nil {
		resp.ReplaceBody(err.Error())
		a.metrics.observeFailure()
		fields["error"] = err.Error()
		var pe *router.PanicError
		if errors.As(err, &pe) {
			fields["panic"] = true
		}
		a.logger.Error("request failed", fields)
		event.Detail = err.Error()
	}

	elapsed := time.Since(start)
	event.Status = resp.Status()
	event.Duration = elapsed.String()
	a.trace.Add(event)
	a.metrics.observeRequest(routeName, rc.Method.String(), resp.Status(), elapsed)

	fields["status"] = resp.Status()
	fields["duration"] = elapsed.String()
	a.logger.Debug("request handled", fields)

	return resp
}

// ServeHTTP makes the App usable directly as an http.Handler, which is how
// both the listener and CGI mode drive it.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := a.Handle(r)
	if err := resp.Flush(w); err != nil {
		a.logger.Warn("failed to write response", logging.Fields{"error": err.Error()})
	}
}

// Engine returns the protocol engine.
func (a *App) Engine() *engine.Engine { return a.engine }

// Catalogue returns the tool catalogue the engine was built from.
func (a *App) Catalogue() *tools.Catalogue { return a.catalogue }

// Trace returns the trace recorder.
func (a *App) Trace() *TraceRecorder { return a.trace }

// Metrics returns the metrics collectors.
func (a *App) Metrics() *Metrics { return a.metrics }
