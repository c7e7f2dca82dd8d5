package engine

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/user/mcp-server-template/logging"
)

// Catalogue attaches tools and resources to a protocol server. groups are
// the discovery directories, relative to the discovery root.
type Catalogue interface {
	Apply(server *mcp.Server, groups []string) error
}

// Builder collects the server description before Build.
type Builder struct {
	name         string
	version      string
	root         string
	dirs         []string
	catalogue    Catalogue
	store        *SessionStore
	logger       logging.Logger
	stateless    bool
	jsonResponse bool
}

func NewBuilder() *Builder {
	return &Builder{root: "."}
}

func (b *Builder) ServerInfo(name, version string) *Builder {
	b.name, b.version = name, version
	return b
}

func (b *Builder) Discovery(root string, dirs []string, catalogue Catalogue) *Builder {
	b.root, b.dirs, b.catalogue = root, dirs, catalogue
	return b
}

// Session attaches a session index. A nil store disables indexing.
func (b *Builder) Session(store *SessionStore) *Builder {
	b.store = store
	return b
}

// Logger sets where the protocol library logs. Without one it is silent.
func (b *Builder) Logger(logger logging.Logger) *Builder {
	b.logger = logger
	return b
}

// Stateless makes every HTTP request a fresh protocol session.
func (b *Builder) Stateless(v bool) *Builder {
	b.stateless = v
	return b
}

// JSONResponse answers POSTs with application/json instead of an event stream.
func (b *Builder) JSONResponse(v bool) *Builder {
	b.jsonResponse = v
	return b
}

// Build validates the description, creates the protocol server and applies
// the catalogue groups selected by the discovery directories.
func (b *Builder) Build() (*Engine, error) {
	if b.name == "" || b.version == "" {
		return nil, ErrNoServerInfo
	}
	if b.catalogue == nil {
		return nil, ErrNoCatalogue
	}

	groups, err := discoveryGroups(b.root, b.dirs)
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = logging.Nop()
	}

	var sdkLogger *slog.Logger
	if logger.Enabled(logging.LevelDebug) {
		sdkLogger = logging.Slog(logger)
	} else {
		sdkLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    b.name,
		Version: b.version,
	}, &mcp.ServerOptions{Logger: sdkLogger})

	if err := b.catalogue.Apply(server, groups); err != nil {
		return nil, err
	}

	logger.Debug("protocol engine built", logging.Fields{
		"name":      b.name,
		"version":   b.version,
		"groups":    strings.Join(groups, ","),
		"stateless": b.stateless,
	})

	return &Engine{
		server:       server,
		store:        b.store,
		logger:       logger,
		stateless:    b.stateless,
		jsonResponse: b.jsonResponse,
	}, nil
}

// discoveryGroups normalises dirs against root. A directory that resolves
// outside root is rejected.
func discoveryGroups(root string, dirs []string) ([]string, error) {
	if root == "" {
		root = "."
	}
	groups := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		rel, err := filepath.Rel(root, filepath.Join(root, dir))
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, ErrDirOutsideRoot
		}
		groups = append(groups, filepath.ToSlash(rel))
	}
	return groups, nil
}

// Engine is a built protocol server ready to be run against a transport.
type Engine struct {
	server       *mcp.Server
	store        *SessionStore
	logger       logging.Logger
	stateless    bool
	jsonResponse bool

	handlerOnce sync.Once
	handler     http.Handler
}

// Server exposes the underlying protocol server, mainly for in-memory tests.
func (e *Engine) Server() *mcp.Server { return e.server }

// Sessions returns the session index, or nil.
func (e *Engine) Sessions() *SessionStore { return e.store }

// Transport is one way of feeding requests to an Engine.
type Transport interface {
	run(ctx context.Context, e *Engine) (*Result, error)
}

// Run executes one transport cycle. The session directory is re-checked
// first so a directory removed while running is reported, not masked.
func (e *Engine) Run(ctx context.Context, t Transport) (*Result, error) {
	if e.store != nil {
		if err := EnsureSessionDir(e.store.Dir()); err != nil {
			return nil, err
		}
	}
	return t.run(ctx, e)
}

func (e *Engine) httpHandler() http.Handler {
	e.handlerOnce.Do(func() {
		e.handler = mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
			return e.server
		}, &mcp.StreamableHTTPOptions{
			Stateless:    e.stateless,
			JSONResponse: e.jsonResponse,
		})
	})
	return e.handler
}

// StdioTransport serves the protocol over stdin/stdout until the client
// disconnects or ctx is cancelled.
type StdioTransport struct{}

func (StdioTransport) run(ctx context.Context, e *Engine) (*Result, error) {
	e.logger.Info("serving MCP over stdio")
	if err := e.server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return nil, err
	}
	return nil, nil
}
