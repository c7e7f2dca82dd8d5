package router

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// Route is one registration in a Table.
type Route struct {
	Methods []Method
	Pattern string
	Handler Handler
	Name    string

	segments []segment
	literal  bool
}

// Allows reports whether m is in the route's method set.
func (r *Route) Allows(m Method) bool {
	for _, allowed := range r.Methods {
		if allowed == m {
			return true
		}
	}
	return false
}

type segmentKind int

const (
	segLiteral segmentKind = iota
	segParam
	segWildcard
)

type segment struct {
	kind  segmentKind
	value string // literal text or parameter name
}

func compilePattern(pattern string) ([]segment, bool) {
	parts := strings.Split(pattern, "/")
	segs := make([]segment, 0, len(parts))
	literal := true
	for i, p := range parts {
		switch {
		case strings.HasPrefix(p, ":") && len(p) > 1:
			segs = append(segs, segment{kind: segParam, value: p[1:]})
			literal = false
		case strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") && len(p) > 2:
			segs = append(segs, segment{kind: segParam, value: p[1 : len(p)-1]})
			literal = false
		case strings.HasPrefix(p, "*") && i == len(parts)-1:
			name := p[1:]
			if name == "" {
				name = "*"
			}
			segs = append(segs, segment{kind: segWildcard, value: name})
			literal = false
		default:
			segs = append(segs, segment{kind: segLiteral, value: p})
		}
	}
	return segs, literal
}

func unescapeSegment(s string) string {
	if v, err := url.PathUnescape(s); err == nil {
		return v
	}
	return s
}

// match reports whether path fits the route pattern and returns the
// captured parameters, percent-decoded.
func (r *Route) match(path string) (map[string]string, bool) {
	if r.literal {
		return nil, r.Pattern == path
	}
	parts := strings.Split(path, "/")
	params := make(map[string]string)
	for i, seg := range r.segments {
		if seg.kind == segWildcard {
			tail := parts[min(i, len(parts)):]
			if strings.Join(tail, "/") == "" {
				return nil, false
			}
			decoded := make([]string, len(tail))
			for j, p := range tail {
				decoded[j] = unescapeSegment(p)
			}
			params[seg.value] = strings.Join(decoded, "/")
			return params, true
		}
		if i >= len(parts) {
			return nil, false
		}
		switch seg.kind {
		case segLiteral:
			if parts[i] != seg.value {
				return nil, false
			}
		case segParam:
			if parts[i] == "" {
				return nil, false
			}
			params[seg.value] = unescapeSegment(parts[i])
		}
	}
	if len(parts) != len(r.segments) {
		return nil, false
	}
	return params, true
}

// Table is an ordered set of routes plus one fallback handler. Once sealed
// it no longer accepts registrations and is safe to read concurrently.
type Table struct {
	mu       sync.RWMutex
	routes   []*Route
	named    map[string]*Route
	fallback Handler
	sealed   bool
}

// NewTable returns an empty, unsealed table.
func NewTable() *Table {
	return &Table{named: make(map[string]*Route)}
}

// Register appends a route. The optional name indexes it for Reverse.
func (t *Table) Register(methods []Method, path string, handler Handler, name ...string) error {
	if len(methods) == 0 {
		return fmt.Errorf("register %s: %w", path, ErrNoMethods)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sealed {
		return fmt.Errorf("register %s: %w", path, ErrSealed)
	}

	route := &Route{
		Methods: append([]Method(nil), methods...),
		Pattern: path,
		Handler: handler,
	}
	route.segments, route.literal = compilePattern(path)

	if len(name) > 0 && name[0] != "" {
		if _, taken := t.named[name[0]]; taken {
			return fmt.Errorf("register %s as %q: %w", path, name[0], ErrDuplicateName)
		}
		route.Name = name[0]
		t.named[route.Name] = route
	}

	t.routes = append(t.routes, route)
	return nil
}

// Get registers a GET route.
func (t *Table) Get(path string, handler Handler, name ...string) error {
	return t.Register([]Method{MethodGet}, path, handler, name...)
}

// Post registers a POST route.
func (t *Table) Post(path string, handler Handler, name ...string) error {
	return t.Register([]Method{MethodPost}, path, handler, name...)
}

// Options registers an OPTIONS route.
func (t *Table) Options(path string, handler Handler, name ...string) error {
	return t.Register([]Method{MethodOptions}, path, handler, name...)
}

// Any registers one route for several methods.
func (t *Table) Any(path string, handler Handler, methods ...Method) error {
	return t.Register(methods, path, handler)
}

// SetFallback stores the handler run when nothing matches.
func (t *Table) SetFallback(handler Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sealed {
		return fmt.Errorf("set fallback: %w", ErrSealed)
	}
	t.fallback = handler
	return nil
}

// Fallback returns the configured fallback handler, or nil.
func (t *Table) Fallback() Handler {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.fallback
}

// Seal freezes the table. Dispatch seals it implicitly.
func (t *Table) Seal() {
	t.mu.Lock()
	t.sealed = true
	t.mu.Unlock()
}

// Routes returns the registered routes in registration order.
func (t *Table) Routes() []Route {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Route, len(t.routes))
	for i, r := range t.routes {
		out[i] = *r
		out[i].Methods = append([]Method(nil), r.Methods...)
	}
	return out
}

// Reverse builds a path for the named route, substituting placeholders from
// params. Values are percent-escaped so they survive matching intact; a
// wildcard value keeps its slashes. Wildcards are filled from the wildcard's
// name, or "*" when unnamed.
func (t *Table) Reverse(name string, params map[string]string) (string, error) {
	t.mu.RLock()
	route, ok := t.named[name]
	t.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("reverse %q: %w", name, ErrRouteNotFound)
	}

	parts := make([]string, len(route.segments))
	for i, seg := range route.segments {
		if seg.kind == segLiteral {
			parts[i] = seg.value
			continue
		}
		v := params[seg.value]
		if v == "" {
			return "", &MissingParameterError{Route: name, Parameter: seg.value}
		}
		if seg.kind == segWildcard {
			segs := strings.Split(v, "/")
			for j, p := range segs {
				segs[j] = url.PathEscape(p)
			}
			parts[i] = strings.Join(segs, "/")
			continue
		}
		parts[i] = url.PathEscape(v)
	}
	return strings.Join(parts, "/"), nil
}

// lookup finds the route for method and path. Exact literal matches are
// preferred over pattern matches; within each group registration order
// decides. A path match with a method the route does not allow is skipped.
func (t *Table) lookup(m Method, path string) (*Route, map[string]string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, r := range t.routes {
		if r.literal && r.Pattern == path && r.Allows(m) {
			return r, nil
		}
	}
	for _, r := range t.routes {
		if r.literal || !r.Allows(m) {
			continue
		}
		if params, ok := r.match(path); ok {
			return r, params
		}
	}
	return nil, nil
}
