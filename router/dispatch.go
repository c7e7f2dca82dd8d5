package router

import "fmt"

// Match returns the route that would handle rc, without invoking it.
func Match(rc RequestContext, table *Table) (*Route, bool) {
	route, _ := table.lookup(rc.Method, rc.Path())
	return route, route != nil
}

// Params returns the placeholder values captured for rc, or nil when no
// route matches.
func Params(rc RequestContext, table *Table) map[string]string {
	_, params := table.lookup(rc.Method, rc.Path())
	return params
}

// Dispatch seals the table, selects the route for rc and invokes its
// handler through the adapter. When nothing matches the fallback runs and
// the returned route is nil. Dispatch itself never touches the response;
// the selected handler owns all output.
func Dispatch(rc RequestContext, table *Table, c *Container) (*Route, error) {
	table.Seal()

	route, _ := table.lookup(rc.Method, rc.Path())
	if route != nil {
		return route, Invoke(route.Handler, c)
	}

	fallback := table.Fallback()
	if fallback == nil {
		return nil, fmt.Errorf("dispatch %s %s: %w", rc.Method, rc.Path(), ErrNoFallback)
	}
	return nil, Invoke(fallback, c)
}
