package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/user/mcp-server-template/engine"
	"github.com/user/mcp-server-template/router"
	"github.com/user/mcp-server-template/tools"
)

// FormatRoutes renders the route table, one route per line, in match order.
func FormatRoutes(w io.Writer, routes []router.Route) {
	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METHODS\tPATH\tNAME\tHANDLER")
	for _, r := range routes {
		methods := make([]string, len(r.Methods))
		for i, m := range r.Methods {
			methods[i] = m.String()
		}
		name := r.Name
		if name == "" {
			name = gray.Sprint("-")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", cyan.Sprint(strings.Join(methods, "|")), r.Pattern, name, handlerName(r.Handler))
	}
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", gray.Sprint("*"), gray.Sprint("*"), "fallback", "404")
	tw.Flush()
}

func handlerName(h router.Handler) string {
	switch v := h.(type) {
	case router.Action:
		return v.String()
	case *router.Action:
		return v.String()
	default:
		return fmt.Sprintf("%T", h)
	}
}

// FormatSessions renders the session index, most recent first.
func FormatSessions(w io.Writer, sessions []engine.SessionRecord, now time.Time) {
	if len(sessions) == 0 {
		color.New(color.FgYellow).Fprintln(w, "no sessions recorded")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tLAST SEEN\tREQUESTS")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s ago\t%d\n",
			s.ID,
			s.CreatedAt.Format("2006-01-02 15:04:05"),
			now.Sub(s.LastSeenAt).Truncate(time.Second),
			s.Requests)
	}
	tw.Flush()
}

// FormatCatalogue lists the tools and resources, marking which groups the
// configuration enables.
func FormatCatalogue(w io.Writer, entries []tools.Entry, enabled []string) {
	green := color.New(color.FgGreen)
	gray := color.New(color.FgHiBlack)

	on := make(map[string]bool, len(enabled))
	for _, g := range enabled {
		on[g] = true
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tKIND\tNAME\tENABLED")
	for _, e := range entries {
		name := e.Name
		if e.Kind == tools.KindResource {
			name = e.URI
		}
		state := gray.Sprint("no")
		if on[e.Group] || on["."] {
			state = green.Sprint("yes")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Group, e.Kind, name, state)
	}
	tw.Flush()
}
