package tools

import (
	"fmt"
	"sort"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Kind distinguishes catalogue entries.
type Kind string

const (
	KindTool     Kind = "tool"
	KindResource Kind = "resource"
)

// Entry describes one registered tool or resource.
type Entry struct {
	Kind        Kind   `json:"kind"`
	Group       string `json:"group"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	URI         string `json:"uri,omitempty"`

	apply func(*mcp.Server)
}

// Catalogue holds the tools and resources the server can expose, grouped by
// the discovery directory that selects them. Names are unique across
// groups so enabling any combination never collides.
type Catalogue struct {
	mu        sync.RWMutex
	entries   []*Entry
	tools     map[string]*Entry
	resources map[string]*Entry
}

// NewCatalogue creates an empty catalogue.
func NewCatalogue() *Catalogue {
	return &Catalogue{
		tools:     make(map[string]*Entry),
		resources: make(map[string]*Entry),
	}
}

// AddTool registers a typed tool under group.
func AddTool[In, Out any](c *Catalogue, group string, tool *mcp.Tool, handler mcp.ToolHandlerFor[In, Out]) error {
	return c.add(&Entry{
		Kind:        KindTool,
		Group:       group,
		Name:        tool.Name,
		Description: tool.Description,
		apply: func(s *mcp.Server) {
			mcp.AddTool(s, tool, handler)
		},
	})
}

// AddResource registers a static resource under group.
func (c *Catalogue) AddResource(group string, resource *mcp.Resource, handler mcp.ResourceHandler) error {
	return c.add(&Entry{
		Kind:        KindResource,
		Group:       group,
		Name:        resource.Name,
		Description: resource.Description,
		URI:         resource.URI,
		apply: func(s *mcp.Server) {
			s.AddResource(resource, handler)
		},
	})
}

func (c *Catalogue) add(e *Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e.Group == "" {
		return fmt.Errorf("%s %q has no group", e.Kind, e.Name)
	}

	index, key := c.tools, e.Name
	if e.Kind == KindResource {
		index, key = c.resources, e.URI
	}
	if key == "" {
		return fmt.Errorf("%s in group %s has no identifier", e.Kind, e.Group)
	}
	if existing, exists := index[key]; exists {
		return fmt.Errorf("%s name collision: %s already registered by group %s", e.Kind, key, existing.Group)
	}

	index[key] = e
	c.entries = append(c.entries, e)
	return nil
}

// Apply registers every entry whose group is selected. A "." group selects
// everything. Selecting a group that has no entries is an error so a typo
// in the configuration does not silently expose nothing.
func (c *Catalogue) Apply(server *mcp.Server, groups []string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	selected := make(map[string]bool, len(groups))
	all := false
	for _, g := range groups {
		if g == "." {
			all = true
			continue
		}
		selected[g] = false
	}

	for _, e := range c.entries {
		if _, ok := selected[e.Group]; ok || all {
			e.apply(server)
			if ok {
				selected[e.Group] = true
			}
		}
	}

	for g, used := range selected {
		if !used {
			return fmt.Errorf("discovery directory %q has no tools or resources", g)
		}
	}
	return nil
}

// List returns the entries sorted by group, kind and name.
func (c *Catalogue) List() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		if out[i].Kind != out[j].Kind {
			return out[i].Kind > out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Groups returns the distinct group names, sorted.
func (c *Catalogue) Groups() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, e := range c.entries {
		if _, ok := seen[e.Group]; !ok {
			seen[e.Group] = struct{}{}
			out = append(out, e.Group)
		}
	}
	sort.Strings(out)
	return out
}

// Count returns the number of registered entries.
func (c *Catalogue) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
