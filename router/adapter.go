package router

import (
	"fmt"
	"reflect"
	"sync"
)

// Handler is the target a route invokes: a zero-argument func, a
// zero-argument func returning error, or an Action.
type Handler any

// Action names a controller bound in the Container and one of its exported
// zero-argument methods.
type Action struct {
	Controller string
	Method     string
}

func (a Action) String() string { return a.Controller + "@" + a.Method }

// Provider builds a value on demand. It receives the container doing the
// resolution so request-scoped values are visible to it.
type Provider func(c *Container) (any, error)

type binding struct {
	provider  Provider
	singleton bool
}

// Container resolves controllers and shared services by name. One is built
// per process; Scope derives a child for each request so request-bound
// values never leak into the parent.
type Container struct {
	parent    *Container
	mu        sync.Mutex
	bindings  map[string]binding
	instances map[string]any
}

// NewContainer returns an empty root container.
func NewContainer() *Container {
	return &Container{
		bindings:  make(map[string]binding),
		instances: make(map[string]any),
	}
}

// Scope returns a child container. Lookups that miss in the child fall
// through to its parents.
func (c *Container) Scope() *Container {
	child := NewContainer()
	child.parent = c
	return child
}

// Bind registers a provider that runs on every Resolve.
func (c *Container) Bind(name string, p Provider) {
	c.mu.Lock()
	c.bindings[name] = binding{provider: p}
	delete(c.instances, name)
	c.mu.Unlock()
}

// Singleton registers a provider whose first result is cached in the
// container that owns the binding.
func (c *Container) Singleton(name string, p Provider) {
	c.mu.Lock()
	c.bindings[name] = binding{provider: p, singleton: true}
	delete(c.instances, name)
	c.mu.Unlock()
}

// Instance stores a ready-made value.
func (c *Container) Instance(name string, v any) {
	c.mu.Lock()
	c.instances[name] = v
	c.mu.Unlock()
}

// Resolve returns the value bound to name. Providers run against c, so a
// provider bound on the root still sees values placed in a request scope.
func (c *Container) Resolve(name string) (any, error) {
	return c.resolveFrom(name, c)
}

func (c *Container) resolveFrom(name string, origin *Container) (any, error) {
	c.mu.Lock()
	if v, ok := c.instances[name]; ok {
		c.mu.Unlock()
		return v, nil
	}
	b, ok := c.bindings[name]
	c.mu.Unlock()

	if !ok {
		if c.parent != nil {
			return c.parent.resolveFrom(name, origin)
		}
		return nil, fmt.Errorf("resolve %q: %w", name, ErrUnresolvable)
	}

	v, err := b.provider(origin)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", name, err)
	}
	if b.singleton {
		c.mu.Lock()
		if existing, ok := c.instances[name]; ok {
			v = existing
		} else {
			c.instances[name] = v
		}
		c.mu.Unlock()
	}
	return v, nil
}

// MustResolve is Resolve for values whose absence is a wiring bug.
func MustResolve[T any](c *Container, name string) T {
	v, err := c.Resolve(name)
	if err != nil {
		panic(err)
	}
	t, ok := v.(T)
	if !ok {
		panic(fmt.Sprintf("resolve %q: got %T", name, v))
	}
	return t
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Invoke calls h with no arguments. Return values other than a trailing
// error are ignored; a panic inside the handler comes back as *PanicError.
func Invoke(h Handler, c *Container) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &PanicError{Value: rec}
		}
	}()

	switch fn := h.(type) {
	case func():
		fn()
		return nil
	case func() error:
		return fn()
	case Action:
		return invokeAction(fn, c)
	case *Action:
		if fn == nil {
			return ErrUnsupportedHandler
		}
		return invokeAction(*fn, c)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedHandler, h)
	}
}

func invokeAction(a Action, c *Container) error {
	if c == nil {
		return fmt.Errorf("invoke %s: %w", a, ErrUnresolvable)
	}
	target, err := c.Resolve(a.Controller)
	if err != nil {
		return fmt.Errorf("invoke %s: %w", a, err)
	}

	method := reflect.ValueOf(target).MethodByName(a.Method)
	if !method.IsValid() || method.Type().NumIn() != 0 {
		return fmt.Errorf("invoke %s: %w", a, ErrNoSuchMethod)
	}

	out := method.Call(nil)
	if n := len(out); n > 0 && method.Type().Out(n-1) == errorType {
		if e, _ := out[n-1].Interface().(error); e != nil {
			return e
		}
	}
	return nil
}
