package router

import (
	"errors"
	"fmt"
)

var (
	ErrNoMethods          = errors.New("route must allow at least one method")
	ErrDuplicateName      = errors.New("route name already registered")
	ErrSealed             = errors.New("route table is sealed")
	ErrRouteNotFound      = errors.New("route not found")
	ErrMissingParameter   = errors.New("missing route parameter")
	ErrNoFallback         = errors.New("no fallback handler configured")
	ErrUnsupportedHandler = errors.New("unsupported handler type")
	ErrUnresolvable       = errors.New("no provider bound")
	ErrNoSuchMethod       = errors.New("controller has no such method")
)

// MissingParameterError reports which placeholder Reverse could not fill.
type MissingParameterError struct {
	Route     string
	Parameter string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("route %q: missing parameter %q", e.Route, e.Parameter)
}

func (e *MissingParameterError) Unwrap() error { return ErrMissingParameter }

// PanicError carries a value recovered from a panicking handler.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	if err, ok := e.Value.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(e.Value)
}
