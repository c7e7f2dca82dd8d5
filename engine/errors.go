package engine

import (
	"errors"
	"fmt"
)

var (
	ErrNoServerInfo     = errors.New("engine: server name and version are required")
	ErrNoCatalogue      = errors.New("engine: discovery catalogue is required")
	ErrDirOutsideRoot   = errors.New("engine: discovery directory escapes the discovery root")
	ErrNoRequest        = errors.New("engine: http transport has no request")
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidSessionID = errors.New("session id contains invalid characters")
)

// DirectoryError reports a session directory that could not be created.
type DirectoryError struct {
	Path string
	Err  error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("Directory %q was not created", e.Path)
}

func (e *DirectoryError) Unwrap() error { return e.Err }
