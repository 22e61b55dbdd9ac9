package renderer

import "fmt"

// ConfigurationError reports invalid service options. It is returned by New
// before any engine is built.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

func newConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// RenderSurfaceError reports a render that produced a chart without a drawing
// surface. It fails that render only.
type RenderSurfaceError struct {
	Err error
}

func (e *RenderSurfaceError) Error() string {
	if e.Err == nil {
		return "Canvas is null"
	}
	return fmt.Sprintf("Canvas is null: %v", e.Err)
}

func (e *RenderSurfaceError) Unwrap() error {
	return e.Err
}
