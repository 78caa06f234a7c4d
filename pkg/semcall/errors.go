package semcall

import "fmt"

// LocationError means the runtime position of a semantic call could not be
// established. Nothing was sent to any model.
type LocationError struct {
	Name string // invoked method name
	Err  error
}

func (e *LocationError) Error() string {
	return fmt.Sprintf("failed to locate semantic call %q: %v", e.Name, e.Err)
}

func (e *LocationError) Unwrap() error { return e.Err }

// ExtractionError means the source context around a located call site could
// not be read or parsed.
type ExtractionError struct {
	Site string // "file:line:name"
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract code context for %s: %v", e.Site, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// CompileError means the compiler collaborator failed or produced an
// artifact that did not pass admission. The failure is not cached; the next
// call for the same fingerprint compiles again.
type CompileError struct {
	Site string
	Err  error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compilation failed for %s: %v", e.Site, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// RenderError means a cached artifact could not be rendered against the
// supplied arguments.
type RenderError struct {
	Site string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("failed to render prompt for %s: %v", e.Site, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// InferenceError means the runtime model call failed.
type InferenceError struct {
	Site string
	Err  error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed for %s: %v", e.Site, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// MarshalError means the runtime model answered but its output could not be
// converted to the declared return type.
type MarshalError struct {
	Site string
	Raw  string // model output that failed to convert
	Err  error
}

func (e *MarshalError) Error() string {
	return fmt.Sprintf("failed to convert model output for %s: %v", e.Site, e.Err)
}

func (e *MarshalError) Unwrap() error { return e.Err }
