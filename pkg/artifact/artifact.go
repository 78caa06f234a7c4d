package artifact

import (
	"fmt"
)

// Artifact is the cached result of compiling one call site's code context
// into prompt templates. Artifacts are immutable once stored: compilation is
// never incremental, and a fingerprint is never reused for different content.
type Artifact struct {
	Fingerprint  Fingerprint     `json:"fingerprint"`            // owning fingerprint
	RoleContext  string          `json:"role_context"`           // role/context instruction template
	Task         string          `json:"task"`                   // task instruction template
	Guidelines   string          `json:"guidelines"`             // guideline/constraint template
	UserTemplate string          `json:"user_template"`          // user-facing template with placeholders
	OutputShape  *TypeDescriptor `json:"output_shape"`           // structural description of the return value
	Notes        string          `json:"notes,omitempty"`        // optional compiler notes
	CreatedAtMs  int64           `json:"created_at_ms"`          // Unix timestamp in milliseconds
	Dependencies []Fingerprint   `json:"dependencies,omitempty"` // fingerprints of the type definitions it depended on
}

// Validate checks structural integrity of the artifact: a well-formed owning
// fingerprint, well-formed dependency fingerprints, and every placeholder in
// the user template conforming to the reference protocol against spec.
// An artifact that fails validation must never be admitted to the cache.
func (a *Artifact) Validate(spec *ParamSpec) error {
	if err := a.Fingerprint.Validate(); err != nil {
		return fmt.Errorf("invalid artifact: %w", err)
	}
	for _, dep := range a.Dependencies {
		if err := dep.Validate(); err != nil {
			return fmt.Errorf("invalid artifact dependency: %w", err)
		}
	}
	if a.Task == "" {
		return fmt.Errorf("invalid artifact: task instruction template is empty")
	}
	if a.CreatedAtMs <= 0 {
		return fmt.Errorf("invalid artifact: created_at_ms must be positive")
	}
	if spec != nil {
		if _, err := ValidatePlaceholders(a.UserTemplate, spec); err != nil {
			return err
		}
	}
	return nil
}

// RenderedPrompt is the result of binding runtime argument values into an
// artifact's templates: a system prompt (role/task/guidelines/output format)
// and a user prompt. It is handed to the inference collaborator as-is.
type RenderedPrompt struct {
	System string `json:"system"`
	User   string `json:"user"`
}
