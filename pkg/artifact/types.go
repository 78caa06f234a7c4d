// Package artifact provides the shared data model for the semcall compilation
// cache: fingerprints, type descriptors, parameter specs, and the compiled
// prompt artifact itself. Every semcall component (engine, cache, renderer,
// CLI) interacts through these well-defined structures.
//
// All cache entries are keyed by fingerprint, so a given artifact is immutable
// once created: a changed code context produces a wholly new artifact under a
// new fingerprint, never a patched one.
package artifact

import (
	"fmt"
	"regexp"
)

// Fingerprint is the content hash of a canonicalized code context, used as a
// cache key and invalidation signal. It is a lowercase hex SHA-256 digest.
type Fingerprint string

var fingerprintPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Validate checks that the fingerprint is a well-formed SHA-256 hex digest.
func (f Fingerprint) Validate() error {
	if !fingerprintPattern.MatchString(string(f)) {
		return fmt.Errorf("fingerprint must be a 64-character lowercase hex digest, got %q", string(f))
	}
	return nil
}

// Short returns the first 10 characters of the fingerprint for display.
func (f Fingerprint) Short() string {
	if len(f) < 10 {
		return string(f)
	}
	return string(f[:10])
}

// Kind classifies a type descriptor node.
type Kind string

const (
	// KindString represents Go string types
	KindString Kind = "string"

	// KindInt represents all Go integer types, signed and unsigned
	KindInt Kind = "integer"

	// KindFloat represents float32 and float64
	KindFloat Kind = "number"

	// KindBool represents bool
	KindBool Kind = "boolean"

	// KindSlice represents slices and arrays (ordered collections)
	KindSlice Kind = "array"

	// KindMap represents maps (unordered collections)
	KindMap Kind = "map"

	// KindStruct represents named or anonymous struct types
	KindStruct Kind = "object"

	// KindPointer represents pointer types; the target is in Elem
	KindPointer Kind = "pointer"

	// KindAny represents interface{} / any
	KindAny Kind = "any"

	// KindUnknown marks a type that could not be resolved statically.
	// Extraction records it rather than failing; the gap is surfaced to the
	// compiler through compilation notes.
	KindUnknown Kind = "unknown"
)

// TypeDescriptor is a structural description of a parameter or return type:
// a node in the type-descriptor graph built once per distinct type set.
// For named types, Name and PkgPath identify the definition whose source text
// appears in the code context's type closure.
type TypeDescriptor struct {
	Kind    Kind              `json:"kind"`
	Name    string            `json:"name,omitempty"`     // named type, e.g. "CustomerFeedback"
	PkgPath string            `json:"pkg_path,omitempty"` // import path of the defining package
	Key     *TypeDescriptor   `json:"key,omitempty"`      // map key type
	Elem    *TypeDescriptor   `json:"elem,omitempty"`     // slice element, map value, or pointer target
	Fields  []FieldDescriptor `json:"fields,omitempty"`   // struct fields in declaration order
}

// FieldDescriptor describes one struct field. JSONName carries the json tag
// name when present, so placeholder dot-chains can reference either spelling.
type FieldDescriptor struct {
	Name     string          `json:"name"`
	JSONName string          `json:"json_name,omitempty"`
	Type     *TypeDescriptor `json:"type"`
}

// Identity returns the de-duplication key for a named type: "pkgpath.Name".
// Unnamed types have no identity and return "".
func (d *TypeDescriptor) Identity() string {
	if d == nil || d.Name == "" {
		return ""
	}
	if d.PkgPath == "" {
		return d.Name
	}
	return d.PkgPath + "." + d.Name
}

// FieldNamed resolves a field by Go name or json tag name, dereferencing
// pointers first. Returns nil if the descriptor is not a struct or the field
// does not exist.
func (d *TypeDescriptor) FieldNamed(name string) *TypeDescriptor {
	base := d.deref()
	if base == nil || base.Kind != KindStruct {
		return nil
	}
	for i := range base.Fields {
		f := &base.Fields[i]
		if f.Name == name || (f.JSONName != "" && f.JSONName == name) {
			return f.Type
		}
	}
	return nil
}

func (d *TypeDescriptor) deref() *TypeDescriptor {
	for d != nil && d.Kind == KindPointer {
		d = d.Elem
	}
	return d
}

// String renders a compact human-readable form of the descriptor, used in
// compile-task documents and CLI output.
func (d *TypeDescriptor) String() string {
	if d == nil {
		return "<nil>"
	}
	switch d.Kind {
	case KindSlice:
		return "[]" + d.Elem.String()
	case KindMap:
		return fmt.Sprintf("map[%s]%s", d.Key.String(), d.Elem.String())
	case KindPointer:
		return "*" + d.Elem.String()
	case KindStruct:
		if d.Name != "" {
			return d.Name
		}
		return "struct"
	case KindUnknown:
		if d.Name != "" {
			return d.Name + "?"
		}
		return "unknown"
	default:
		if d.Name != "" {
			return d.Name
		}
		return string(d.Kind)
	}
}

// ParamSpec describes the declared parameters of a call site: an ordered list
// of positional parameter types plus a keyword-name to type mapping.
type ParamSpec struct {
	Positional []*TypeDescriptor          `json:"positional"`
	Keyword    map[string]*TypeDescriptor `json:"keyword"`
}

// KeywordNames returns the keyword parameter names. Order is unspecified;
// callers that need determinism must sort.
func (p *ParamSpec) KeywordNames() []string {
	names := make([]string, 0, len(p.Keyword))
	for name := range p.Keyword {
		names = append(names, name)
	}
	return names
}
