package artifact

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Placeholder reference protocol
//
// A placeholder is a {{...}} token in the user-facing template. The only
// legal forms are:
//
//	{{arg0}}                positional parameter by 0-indexed position
//	{{feedback}}            keyword parameter by name
//	{{feedback.customer_id}} dot-access through statically known struct fields
//
// Index/subscript access, method calls, arithmetic, and conditional syntax
// are compile-time defects: an artifact containing them is rejected before it
// is admitted to the cache, never at render time.

var (
	placeholderPattern = regexp.MustCompile(`\{\{[^{}]*\}\}`)
	identPattern       = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	positionalPattern  = regexp.MustCompile(`^arg(\d+)$`)
)

// Placeholder is one validated reference in a user-facing template.
type Placeholder struct {
	Raw      string   // the full token, braces included
	Path     string   // the trimmed inner reference, e.g. "feedback.customer_id"
	Position int      // positional index, or -1 for keyword references
	Keyword  string   // keyword parameter name, or "" for positional references
	Chain    []string // dot-access chain after the root, possibly empty
	Leaf     *TypeDescriptor
}

// ValidatePlaceholders checks every placeholder in template against the call
// site's parameter spec and returns the validated references. Any violation
// of the reference protocol is an error; the caller treats it as a
// compilation defect.
func ValidatePlaceholders(template string, spec *ParamSpec) ([]Placeholder, error) {
	tokens := placeholderPattern.FindAllString(template, -1)
	placeholders := make([]Placeholder, 0, len(tokens))
	seen := make(map[string]bool)

	for _, raw := range tokens {
		if seen[raw] {
			continue
		}
		seen[raw] = true

		path := strings.TrimSpace(raw[2 : len(raw)-2])
		if path == "" {
			return nil, fmt.Errorf("placeholder %q is empty", raw)
		}

		parts := strings.Split(path, ".")
		for _, part := range parts {
			if !identPattern.MatchString(part) {
				return nil, fmt.Errorf("placeholder %q violates the reference protocol: segment %q is not a plain identifier (index, call, and expression syntax are not allowed)", raw, part)
			}
		}

		ph := Placeholder{Raw: raw, Path: path, Position: -1, Chain: parts[1:]}

		var root *TypeDescriptor
		if m := positionalPattern.FindStringSubmatch(parts[0]); m != nil {
			idx, err := strconv.Atoi(m[1])
			if err != nil || idx >= len(spec.Positional) {
				return nil, fmt.Errorf("placeholder %q references positional parameter %s, but only %d positional parameters are declared", raw, parts[0], len(spec.Positional))
			}
			ph.Position = idx
			root = spec.Positional[idx]
		} else {
			td, ok := spec.Keyword[parts[0]]
			if !ok {
				return nil, fmt.Errorf("placeholder %q references undeclared keyword parameter %q", raw, parts[0])
			}
			ph.Keyword = parts[0]
			root = td
		}

		leaf, err := resolveChain(root, parts[1:], raw)
		if err != nil {
			return nil, err
		}
		ph.Leaf = leaf
		placeholders = append(placeholders, ph)
	}

	return placeholders, nil
}

// resolveChain walks a dot-access chain through the statically known field
// graph. Unknown types terminate resolution permissively: the extractor
// already recorded the gap, and rejecting the artifact here would turn a
// best-effort warning into a hard failure.
func resolveChain(root *TypeDescriptor, chain []string, raw string) (*TypeDescriptor, error) {
	current := root
	for _, field := range chain {
		base := current.deref()
		if base == nil {
			return nil, fmt.Errorf("placeholder %q dereferences through an untyped value", raw)
		}
		if base.Kind == KindUnknown || base.Kind == KindAny {
			return base, nil
		}
		if base.Kind != KindStruct {
			return nil, fmt.Errorf("placeholder %q accesses field %q on non-struct type %s", raw, field, base.String())
		}
		next := current.FieldNamed(field)
		if next == nil {
			return nil, fmt.Errorf("placeholder %q references unknown field %q on type %s", raw, field, base.String())
		}
		current = next
	}
	return current, nil
}
