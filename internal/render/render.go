// Package render binds runtime argument values into a cached artifact's
// placeholder templates. Rendering is a pure function of artifact plus
// bindings: no I/O, no mutation, no clock.
//
// Placeholders were already validated against the call site's parameter spec
// when the artifact was admitted to the cache; render-time failures are
// limited to bindings that do not supply a value a validated placeholder
// requires.
package render

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/sembly/semcall/pkg/artifact"
)

// Bindings carries the runtime argument values for one invocation.
type Bindings struct {
	Positional []interface{}
	Keyword    map[string]interface{}
}

// Prompt renders the artifact into a system and user prompt pair. spec is
// the owning call site's parameter spec, used to re-derive the validated
// placeholder set.
func Prompt(a *artifact.Artifact, spec *artifact.ParamSpec, b *Bindings) (artifact.RenderedPrompt, error) {
	placeholders, err := artifact.ValidatePlaceholders(a.UserTemplate, spec)
	if err != nil {
		// admission validation guarantees this cannot happen for cached
		// artifacts; surfacing it keeps a corrupted store observable
		return artifact.RenderedPrompt{}, fmt.Errorf("artifact %s failed placeholder validation: %w", a.Fingerprint.Short(), err)
	}

	user := a.UserTemplate
	for _, ph := range placeholders {
		value, err := resolveBinding(ph, b)
		if err != nil {
			return artifact.RenderedPrompt{}, err
		}
		user = strings.ReplaceAll(user, ph.Raw, formatValue(value, 0))
	}

	system, err := systemPrompt(a)
	if err != nil {
		return artifact.RenderedPrompt{}, err
	}

	return artifact.RenderedPrompt{
		System: system,
		User:   strings.TrimSpace(user),
	}, nil
}

// resolveBinding walks a validated placeholder's reference into the runtime
// bindings. A missing root value or a nil link in the field chain is a
// render failure for this invocation only.
func resolveBinding(ph artifact.Placeholder, b *Bindings) (interface{}, error) {
	var root interface{}
	if ph.Position >= 0 {
		if b == nil || ph.Position >= len(b.Positional) {
			return nil, fmt.Errorf("no value bound for positional parameter arg%d required by placeholder %s", ph.Position, ph.Raw)
		}
		root = b.Positional[ph.Position]
	} else {
		value, ok := interface{}(nil), false
		if b != nil {
			value, ok = b.Keyword[ph.Keyword]
		}
		if !ok {
			return nil, fmt.Errorf("no value bound for keyword parameter %q required by placeholder %s", ph.Keyword, ph.Raw)
		}
		root = value
	}

	value := reflect.ValueOf(root)
	for _, field := range ph.Chain {
		value = deref(value)
		if !value.IsValid() {
			return nil, fmt.Errorf("placeholder %s dereferences a nil value at field %q", ph.Raw, field)
		}
		if value.Kind() != reflect.Struct {
			return nil, fmt.Errorf("placeholder %s accesses field %q on non-struct value", ph.Raw, field)
		}
		next, ok := fieldByNameOrTag(value, field)
		if !ok {
			return nil, fmt.Errorf("placeholder %s references missing field %q", ph.Raw, field)
		}
		value = next
	}
	if !value.IsValid() {
		return nil, fmt.Errorf("placeholder %s resolved to no value", ph.Raw)
	}
	return value.Interface(), nil
}

func deref(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func fieldByNameOrTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if f.Name == name {
			return v.Field(i), true
		}
		if tag, ok := f.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == name {
				return v.Field(i), true
			}
		}
	}
	return reflect.Value{}, false
}
