// Package semcall resolves semantic calls: method invocations whose
// behavior is specified by the surrounding source code instead of an
// implementation. The first call at a given call site compiles the code
// context into a prompt artifact; subsequent calls reuse the cached
// artifact so only the runtime model is invoked.
//
// Usage:
//
//	report, err := semcall.Do[FeedbackReport](ctx, eng, "analyze_feedback",
//		semcall.Kw("feedback", fb))
package semcall

import (
	"context"
	"reflect"

	"github.com/sembly/semcall/internal/extract"
	"github.com/sembly/semcall/internal/locate"
	"github.com/sembly/semcall/internal/marshal"
	"github.com/sembly/semcall/internal/render"
	"github.com/sembly/semcall/pkg/artifact"
)

// Arg is a keyword argument to a semantic call. Plain values passed to Do
// are positional; values wrapped with Kw bind to named template
// placeholders.
type Arg struct {
	keyword string
	value   interface{}
}

// Kw names an argument so the compiled template can reference it as
// {{name}}.
func Kw(name string, value interface{}) Arg {
	return Arg{keyword: name, value: value}
}

// Do resolves and executes the semantic call named name at the caller's
// position, returning the model's answer converted to T. The call site is
// identified by the caller's file and line, so Do must be invoked directly
// from the semantic call site, not through a helper.
func Do[T any](ctx context.Context, e *Engine, name string, args ...interface{}) (T, error) {
	var zero T

	key, err := locate.Callsite(1, name)
	if err != nil {
		return zero, &LocationError{Name: name, Err: err}
	}

	spec, bindings := splitArgs(args)
	ret := extract.DescribeType(reflect.TypeOf((*T)(nil)).Elem())

	raw, err := e.dispatch(ctx, key, spec, bindings, ret)
	if err != nil {
		return zero, err
	}

	var out T
	if err := marshal.Into(raw, &out); err != nil {
		return zero, &MarshalError{Site: key.String(), Raw: raw, Err: err}
	}
	return out, nil
}

// splitArgs separates positional values from keyword arguments and builds
// the matching parameter spec and render bindings.
func splitArgs(args []interface{}) (*artifact.ParamSpec, *render.Bindings) {
	spec := &artifact.ParamSpec{Keyword: map[string]*artifact.TypeDescriptor{}}
	b := &render.Bindings{Keyword: map[string]interface{}{}}

	for _, arg := range args {
		if kw, ok := arg.(Arg); ok && kw.keyword != "" {
			spec.Keyword[kw.keyword] = extract.DescribeValue(kw.value)
			b.Keyword[kw.keyword] = kw.value
			continue
		}
		spec.Positional = append(spec.Positional, extract.DescribeValue(arg))
		b.Positional = append(b.Positional, arg)
	}
	return spec, b
}
