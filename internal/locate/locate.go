// Package locate resolves the exact source position of a semantic call at
// runtime. It derives a stable identity (file, line, enclosing scope) that is
// reproducible across repeated executions and across separate processes
// reading the same source.
package locate

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/sembly/semcall/pkg/callsite"
)

// Callsite resolves the invocation point skip frames above the caller.
// skip follows runtime.Caller semantics: 0 is the caller of Callsite itself.
// The invoked semantic name is supplied by the dispatch layer, not derived
// from the stack.
//
// Fails when the call occurs in a context with no discoverable source
// position (synthesized or assembly frames). That failure is fatal for the
// call and is never retried.
func Callsite(skip int, name string) (callsite.Key, error) {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return callsite.Key{}, fmt.Errorf("no caller information available for semantic call %q", name)
	}
	if file == "" || line <= 0 || strings.HasPrefix(file, "<") {
		return callsite.Key{}, fmt.Errorf("semantic call %q has no discoverable source position (file %q, line %d)", name, file, line)
	}

	return callsite.Key{
		File:  file,
		Line:  line,
		Scope: scopeName(pc),
		Name:  name,
	}, nil
}

// scopeName reduces a fully qualified function name like
// "github.com/acme/app/svc.(*Handler).Process" to "(*Handler).Process".
func scopeName(pc uintptr) string {
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return ""
	}
	full := fn.Name()
	if i := strings.LastIndex(full, "/"); i >= 0 {
		full = full[i+1:]
	}
	// strip the package qualifier, keep receiver and method
	if i := strings.Index(full, "."); i >= 0 {
		return full[i+1:]
	}
	return full
}
