// Package callsite defines the identity and semantic neighborhood of a
// semantic invocation point: the call-site key, the resolved call site with
// its parameter and return types, and the deterministic code context that
// compilation derives intent from.
package callsite

import (
	"fmt"

	"github.com/sembly/semcall/pkg/artifact"
)

// Key identifies one semantic invocation point. (File, Line, Name) is unique
// within one loaded program version.
type Key struct {
	File  string `json:"file"`  // source file identity (absolute path)
	Line  int    `json:"line"`  // 1-based line number of the call expression
	Scope string `json:"scope"` // enclosing lexical scope, e.g. "(*Service).Handle"
	Name  string `json:"name"`  // invoked semantic name
}

// String renders the canonical "file:line:name" identity.
func (k Key) String() string {
	return fmt.Sprintf("%s:%d:%s", k.File, k.Line, k.Name)
}

// CallSite is a resolved semantic invocation point. It is constructed once
// the first time control reaches a distinct call expression and is immutable
// thereafter; cache entries reference it only through its fingerprint.
type CallSite struct {
	Key    Key                      `json:"key"`
	Params *artifact.ParamSpec      `json:"params"`
	Return *artifact.TypeDescriptor `json:"return"`
}

// String implements fmt.Stringer for log output.
func (cs *CallSite) String() string {
	return cs.Key.String()
}
