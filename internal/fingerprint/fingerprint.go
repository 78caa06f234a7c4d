// Package fingerprint reduces a code context to a stable, order-independent
// cache key. There is no separate diffing step anywhere in semcall: a single
// character change in any component of the dependency closure changes the
// fingerprint and forces recompilation, and reverting the change restores
// the original fingerprint.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"

	"github.com/sembly/semcall/pkg/artifact"
	"github.com/sembly/semcall/pkg/callsite"
)

// field separators keep adjacent components from colliding ("ab"+"c" vs
// "a"+"bc") and tag each section of the canonical concatenation.
const (
	sectionContainer = "\x00container\x00"
	sectionType      = "\x00type\x00"
	sectionComment   = "\x00comment\x00"
	sectionDirective = "\x00directive\x00"
)

// Context hashes the canonicalized code context: container text, type
// definitions sorted by name, comments sorted by source position, directives
// sorted by source position. Two contexts that are textually identical after
// canonicalization always yield the same fingerprint.
func Context(cc *callsite.CodeContext) artifact.Fingerprint {
	h := sha256.New()

	io.WriteString(h, sectionContainer)
	io.WriteString(h, cc.Container)

	types := make([]callsite.TypeDefinition, len(cc.Types))
	copy(types, cc.Types)
	sort.Slice(types, func(i, j int) bool {
		if types[i].Name != types[j].Name {
			return types[i].Name < types[j].Name
		}
		return types[i].Identity < types[j].Identity
	})
	for _, td := range types {
		io.WriteString(h, sectionType)
		io.WriteString(h, td.Source)
	}

	comments := make([]callsite.Comment, len(cc.Comments))
	copy(comments, cc.Comments)
	sort.Slice(comments, func(i, j int) bool {
		if comments[i].File != comments[j].File {
			return comments[i].File < comments[j].File
		}
		return comments[i].Offset < comments[j].Offset
	})
	for _, c := range comments {
		io.WriteString(h, sectionComment)
		io.WriteString(h, c.Text)
	}

	directives := make([]callsite.Directive, len(cc.Directives))
	copy(directives, cc.Directives)
	sort.Slice(directives, func(i, j int) bool {
		if directives[i].File != directives[j].File {
			return directives[i].File < directives[j].File
		}
		return directives[i].Offset < directives[j].Offset
	})
	for _, d := range directives {
		io.WriteString(h, sectionDirective)
		io.WriteString(h, d.Text)
	}

	return artifact.Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// TypeDefinition hashes one type definition's source text. The cache stores
// these per artifact as its dependency fingerprint set, supporting
// observability of what a compilation depended on.
func TypeDefinition(td callsite.TypeDefinition) artifact.Fingerprint {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s%s%s", sectionType, td.Identity, td.Source)))
	return artifact.Fingerprint(hex.EncodeToString(h[:]))
}
