// Package extract builds the deterministic code context around a resolved
// call site: the minimal enclosing lexical container's source text, the
// transitive closure of custom type definitions reachable from the parameter
// and return types, the comments attached to all of it, and any compilation
// directives found in reserved comment syntax.
//
// Extraction is a pure function of the source files on disk. It performs no
// I/O beyond reading source text and never depends on map iteration order:
// every set is sorted into canonical order before it reaches fingerprinting.
package extract

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sembly/semcall/pkg/artifact"
	"github.com/sembly/semcall/pkg/callsite"
)

// Extractor resolves code contexts. Additional source directories may be
// registered so type definitions outside the call site's own package can be
// located; a type that still cannot be found is recorded as unresolved
// rather than failing extraction.
type Extractor struct {
	extraDirs []string
}

// New creates an Extractor. extraDirs are searched, after the call site's
// own directory, when resolving custom type definition sources.
func New(extraDirs ...string) *Extractor {
	return &Extractor{extraDirs: extraDirs}
}

// Extract builds the code context for a call site. The parameter spec and
// return descriptor come from the dispatch layer's type-descriptor graph.
func (e *Extractor) Extract(key callsite.Key, params *artifact.ParamSpec, ret *artifact.TypeDescriptor) (*callsite.CodeContext, error) {
	src, err := os.ReadFile(key.File)
	if err != nil {
		return nil, fmt.Errorf("cannot read source of %s: %w", key, err)
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, key.File, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("cannot parse source of %s: %w", key, err)
	}

	container, kind := enclosingContainer(fset, file, key.Line)
	containerSrc, startLine := nodeSource(fset, src, container, file)
	callLine := key.Line - startLine + 1
	if callLine < 1 || !strings.Contains(lineAt(containerSrc, callLine), key.Name) {
		return nil, fmt.Errorf("call to %q not found at %s:%d", key.Name, key.File, key.Line)
	}

	cc := &callsite.CodeContext{
		Container:     containerSrc,
		ContainerKind: kind,
		CallLine:      callLine,
	}

	rawComments := containerComments(fset, file, container, key.File)

	// transitive closure of custom type definitions, breadth-first,
	// de-duplicated by type identity
	index, err := e.typeIndex(filepath.Dir(key.File))
	if err != nil {
		return nil, err
	}
	closure, typeComments, unresolved := collectClosure(params, ret, index)
	cc.Types = closure
	cc.Unresolved = unresolved
	rawComments = append(rawComments, typeComments...)

	// split reserved directive syntax out of the semantic comment set
	cc.Comments, cc.Directives = splitDirectives(rawComments)

	sort.Slice(cc.Types, func(i, j int) bool {
		if cc.Types[i].Name != cc.Types[j].Name {
			return cc.Types[i].Name < cc.Types[j].Name
		}
		return cc.Types[i].Identity < cc.Types[j].Identity
	})
	sort.Slice(cc.Comments, func(i, j int) bool {
		if cc.Comments[i].File != cc.Comments[j].File {
			return cc.Comments[i].File < cc.Comments[j].File
		}
		return cc.Comments[i].Offset < cc.Comments[j].Offset
	})
	sort.Slice(cc.Directives, func(i, j int) bool {
		if cc.Directives[i].File != cc.Directives[j].File {
			return cc.Directives[i].File < cc.Directives[j].File
		}
		return cc.Directives[i].Offset < cc.Directives[j].Offset
	})
	sort.Strings(cc.Unresolved)

	return cc, nil
}

// enclosingContainer finds the minimal lexical container for a line:
// smallest enclosing function, else enclosing type declaration, else the
// whole file.
func enclosingContainer(fset *token.FileSet, file *ast.File, line int) (ast.Node, callsite.ContainerKind) {
	var found ast.Node
	kind := callsite.ContainerFile

	for _, decl := range file.Decls {
		start := fset.Position(decl.Pos()).Line
		end := fset.Position(decl.End()).Line
		if line < start || line > end {
			continue
		}
		switch d := decl.(type) {
		case *ast.FuncDecl:
			// a call inside a func literal (goroutine body, closure)
			// belongs to that literal, not the whole declaration
			if lit := innermostFuncLit(fset, d, line); lit != nil {
				return lit, callsite.ContainerFunction
			}
			return d, callsite.ContainerFunction
		case *ast.GenDecl:
			if d.Tok == token.TYPE || d.Tok == token.VAR {
				found = d
				kind = callsite.ContainerType
			}
		}
	}

	if found != nil {
		return found, kind
	}
	return file, callsite.ContainerFile
}

// innermostFuncLit returns the smallest func literal inside decl whose span
// contains line, or nil when the line sits directly in the declaration.
// ast.Inspect visits outer literals before nested ones, so the last match
// is the innermost.
func innermostFuncLit(fset *token.FileSet, decl *ast.FuncDecl, line int) *ast.FuncLit {
	var innermost *ast.FuncLit
	ast.Inspect(decl, func(n ast.Node) bool {
		lit, ok := n.(*ast.FuncLit)
		if !ok {
			return true
		}
		start := fset.Position(lit.Pos()).Line
		end := fset.Position(lit.End()).Line
		if line < start || line > end {
			return false
		}
		innermost = lit
		return true
	})
	return innermost
}

// nodeSource returns the exact source text of a node and its 1-based start
// line. For whole-file containers the full file text is returned.
func nodeSource(fset *token.FileSet, src []byte, node ast.Node, file *ast.File) (string, int) {
	if node == file {
		return string(src), 1
	}
	start := fset.Position(node.Pos())
	end := fset.Position(node.End())
	return string(src[start.Offset:end.Offset]), start.Line
}

// containerComments collects every comment group lexically attached to the
// container: its doc comment plus all groups whose span falls inside it
// (which covers the call line's own comments).
func containerComments(fset *token.FileSet, file *ast.File, container ast.Node, filename string) []callsite.Comment {
	var comments []callsite.Comment

	add := func(group *ast.CommentGroup) {
		if group == nil {
			return
		}
		text := strings.TrimRight(group.Text(), "\n")
		if text == "" {
			return
		}
		comments = append(comments, callsite.Comment{
			Text:   text,
			File:   filename,
			Offset: fset.Position(group.Pos()).Offset,
		})
	}

	switch c := container.(type) {
	case *ast.FuncDecl:
		add(c.Doc)
	case *ast.GenDecl:
		add(c.Doc)
	case *ast.File:
		add(c.Doc)
	}

	start, end := container.Pos(), container.End()
	for _, group := range file.Comments {
		if group.Pos() >= start && group.End() <= end {
			add(group)
		}
	}
	return comments
}

func lineAt(s string, line int) string {
	lines := strings.Split(s, "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	return lines[line-1]
}
