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

// typeDecl is one custom type definition located in source.
type typeDecl struct {
	name    string
	pkgName string
	file    string
	offset  int
	source  string             // exact declaration text
	doc     []callsite.Comment // doc comment plus comments inside the declaration
}

// typeIndex parses every .go file in the call site's directory and the
// registered extra directories and indexes type declarations by name.
// Files are visited in sorted order so the index is deterministic.
func (e *Extractor) typeIndex(callDir string) (map[string][]typeDecl, error) {
	dirs := append([]string{callDir}, e.extraDirs...)
	index := make(map[string][]typeDecl)

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("cannot read source directory %s: %w", dir, err)
		}
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".go") {
				names = append(names, entry.Name())
			}
		}
		sort.Strings(names)

		for _, name := range names {
			path := filepath.Join(dir, name)
			src, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("cannot read source file %s: %w", path, err)
			}
			fset := token.NewFileSet()
			file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
			if err != nil {
				// a malformed sibling file must not fail extraction for
				// call sites that do not depend on it
				continue
			}
			indexFile(index, fset, file, src, path)
		}
	}
	return index, nil
}

func indexFile(index map[string][]typeDecl, fset *token.FileSet, file *ast.File, src []byte, path string) {
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, spec := range gen.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}

			var source string
			var offset int
			if len(gen.Specs) == 1 {
				start := fset.Position(gen.Pos())
				end := fset.Position(gen.End())
				source = string(src[start.Offset:end.Offset])
				offset = start.Offset
			} else {
				start := fset.Position(ts.Pos())
				end := fset.Position(ts.End())
				source = "type " + string(src[start.Offset:end.Offset])
				offset = start.Offset
			}

			var docs []callsite.Comment
			addDoc := func(group *ast.CommentGroup) {
				if group == nil {
					return
				}
				text := strings.TrimRight(group.Text(), "\n")
				if text == "" {
					return
				}
				docs = append(docs, callsite.Comment{
					Text:   text,
					File:   path,
					Offset: fset.Position(group.Pos()).Offset,
				})
			}
			if len(gen.Specs) == 1 {
				addDoc(gen.Doc)
			}
			addDoc(ts.Doc)
			addDoc(ts.Comment)

			index[ts.Name.Name] = append(index[ts.Name.Name], typeDecl{
				name:    ts.Name.Name,
				pkgName: file.Name.Name,
				file:    path,
				offset:  offset,
				source:  source,
				doc:     docs,
			})
		}
	}
}

// collectClosure walks the descriptor graph of the parameter and return
// types breadth-first, de-duplicated by type identity with a cycle guard,
// and resolves each named custom type's definition source. A type whose
// source cannot be located is recorded as unresolved rather than failing.
func collectClosure(params *artifact.ParamSpec, ret *artifact.TypeDescriptor, index map[string][]typeDecl) ([]callsite.TypeDefinition, []callsite.Comment, []string) {
	var queue []*artifact.TypeDescriptor
	if params != nil {
		queue = append(queue, params.Positional...)
		names := params.KeywordNames()
		sort.Strings(names)
		for _, name := range names {
			queue = append(queue, params.Keyword[name])
		}
	}
	if ret != nil {
		queue = append(queue, ret)
	}

	visited := make(map[string]bool)
	unresolvedSet := make(map[string]bool)
	var types []callsite.TypeDefinition
	var comments []callsite.Comment

	for len(queue) > 0 {
		d := queue[0]
		queue = queue[1:]
		if d == nil {
			continue
		}

		// descend structurally regardless of whether this node is named
		if d.Key != nil {
			queue = append(queue, d.Key)
		}
		if d.Elem != nil {
			queue = append(queue, d.Elem)
		}
		for i := range d.Fields {
			queue = append(queue, d.Fields[i].Type)
		}

		identity := d.Identity()
		if identity == "" || visited[identity] {
			continue
		}
		visited[identity] = true

		if d.Name == "" || d.PkgPath == "" || isStdlib(d.PkgPath) {
			continue
		}

		decl, ok := resolveDecl(index, d)
		if !ok {
			unresolvedSet[d.Name] = true
			continue
		}
		types = append(types, callsite.TypeDefinition{
			Identity: identity,
			Name:     d.Name,
			Source:   decl.source,
		})
		comments = append(comments, decl.doc...)
	}

	unresolved := make([]string, 0, len(unresolvedSet))
	for name := range unresolvedSet {
		unresolved = append(unresolved, name)
	}
	sort.Strings(unresolved)

	return types, comments, unresolved
}

// resolveDecl picks the declaration matching a descriptor. When several
// packages declare the same type name, the candidate whose package name
// matches the descriptor's import path wins.
func resolveDecl(index map[string][]typeDecl, d *artifact.TypeDescriptor) (typeDecl, bool) {
	candidates := index[d.Name]
	if len(candidates) == 0 {
		return typeDecl{}, false
	}
	pkgName := d.PkgPath
	if i := strings.LastIndex(pkgName, "/"); i >= 0 {
		pkgName = pkgName[i+1:]
	}
	for _, c := range candidates {
		if c.pkgName == pkgName {
			return c, true
		}
	}
	return candidates[0], true
}
