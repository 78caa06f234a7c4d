package callsite

// ContainerKind names the lexical container a code context was taken from.
// Extraction prefers the smallest enclosing function, falls back to the
// enclosing type declaration, and finally to the whole file.
type ContainerKind string

const (
	// ContainerFunction is the source of the minimal enclosing function or method
	ContainerFunction ContainerKind = "function"

	// ContainerType is the source of the enclosing type declaration
	ContainerType ContainerKind = "type"

	// ContainerFile is the whole enclosing file
	ContainerFile ContainerKind = "file"
)

// TypeDefinition is the source text of one custom type definition reachable
// from the call site's parameter or return types.
type TypeDefinition struct {
	Identity string `json:"identity"` // de-duplication key: "pkgpath.Name"
	Name     string `json:"name"`
	Source   string `json:"source"` // exact definition text, doc comment included
}

// Comment is one comment or documentation string lexically attached to the
// container, the call line, or a collected type definition. The canonical
// sort order is (File, Offset).
type Comment struct {
	Text   string `json:"text"`
	File   string `json:"file"`
	Offset int    `json:"offset"` // byte offset of the comment in File
}

// Directive is one compiler instruction extracted from reserved comment
// syntax. Directives are excluded from the semantic comment set and passed
// to the compiler separately. The total order across a context is
// (File, Offset) where Offset is the byte offset of the directive's first
// character.
type Directive struct {
	Text   string `json:"text"`
	File   string `json:"file"`
	Offset int    `json:"offset"`
}

// CodeContext is the complete semantic neighborhood of a call site.
// Extraction is a pure function of the current source state: identical
// source always yields a byte-identical CodeContext for the same call site.
// All sets are held in canonical order (types by name, comments and
// directives by source offset) so fingerprinting never depends on traversal
// order.
type CodeContext struct {
	Container     string           `json:"container"`      // enclosing scope source text
	ContainerKind ContainerKind    `json:"container_kind"` //
	CallLine      int              `json:"call_line"`      // 1-based line of the call within Container
	Types         []TypeDefinition `json:"types"`          // transitive closure, one entry per identity, sorted by name
	Comments      []Comment        `json:"comments"`       // semantic comments, directives stripped
	Directives    []Directive      `json:"directives"`     //
	Unresolved    []string         `json:"unresolved"`     // type names that could not be resolved statically, sorted
}
