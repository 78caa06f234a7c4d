package extract

import (
	"reflect"
	"strings"
	"sync"

	"github.com/sembly/semcall/pkg/artifact"
)

// Type-descriptor graph construction.
//
// Descriptors are built by an explicit visitor over Go's reflection metadata
// and memoized per named type, so the graph for a distinct type set is
// constructed once and reused on every subsequent call.

var descriptorCache sync.Map // reflect.Type -> *artifact.TypeDescriptor

// DescribeType builds the structural descriptor for t. Self-referential and
// mutually-referential types are cut at the revisit point with a stub node
// carrying the type identity only, keeping the graph finite and
// JSON-serializable.
func DescribeType(t reflect.Type) *artifact.TypeDescriptor {
	if cached, ok := descriptorCache.Load(t); ok {
		return cached.(*artifact.TypeDescriptor)
	}
	d := describe(t, map[reflect.Type]bool{})
	if t.Name() != "" {
		descriptorCache.Store(t, d)
	}
	return d
}

// DescribeValue builds the descriptor for a runtime value. Nil values have
// no dynamic type and are described as any.
func DescribeValue(v interface{}) *artifact.TypeDescriptor {
	if v == nil {
		return &artifact.TypeDescriptor{Kind: artifact.KindAny}
	}
	return DescribeType(reflect.TypeOf(v))
}

func describe(t reflect.Type, visiting map[reflect.Type]bool) *artifact.TypeDescriptor {
	if t == nil {
		return &artifact.TypeDescriptor{Kind: artifact.KindAny}
	}

	if visiting[t] {
		// cycle guard: a type already on the visit path is not re-expanded
		return &artifact.TypeDescriptor{
			Kind:    kindOf(t),
			Name:    t.Name(),
			PkgPath: t.PkgPath(),
		}
	}

	d := &artifact.TypeDescriptor{
		Kind:    kindOf(t),
		Name:    t.Name(),
		PkgPath: t.PkgPath(),
	}

	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		d.Elem = describe(t.Elem(), visiting)
	case reflect.Map:
		d.Key = describe(t.Key(), visiting)
		d.Elem = describe(t.Elem(), visiting)
	case reflect.Pointer:
		d.Elem = describe(t.Elem(), visiting)
	case reflect.Struct:
		visiting[t] = true
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			// unexported fields are invisible to placeholders and to
			// encoding/json, so types reached only through them stay
			// out of the descriptor graph and the type closure
			if !f.IsExported() {
				continue
			}
			d.Fields = append(d.Fields, artifact.FieldDescriptor{
				Name:     f.Name,
				JSONName: jsonName(f),
				Type:     describe(f.Type, visiting),
			})
		}
		delete(visiting, t)
	}

	return d
}

func kindOf(t reflect.Type) artifact.Kind {
	switch t.Kind() {
	case reflect.String:
		return artifact.KindString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return artifact.KindInt
	case reflect.Float32, reflect.Float64:
		return artifact.KindFloat
	case reflect.Bool:
		return artifact.KindBool
	case reflect.Slice, reflect.Array:
		return artifact.KindSlice
	case reflect.Map:
		return artifact.KindMap
	case reflect.Struct:
		return artifact.KindStruct
	case reflect.Pointer:
		return artifact.KindPointer
	case reflect.Interface:
		return artifact.KindAny
	default:
		return artifact.KindUnknown
	}
}

func jsonName(f reflect.StructField) string {
	tag, ok := f.Tag.Lookup("json")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" || name == "" {
		return ""
	}
	return name
}

// isStdlib reports whether a package path belongs to the standard library.
// Standard library types are described structurally but never collected into
// the source closure or reported as unresolved.
func isStdlib(pkgPath string) bool {
	if pkgPath == "" {
		return false
	}
	first, _, _ := strings.Cut(pkgPath, "/")
	return !strings.Contains(first, ".")
}
