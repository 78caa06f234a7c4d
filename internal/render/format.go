package render

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/sembly/semcall/pkg/artifact"
)

// Value formatting rules
//
// Scalars render as literal text. Ordered collections render as an
// enumerated listing preserving declared order; maps render as "key: value"
// lines sorted by key so output is deterministic. Structured values render
// as a flat labeled field listing while shallow, switching to nested tagged
// blocks once the value nests deeper than one level.

const maxFlatDepth = 1

func formatValue(v interface{}, indent int) string {
	rv := deref(reflect.ValueOf(v))
	if !rv.IsValid() {
		return ""
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		var lines []string
		for i := 0; i < rv.Len(); i++ {
			lines = append(lines, formatValue(rv.Index(i).Interface(), indent))
		}
		return strings.Join(lines, "\n")

	case reflect.Map:
		keys := make([]string, 0, rv.Len())
		byKey := make(map[string]reflect.Value, rv.Len())
		for _, k := range rv.MapKeys() {
			ks := fmt.Sprintf("%v", k.Interface())
			keys = append(keys, ks)
			byKey[ks] = rv.MapIndex(k)
		}
		sort.Strings(keys)
		var lines []string
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("%s: %s", k, formatValue(byKey[k].Interface(), indent)))
		}
		return strings.Join(lines, "\n")

	case reflect.Struct:
		if structDepth(rv.Type(), map[reflect.Type]bool{}) <= maxFlatDepth {
			return formatStructFlat(rv)
		}
		return formatStructTagged(rv, indent)

	default:
		return fmt.Sprintf("%v", rv.Interface())
	}
}

// formatStructFlat renders a shallow struct as "label: value" lines.
func formatStructFlat(rv reflect.Value) string {
	var lines []string
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", fieldLabel(f), formatValue(rv.Field(i).Interface(), 0)))
	}
	return strings.Join(lines, "\n")
}

// formatStructTagged renders a deeply nested struct as tagged blocks:
//
//	<order>
//	  <customer>
//	    name: Ada
//	  </customer>
//	</order>
func formatStructTagged(rv reflect.Value, indent int) string {
	pad := strings.Repeat("  ", indent)
	var lines []string
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		label := fieldLabel(f)
		fv := deref(rv.Field(i))
		if fv.IsValid() && fv.Kind() == reflect.Struct {
			lines = append(lines, fmt.Sprintf("%s<%s>", pad, label))
			lines = append(lines, formatStructTagged(fv, indent+1))
			lines = append(lines, fmt.Sprintf("%s</%s>", pad, label))
			continue
		}
		value := formatValue(rv.Field(i).Interface(), indent+1)
		if strings.Contains(value, "\n") {
			inner := strings.Repeat("  ", indent+1)
			value = inner + strings.ReplaceAll(value, "\n", "\n"+inner)
			lines = append(lines, fmt.Sprintf("%s<%s>", pad, label), value, fmt.Sprintf("%s</%s>", pad, label))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s%s: %s", pad, label, value))
	}
	return strings.Join(lines, "\n")
}

func fieldLabel(f reflect.StructField) string {
	if tag, ok := f.Tag.Lookup("json"); ok {
		name, _, _ := strings.Cut(tag, ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

// structDepth computes how deeply struct values nest inside t. A struct with
// only scalar and collection-of-scalar fields has depth 1.
func structDepth(t reflect.Type, visiting map[reflect.Type]bool) int {
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice || t.Kind() == reflect.Array || t.Kind() == reflect.Map {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct || visiting[t] {
		return 0
	}
	visiting[t] = true
	defer delete(visiting, t)

	depth := 1
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if d := structDepth(f.Type, visiting) + 1; d > depth {
			depth = d
		}
	}
	return depth
}

// systemPrompt assembles the artifact's instruction sections plus the output
// format contract into the system message.
func systemPrompt(a *artifact.Artifact) (string, error) {
	schema, err := artifact.JSONSchema(a.OutputShape)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("<system_prompt>\n")
	writeSection(&b, "role_and_context", a.RoleContext)
	writeSection(&b, "task_description", a.Task)
	writeSection(&b, "guidelines", a.Guidelines)
	b.WriteString("<output_format>\n")
	b.WriteString("The output must be a single JSON value conforming to the schema below.\n")
	b.WriteString("Output ONLY raw JSON: no explanations, no markdown fences, no extra text.\n")
	b.WriteString("All required fields must be present and data types must exactly match the schema.\n\n")
	b.WriteString("```\n")
	b.WriteString(schema)
	b.WriteString("\n```\n")
	b.WriteString("</output_format>\n")
	b.WriteString("</system_prompt>")
	return b.String(), nil
}

func writeSection(b *strings.Builder, tag, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}
	fmt.Fprintf(b, "<%s>\n%s\n</%s>\n", tag, content, tag)
}
