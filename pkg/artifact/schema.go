package artifact

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// JSONSchema renders a JSON-Schema-like structural description of the
// descriptor. The inference collaborator receives this in the rendered system
// prompt's output_format section so the raw result can be unmarshalled into
// the declared return type.
func JSONSchema(d *TypeDescriptor) (string, error) {
	node := schemaNode(d)
	data, err := json.Marshal(node)
	if err != nil {
		return "", fmt.Errorf("failed to render JSON schema for %s: %w", d.String(), err)
	}
	return string(data), nil
}

func schemaNode(d *TypeDescriptor) map[string]interface{} {
	if d == nil {
		return map[string]interface{}{}
	}
	switch d.Kind {
	case KindString, KindInt, KindFloat, KindBool:
		return map[string]interface{}{"type": string(d.Kind)}
	case KindSlice:
		return map[string]interface{}{
			"type":  "array",
			"items": schemaNode(d.Elem),
		}
	case KindMap:
		return map[string]interface{}{
			"type":                 "object",
			"additionalProperties": schemaNode(d.Elem),
		}
	case KindPointer:
		// pointers are nullable versions of their target
		node := schemaNode(d.Elem)
		node["nullable"] = true
		return node
	case KindStruct:
		properties := make(map[string]interface{}, len(d.Fields))
		required := make([]string, 0, len(d.Fields))
		for _, f := range d.Fields {
			name := f.JSONName
			if name == "" {
				name = f.Name
			}
			properties[name] = schemaNode(f.Type)
			if f.Type == nil || f.Type.Kind != KindPointer {
				required = append(required, name)
			}
		}
		sort.Strings(required)
		node := map[string]interface{}{
			"type":       "object",
			"properties": properties,
		}
		if d.Name != "" {
			node["title"] = d.Name
		}
		if len(required) > 0 {
			node["required"] = required
		}
		return node
	default:
		// any / unknown: accept whatever the model produces
		return map[string]interface{}{}
	}
}

// DescribeParams renders the parameter spec as indented text for compile-task
// documents: positional parameters in declaration order, keyword parameters
// sorted by name.
func DescribeParams(spec *ParamSpec) string {
	var b strings.Builder
	for i, td := range spec.Positional {
		fmt.Fprintf(&b, "arg%d: %s\n", i, td.String())
	}
	names := spec.KeywordNames()
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "%s: %s\n", name, spec.Keyword[name].String())
	}
	return strings.TrimRight(b.String(), "\n")
}
