package artifact

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Serialization helpers for converting artifacts between Go structs, JSON
// payloads (disk store), and Redis hashes (shared store).
//
// Redis stores data as string-to-string maps. Structured fields (output
// shape, dependency set) are JSON-encoded into single hash fields, balancing
// queryability of the scalar fields against flexibility for the nested ones.

// ToHash converts an Artifact to a Redis hash format.
func ToHash(a *Artifact) (map[string]interface{}, error) {
	shapeJSON, err := json.Marshal(a.OutputShape)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal output shape: %w", err)
	}
	depsJSON, err := json.Marshal(a.Dependencies)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dependencies: %w", err)
	}

	return map[string]interface{}{
		"fingerprint":   string(a.Fingerprint),
		"role_context":  a.RoleContext,
		"task":          a.Task,
		"guidelines":    a.Guidelines,
		"user_template": a.UserTemplate,
		"output_shape":  string(shapeJSON),
		"notes":         a.Notes,
		"created_at_ms": a.CreatedAtMs,
		"dependencies":  string(depsJSON),
	}, nil
}

// FromHash converts a Redis hash back to an Artifact.
func FromHash(hash map[string]string) (*Artifact, error) {
	createdAt, err := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at_ms field: %w", err)
	}

	var shape *TypeDescriptor
	if shapeJSON := hash["output_shape"]; shapeJSON != "" && shapeJSON != "null" {
		shape = &TypeDescriptor{}
		if err := json.Unmarshal([]byte(shapeJSON), shape); err != nil {
			return nil, fmt.Errorf("failed to unmarshal output_shape: %w", err)
		}
	}

	var deps []Fingerprint
	if depsJSON := hash["dependencies"]; depsJSON != "" {
		if err := json.Unmarshal([]byte(depsJSON), &deps); err != nil {
			return nil, fmt.Errorf("failed to unmarshal dependencies: %w", err)
		}
	}

	return &Artifact{
		Fingerprint:  Fingerprint(hash["fingerprint"]),
		RoleContext:  hash["role_context"],
		Task:         hash["task"],
		Guidelines:   hash["guidelines"],
		UserTemplate: hash["user_template"],
		OutputShape:  shape,
		Notes:        hash["notes"],
		CreatedAtMs:  createdAt,
		Dependencies: deps,
	}, nil
}

// Encode serializes an artifact to its JSON disk representation.
func Encode(a *Artifact) ([]byte, error) {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode artifact %s: %w", a.Fingerprint.Short(), err)
	}
	return data, nil
}

// Decode deserializes an artifact from its JSON disk representation and
// checks that the payload carries a well-formed fingerprint. A truncated or
// corrupt entry fails here rather than being misinterpreted as valid.
func Decode(data []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to decode artifact: %w", err)
	}
	if err := a.Fingerprint.Validate(); err != nil {
		return nil, fmt.Errorf("failed to decode artifact: %w", err)
	}
	return &a, nil
}
