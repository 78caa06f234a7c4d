// Package inspect implements CLI-facing views over the artifact cache:
// listing, display, and prefix lookup against any configured store backend.
package inspect

import (
	"context"
	"fmt"
	"io"

	"github.com/sembly/semcall/internal/cache"
	"github.com/sembly/semcall/pkg/artifact"
)

// OutputFormat specifies how to format the artifact list output.
type OutputFormat string

const (
	// OutputFormatDefault uses a table format with truncated tasks
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete artifacts as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// FilterCriteria defines filtering options for cache list.
// All filters are ANDed together.
type FilterCriteria struct {
	SinceTimestampMs int64 // Unix timestamp in milliseconds, 0 = no filter
	UntilTimestampMs int64 // Unix timestamp in milliseconds, 0 = no filter
}

// matchesFilter returns true if the artifact matches all filter criteria.
func (fc *FilterCriteria) matchesFilter(a *artifact.Artifact) bool {
	if fc.SinceTimestampMs > 0 && a.CreatedAtMs < fc.SinceTimestampMs {
		return false
	}
	if fc.UntilTimestampMs > 0 && a.CreatedAtMs > fc.UntilTimestampMs {
		return false
	}
	return true
}

// ListArtifacts retrieves all cached artifacts from the store and writes
// them to the provided writer. The store returns them sorted by creation
// time, so output is chronological and stable.
func ListArtifacts(ctx context.Context, store cache.Store, format OutputFormat, filters *FilterCriteria, w io.Writer) error {
	all, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list cached artifacts: %w", err)
	}

	artifacts := all[:0:0]
	for _, a := range all {
		if filters != nil && !filters.matchesFilter(a) {
			continue
		}
		artifacts = append(artifacts, a)
	}

	switch format {
	case OutputFormatDefault:
		FormatTable(w, artifacts)
	case OutputFormatJSONL:
		if err := FormatJSONL(w, artifacts); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	return nil
}
