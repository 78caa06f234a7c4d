// Package timespec parses the time filters of `semcall cache list` into the
// millisecond timestamps artifacts are compared against (Artifact.CreatedAtMs).
package timespec

import (
	"fmt"
	"time"
)

// Parse turns one time filter into a Unix millisecond timestamp. Two forms
// are accepted:
//   - a Go duration, meaning that long ago: "2h" is two hours before now
//   - an absolute RFC3339 timestamp: "2026-08-01T13:00:00Z"
func Parse(spec string) (int64, error) {
	if spec == "" {
		return 0, fmt.Errorf("empty time filter")
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t.UnixMilli(), nil
	}
	if d, err := time.ParseDuration(spec); err == nil {
		return time.Now().Add(-d).UnixMilli(), nil
	}

	return 0, fmt.Errorf("invalid time filter %q (use a duration like '1h30m' or RFC3339 like '2026-08-01T13:00:00Z')", spec)
}

// ParseRange resolves the --since and --until filters into a compile-time
// window. A zero timestamp means that end of the window is unbounded. When
// both are given, since must be the earlier instant.
func ParseRange(since, until string) (int64, int64, error) {
	var sinceMS, untilMS int64
	var err error

	if since != "" {
		if sinceMS, err = Parse(since); err != nil {
			return 0, 0, fmt.Errorf("invalid --since: %w", err)
		}
	}
	if until != "" {
		if untilMS, err = Parse(until); err != nil {
			return 0, 0, fmt.Errorf("invalid --until: %w", err)
		}
	}

	if sinceMS > 0 && untilMS > 0 && sinceMS >= untilMS {
		return 0, 0, fmt.Errorf("--since must be earlier than --until")
	}
	return sinceMS, untilMS, nil
}
