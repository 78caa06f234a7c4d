package inspect

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sembly/semcall/pkg/artifact"
)

// FormatTable writes artifacts as a formatted table to the provided writer.
// Columns: FINGERPRINT (truncated), AGE, DEPS, and TASK (first line).
// Returns the number of artifacts formatted.
func FormatTable(w io.Writer, artifacts []*artifact.Artifact) int {
	if len(artifacts) == 0 {
		fmt.Fprintf(w, "No cached artifacts found\n")
		return 0
	}

	fmt.Fprintf(w, "%-14s %-8s %-5s %s\n",
		"FINGERPRINT", "AGE", "DEPS", "TASK")
	fmt.Fprintf(w, "%-14s %-8s %-5s %s\n",
		"--------------", "--------", "-----", "----------------------------------------")

	for _, a := range artifacts {
		fmt.Fprintf(w, "%-14s %-8s %-5d %s\n",
			a.Fingerprint.Short(),
			formatTimestamp(a.CreatedAtMs),
			len(a.Dependencies),
			formatTask(a.Task),
		)
	}

	countMsg := "artifact"
	if len(artifacts) != 1 {
		countMsg = "artifacts"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(artifacts), countMsg)

	return len(artifacts)
}

// FormatJSONL writes artifacts as line-delimited JSON (JSONL) to the
// provided writer, one complete artifact per line.
func FormatJSONL(w io.Writer, artifacts []*artifact.Artifact) error {
	for _, a := range artifacts {
		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("failed to marshal artifact to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", string(data)); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// FormatSingleJSON writes a single artifact as pretty-printed JSON.
// Used by cache show to display complete artifact details.
func FormatSingleJSON(w io.Writer, a *artifact.Artifact) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact to JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	fmt.Fprintln(w)
	return nil
}

// formatTask truncates the compiled task description to its first line with
// max 40 characters for table display. Empty tasks return "-".
func formatTask(task string) string {
	var firstLine string
	for _, line := range strings.Split(task, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			firstLine = trimmed
			break
		}
	}
	if firstLine == "" {
		return "-"
	}
	if len(firstLine) > 40 {
		return firstLine[:37] + "..."
	}
	return firstLine
}

// formatTimestamp renders creation time as a human-friendly age like "5m"
// or "2d".
func formatTimestamp(createdAtMs int64) string {
	if createdAtMs <= 0 {
		return "-"
	}
	age := time.Since(time.UnixMilli(createdAtMs))
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd", int(age.Hours()/24))
	}
}
