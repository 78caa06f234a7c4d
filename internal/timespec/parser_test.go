package timespec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("RFC3339 timestamp", func(t *testing.T) {
		got, err := Parse("2026-08-01T13:00:00Z")
		require.NoError(t, err)
		want := time.Date(2026, 8, 1, 13, 0, 0, 0, time.UTC).UnixMilli()
		assert.Equal(t, want, got)
	})

	t.Run("duration is relative to now", func(t *testing.T) {
		before := time.Now().Add(-time.Hour).UnixMilli()
		got, err := Parse("1h")
		require.NoError(t, err)
		after := time.Now().Add(-time.Hour).UnixMilli()

		assert.GreaterOrEqual(t, got, before)
		assert.LessOrEqual(t, got, after)
	})

	t.Run("compound duration", func(t *testing.T) {
		got, err := Parse("1h30m")
		require.NoError(t, err)
		assert.InDelta(t, time.Now().Add(-90*time.Minute).UnixMilli(), got, 1000)
	})

	t.Run("empty filter", func(t *testing.T) {
		_, err := Parse("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty time filter")
	})

	t.Run("garbage filter", func(t *testing.T) {
		_, err := Parse("yesterday")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `invalid time filter "yesterday"`)
	})
}

func TestParseRange(t *testing.T) {
	t.Run("both bounds", func(t *testing.T) {
		since, until, err := ParseRange("2026-08-01T00:00:00Z", "2026-08-02T00:00:00Z")
		require.NoError(t, err)
		assert.Less(t, since, until)
	})

	t.Run("only since", func(t *testing.T) {
		since, until, err := ParseRange("2h", "")
		require.NoError(t, err)
		assert.Positive(t, since)
		assert.Zero(t, until)
	})

	t.Run("only until", func(t *testing.T) {
		since, until, err := ParseRange("", "1h")
		require.NoError(t, err)
		assert.Zero(t, since)
		assert.Positive(t, until)
	})

	t.Run("neither bound", func(t *testing.T) {
		since, until, err := ParseRange("", "")
		require.NoError(t, err)
		assert.Zero(t, since)
		assert.Zero(t, until)
	})

	t.Run("inverted range", func(t *testing.T) {
		_, _, err := ParseRange("1h", "2h")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--since must be earlier than --until")
	})

	t.Run("bad since", func(t *testing.T) {
		_, _, err := ParseRange("nope", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid --since")
	})

	t.Run("bad until", func(t *testing.T) {
		_, _, err := ParseRange("", "nope")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid --until")
	})
}
