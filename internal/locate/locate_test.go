package locate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sembly/semcall/pkg/callsite"
)

// viaHelper calls Callsite with skip=1 so the reported position belongs to
// viaHelper's caller, not to viaHelper itself.
func viaHelper() (callsite.Key, error) {
	return Callsite(1, "helper_op")
}

func TestCallsite(t *testing.T) {
	t.Run("captures the caller's position", func(t *testing.T) {
		key, err := Callsite(0, "summarize")
		require.NoError(t, err)

		assert.True(t, strings.HasSuffix(key.File, "locate_test.go"))
		assert.Greater(t, key.Line, 0)
		assert.Equal(t, "summarize", key.Name)
		assert.Contains(t, key.Scope, "TestCallsite")
	})

	t.Run("skip walks up the stack", func(t *testing.T) {
		key, err := viaHelper()
		require.NoError(t, err)
		assert.Contains(t, key.Scope, "TestCallsite")
		assert.True(t, strings.HasSuffix(key.File, "locate_test.go"))
	})

	t.Run("distinct lines produce distinct keys", func(t *testing.T) {
		first, err := Callsite(0, "op")
		require.NoError(t, err)
		second, err := Callsite(0, "op")
		require.NoError(t, err)

		assert.Equal(t, first.File, second.File)
		assert.NotEqual(t, first.Line, second.Line)
	})

	t.Run("string form is file:line:name", func(t *testing.T) {
		key, err := Callsite(0, "summarize")
		require.NoError(t, err)
		assert.Contains(t, key.String(), "locate_test.go")
		assert.True(t, strings.HasSuffix(key.String(), ":summarize"))
	})
}
