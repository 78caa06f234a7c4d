package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sembly/semcall/pkg/callsite"
)

func sampleContext() *callsite.CodeContext {
	return &callsite.CodeContext{
		Container:     "func analyze(fb CustomerFeedback) {\n\treport := do(fb)\n}",
		ContainerKind: callsite.ContainerFunction,
		CallLine:      2,
		Types: []callsite.TypeDefinition{
			{Identity: "app.CustomerFeedback", Name: "CustomerFeedback", Source: "type CustomerFeedback struct {\n\tRating int\n}"},
			{Identity: "app.Report", Name: "Report", Source: "type Report struct {\n\tSummary string\n}"},
		},
		Comments: []callsite.Comment{
			{Text: "analyze turns raw feedback into a report", File: "app.go", Offset: 10},
			{Text: "Rating is 1-5", File: "types.go", Offset: 40},
		},
		Directives: []callsite.Directive{
			{Text: "keep summaries under two sentences", File: "app.go", Offset: 60},
		},
	}
}

func TestContext(t *testing.T) {
	t.Run("is a valid fingerprint", func(t *testing.T) {
		fp := Context(sampleContext())
		require.NoError(t, fp.Validate())
	})

	t.Run("identical contexts hash identically", func(t *testing.T) {
		assert.Equal(t, Context(sampleContext()), Context(sampleContext()))
	})

	t.Run("is independent of traversal order", func(t *testing.T) {
		shuffled := sampleContext()
		shuffled.Types[0], shuffled.Types[1] = shuffled.Types[1], shuffled.Types[0]
		shuffled.Comments[0], shuffled.Comments[1] = shuffled.Comments[1], shuffled.Comments[0]
		assert.Equal(t, Context(sampleContext()), Context(shuffled))
	})

	t.Run("container change produces a new fingerprint", func(t *testing.T) {
		changed := sampleContext()
		changed.Container += " "
		assert.NotEqual(t, Context(sampleContext()), Context(changed))
	})

	t.Run("type definition change produces a new fingerprint", func(t *testing.T) {
		changed := sampleContext()
		changed.Types[0].Source = "type CustomerFeedback struct {\n\tRating int8\n}"
		assert.NotEqual(t, Context(sampleContext()), Context(changed))
	})

	t.Run("comment change produces a new fingerprint", func(t *testing.T) {
		changed := sampleContext()
		changed.Comments[1].Text = "Rating is 1-10"
		assert.NotEqual(t, Context(sampleContext()), Context(changed))
	})

	t.Run("directive change produces a new fingerprint", func(t *testing.T) {
		changed := sampleContext()
		changed.Directives[0].Text = "write at length"
		assert.NotEqual(t, Context(sampleContext()), Context(changed))
	})

	t.Run("reverting a change restores the original fingerprint", func(t *testing.T) {
		original := Context(sampleContext())
		changed := sampleContext()
		changed.Comments[0].Text = "edited"
		require.NotEqual(t, original, Context(changed))

		changed.Comments[0].Text = "analyze turns raw feedback into a report"
		assert.Equal(t, original, Context(changed))
	})

	t.Run("moving text between sections changes the fingerprint", func(t *testing.T) {
		a := sampleContext()
		a.Comments = append(a.Comments, callsite.Comment{Text: "tail", File: "zz.go", Offset: 1})

		b := sampleContext()
		b.Directives = append(b.Directives, callsite.Directive{Text: "tail", File: "zz.go", Offset: 1})

		assert.NotEqual(t, Context(a), Context(b))
	})
}

func TestTypeDefinition(t *testing.T) {
	td := callsite.TypeDefinition{Identity: "app.Report", Name: "Report", Source: "type Report struct{}"}

	fp := TypeDefinition(td)
	require.NoError(t, fp.Validate())
	assert.Equal(t, fp, TypeDefinition(td))

	changed := td
	changed.Source = "type Report struct{ Summary string }"
	assert.NotEqual(t, fp, TypeDefinition(changed))
}
