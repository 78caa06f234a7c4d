package extract

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sembly/semcall/pkg/artifact"
	"github.com/sembly/semcall/pkg/callsite"
)

const testdataPkg = "github.com/sembly/semcall/internal/extract/testdata"

func customerFeedbackDescriptor() *artifact.TypeDescriptor {
	return &artifact.TypeDescriptor{
		Kind:    artifact.KindStruct,
		Name:    "CustomerFeedback",
		PkgPath: testdataPkg,
		Fields: []artifact.FieldDescriptor{
			{Name: "CustomerID", JSONName: "customer_id", Type: &artifact.TypeDescriptor{Kind: artifact.KindString}},
			{Name: "Rating", Type: &artifact.TypeDescriptor{Kind: artifact.KindInt}},
			{Name: "Items", Type: &artifact.TypeDescriptor{
				Kind: artifact.KindSlice,
				Elem: &artifact.TypeDescriptor{Kind: artifact.KindStruct, Name: "LineItem", PkgPath: testdataPkg},
			}},
		},
	}
}

func reportDescriptor() *artifact.TypeDescriptor {
	return &artifact.TypeDescriptor{Kind: artifact.KindStruct, Name: "Report", PkgPath: testdataPkg}
}

func analyzeKey() callsite.Key {
	return callsite.Key{
		File:  filepath.Join("testdata", "analyze.go"),
		Line:  6,
		Scope: "analyzeFeedback",
		Name:  "analyze",
	}
}

func analyzeSpec() *artifact.ParamSpec {
	return &artifact.ParamSpec{
		Keyword: map[string]*artifact.TypeDescriptor{"fb": customerFeedbackDescriptor()},
	}
}

func commentTexts(comments []callsite.Comment) []string {
	texts := make([]string, 0, len(comments))
	for _, c := range comments {
		texts = append(texts, c.Text)
	}
	return texts
}

func TestExtract(t *testing.T) {
	e := New()

	t.Run("function container", func(t *testing.T) {
		cc, err := e.Extract(analyzeKey(), analyzeSpec(), reportDescriptor())
		require.NoError(t, err)

		assert.Equal(t, callsite.ContainerFunction, cc.ContainerKind)
		assert.Contains(t, cc.Container, "func analyzeFeedback(fb CustomerFeedback) Report {")
		assert.NotContains(t, cc.Container, "defaultPlan")
		assert.Equal(t, 3, cc.CallLine)
	})

	t.Run("func literal container", func(t *testing.T) {
		key := callsite.Key{
			File:  filepath.Join("testdata", "closure.go"),
			Line:  7,
			Scope: "watchFeedback",
			Name:  "escalate",
		}
		cc, err := e.Extract(key, analyzeSpec(), reportDescriptor())
		require.NoError(t, err)

		assert.Equal(t, callsite.ContainerFunction, cc.ContainerKind)
		assert.True(t, strings.HasPrefix(cc.Container, "func() {"))
		assert.NotContains(t, cc.Container, "watchFeedback")
		assert.Equal(t, 3, cc.CallLine)
		assert.Contains(t, commentTexts(cc.Comments), "escalate urgent feedback from the watcher")
	})

	t.Run("type closure is complete and sorted", func(t *testing.T) {
		cc, err := e.Extract(analyzeKey(), analyzeSpec(), reportDescriptor())
		require.NoError(t, err)

		require.Len(t, cc.Types, 3)
		assert.Equal(t, "CustomerFeedback", cc.Types[0].Name)
		assert.Equal(t, "LineItem", cc.Types[1].Name)
		assert.Equal(t, "Report", cc.Types[2].Name)

		assert.Contains(t, cc.Types[0].Source, "type CustomerFeedback struct {")
		assert.Contains(t, cc.Types[1].Source, "type LineItem struct {")
		assert.Contains(t, cc.Types[2].Source, "type Report struct {")
		assert.Empty(t, cc.Unresolved)
	})

	t.Run("comments cover container and type definitions", func(t *testing.T) {
		cc, err := e.Extract(analyzeKey(), analyzeSpec(), reportDescriptor())
		require.NoError(t, err)

		texts := commentTexts(cc.Comments)
		assert.Contains(t, texts, "analyzeFeedback turns one piece of feedback into a report.")
		assert.Contains(t, texts, "the rating is weighted heavily")
		assert.Contains(t, texts, "CustomerFeedback is one piece of raw customer feedback.")
		assert.Contains(t, texts, "LineItem is one purchased item referenced by feedback.")
		assert.Contains(t, texts, "Report summarizes a batch of feedback.")
	})

	t.Run("directives are split from comments in source order", func(t *testing.T) {
		cc, err := e.Extract(analyzeKey(), analyzeSpec(), reportDescriptor())
		require.NoError(t, err)

		require.Len(t, cc.Directives, 2)
		assert.Equal(t, "treat ratings of 1 as urgent\nnever quote the customer verbatim", cc.Directives[0].Text)
		assert.Equal(t, "keep summaries short", cc.Directives[1].Text)

		for _, text := range commentTexts(cc.Comments) {
			assert.NotContains(t, text, "@compile")
		}
	})

	t.Run("extraction is deterministic", func(t *testing.T) {
		first, err := e.Extract(analyzeKey(), analyzeSpec(), reportDescriptor())
		require.NoError(t, err)
		second, err := e.Extract(analyzeKey(), analyzeSpec(), reportDescriptor())
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("var declaration container", func(t *testing.T) {
		key := callsite.Key{
			File: filepath.Join("testdata", "analyze.go"),
			Line: 13,
			Name: "choosePlan",
		}
		cc, err := e.Extract(key, nil, nil)
		require.NoError(t, err)

		assert.Equal(t, callsite.ContainerType, cc.ContainerKind)
		assert.Contains(t, cc.Container, "defaultPlan = choosePlan()")
		assert.NotContains(t, cc.Container, "analyzeFeedback")

		texts := commentTexts(cc.Comments)
		assert.Contains(t, texts, "plan selection lives at package level")
		assert.Contains(t, texts, "defaultPlan names the plan used when none is chosen")
	})

	t.Run("unlocatable type is recorded as unresolved", func(t *testing.T) {
		spec := analyzeSpec()
		spec.Keyword["ghost"] = &artifact.TypeDescriptor{
			Kind: artifact.KindStruct, Name: "Missing", PkgPath: "example.com/ghost",
		}
		cc, err := e.Extract(analyzeKey(), spec, reportDescriptor())
		require.NoError(t, err)
		assert.Equal(t, []string{"Missing"}, cc.Unresolved)
	})

	t.Run("stdlib types are never collected", func(t *testing.T) {
		spec := &artifact.ParamSpec{Keyword: map[string]*artifact.TypeDescriptor{
			"when": {Kind: artifact.KindStruct, Name: "Time", PkgPath: "time"},
		}}
		cc, err := e.Extract(analyzeKey(), spec, nil)
		require.NoError(t, err)
		assert.Empty(t, cc.Types)
		assert.Empty(t, cc.Unresolved)
	})

	t.Run("mismatched call name fails", func(t *testing.T) {
		key := analyzeKey()
		key.Name = "somethingElse"
		_, err := e.Extract(key, analyzeSpec(), reportDescriptor())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("unreadable source fails", func(t *testing.T) {
		key := analyzeKey()
		key.File = filepath.Join("testdata", "does-not-exist.go")
		_, err := e.Extract(key, analyzeSpec(), reportDescriptor())
		require.Error(t, err)
	})
}
