package compile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sembly/semcall/internal/llm"
	"github.com/sembly/semcall/pkg/artifact"
	"github.com/sembly/semcall/pkg/callsite"
)

const sampleResult = `<compilation_result>
<system_prompt>
<role_and_context>You are a support analyst.</role_and_context>
<task_description>Summarize customer feedback.</task_description>
<guidelines>Be concise.</guidelines>
</system_prompt>
<user_prompt_template>Feedback: {{feedback.Comment}}</user_prompt_template>
<compilation_notes>Straightforward mapping.</compilation_notes>
</compilation_result>`

func sampleCallSite() (*callsite.CallSite, *callsite.CodeContext) {
	feedback := &artifact.TypeDescriptor{
		Kind: artifact.KindStruct,
		Name: "Feedback",
		Fields: []artifact.FieldDescriptor{
			{Name: "Comment", JSONName: "comment", Type: &artifact.TypeDescriptor{Kind: artifact.KindString}},
		},
	}
	cs := &callsite.CallSite{
		Key: callsite.Key{File: "service.go", Line: 42, Scope: "svc.Report", Name: "summarize"},
		Params: &artifact.ParamSpec{
			Keyword: map[string]*artifact.TypeDescriptor{"feedback": feedback},
		},
		Return: &artifact.TypeDescriptor{Kind: artifact.KindString},
	}
	cc := &callsite.CodeContext{
		Container:     "func (s *svc) Report() {\n\tsummary := summarize(fb)\n}",
		ContainerKind: callsite.ContainerFunction,
		CallLine:      2,
		Types: []callsite.TypeDefinition{
			{Identity: "pkg.Feedback", Name: "Feedback", Source: "type Feedback struct {\n\tComment string\n}"},
		},
		Directives: []callsite.Directive{
			{Text: "keep summaries short", File: "service.go", Offset: 10},
		},
	}
	return cs, cc
}

func compilerFor(t *testing.T, handler http.HandlerFunc) *Compiler {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(llm.NewClient(srv.URL, "", "compiler-model"), nil)
}

func TestCompile(t *testing.T) {
	ctx := context.Background()
	fp := artifact.Fingerprint(strings.Repeat("cd", 32))

	t.Run("successful compilation", func(t *testing.T) {
		var gotTask string
		c := compilerFor(t, func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Messages []llm.Message `json:"messages"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Len(t, req.Messages, 2)
			assert.Contains(t, req.Messages[0].Content, "compilation_result")
			gotTask = req.Messages[1].Content

			json.NewEncoder(w).Encode(map[string]interface{}{
				"choices": []map[string]interface{}{
					{"message": map[string]string{"content": sampleResult}},
				},
			})
		})

		cs, cc := sampleCallSite()
		a, err := c.Compile(ctx, cs, cc, fp)
		require.NoError(t, err)

		assert.Equal(t, fp, a.Fingerprint)
		assert.Equal(t, "You are a support analyst.", a.RoleContext)
		assert.Equal(t, "Summarize customer feedback.", a.Task)
		assert.Equal(t, "Be concise.", a.Guidelines)
		assert.Equal(t, "Feedback: {{feedback.Comment}}", a.UserTemplate)
		assert.Equal(t, "Straightforward mapping.", a.Notes)
		assert.Equal(t, artifact.KindString, a.OutputShape.Kind)
		assert.NotZero(t, a.CreatedAtMs)
		require.Len(t, a.Dependencies, 1)

		assert.Contains(t, gotTask, "<compile_task>")
		assert.Contains(t, gotTask, "type Feedback struct")
		assert.Contains(t, gotTask, "<method_name>summarize</method_name>")
		assert.Contains(t, gotTask, "keep summaries short")
	})

	t.Run("unresolved types are noted", func(t *testing.T) {
		c := compilerFor(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"choices": []map[string]interface{}{
					{"message": map[string]string{"content": sampleResult}},
				},
			})
		})

		cs, cc := sampleCallSite()
		cc.Unresolved = []string{"Ledger"}
		a, err := c.Compile(ctx, cs, cc, fp)
		require.NoError(t, err)
		assert.Contains(t, a.Notes, "unresolved types (compiled best-effort): Ledger")
		assert.True(t, strings.HasPrefix(a.Notes, "Straightforward mapping.\n"))
	})

	t.Run("unparsable response is an error", func(t *testing.T) {
		c := compilerFor(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"choices": []map[string]interface{}{
					{"message": map[string]string{"content": "I cannot help with that."}},
				},
			})
		})

		cs, cc := sampleCallSite()
		_, err := c.Compile(ctx, cs, cc, fp)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unparsable")
	})

	t.Run("model failure propagates", func(t *testing.T) {
		c := compilerFor(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		})

		cs, cc := sampleCallSite()
		_, err := c.Compile(ctx, cs, cc, fp)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "compiler model call failed")
	})
}

func TestParseResult(t *testing.T) {
	t.Run("plain XML", func(t *testing.T) {
		a, err := parseResult(sampleResult)
		require.NoError(t, err)
		assert.Equal(t, "Summarize customer feedback.", a.Task)
	})

	t.Run("fenced XML is unwrapped", func(t *testing.T) {
		fenced := "```xml\n" + sampleResult + "\n```"
		a, err := parseResult(fenced)
		require.NoError(t, err)
		assert.Equal(t, "Be concise.", a.Guidelines)
	})

	t.Run("invalid XML", func(t *testing.T) {
		_, err := parseResult("<compilation_result><system_prompt>")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid compilation_result XML")
	})
}

func TestTaskDocument(t *testing.T) {
	cs, cc := sampleCallSite()
	doc, err := taskDocument(cs, cc)
	require.NoError(t, err)

	// type definitions are part of the numbered listing, so the reported
	// line must carry the call expression
	assert.Contains(t, doc, "1: type Feedback struct {")
	assert.Contains(t, doc, "6: \tsummary := summarize(fb)")
	assert.Contains(t, doc, "<line_number>6</line_number>")
	assert.Contains(t, doc, "<enclosing_scope>svc.Report</enclosing_scope>")
	assert.Contains(t, doc, "feedback: Feedback")
	assert.Contains(t, doc, "<return_type>string</return_type>")
	assert.Contains(t, doc, `"type":"string"`)
	assert.Contains(t, doc, "<compilation_directives>\n- keep summaries short\n</compilation_directives>")
	assert.NotContains(t, doc, "<unresolved_types>")

	cc.Directives = nil
	cc.Unresolved = []string{"Ledger", "Account"}
	doc, err = taskDocument(cs, cc)
	require.NoError(t, err)
	assert.NotContains(t, doc, "<compilation_directives>")
	assert.Contains(t, doc, "<unresolved_types>Ledger, Account</unresolved_types>")
}

func TestNumbered(t *testing.T) {
	assert.Equal(t, "1: a\n2: b", numbered("a\nb"))
	assert.Equal(t, "1: only", numbered("only"))
}
