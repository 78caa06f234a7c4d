// Package compile implements the default compiler collaborator: it
// translates a call site's code context into prompt templates by asking a
// compile-time LLM, guided by the embedded compiler instruction document.
//
// The cache treats any compiler as opaque and non-deterministic; nothing in
// this package is reached on a cache hit.
package compile

import (
	"context"
	_ "embed"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sembly/semcall/internal/fingerprint"
	"github.com/sembly/semcall/internal/llm"
	"github.com/sembly/semcall/internal/marshal"
	"github.com/sembly/semcall/pkg/artifact"
	"github.com/sembly/semcall/pkg/callsite"
)

//go:embed prompts/system_prompt.md
var compilerInstructions string

// Compiler compiles call sites through a chat-completions model.
type Compiler struct {
	client *llm.Client
	logger *slog.Logger
}

// New creates a Compiler over the given model client. A nil logger falls
// back to slog.Default().
func New(client *llm.Client, logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compiler{client: client, logger: logger}
}

// Compile builds the compile-task document, invokes the compile-time model,
// and parses its response into an artifact owned by fp. The returned
// artifact has not yet passed admission validation; the cache performs that.
func (c *Compiler) Compile(ctx context.Context, cs *callsite.CallSite, cc *callsite.CodeContext, fp artifact.Fingerprint) (*artifact.Artifact, error) {
	taskID := uuid.New().String()
	task, err := taskDocument(cs, cc)
	if err != nil {
		return nil, err
	}

	c.logger.Info("compiling call site", "call_site", cs.String(), "task_id", taskID, "model", c.client.Model())
	c.logger.Debug("compile task document", "task_id", taskID, "task", task)

	response, err := c.client.Chat(ctx, []llm.Message{
		{Role: "system", Content: compilerInstructions},
		{Role: "user", Content: task},
	})
	if err != nil {
		return nil, fmt.Errorf("compiler model call failed for %s: %w", cs, err)
	}

	a, err := parseResult(response)
	if err != nil {
		return nil, fmt.Errorf("compiler returned unparsable result for %s: %w", cs, err)
	}

	a.Fingerprint = fp
	a.OutputShape = cs.Return
	a.CreatedAtMs = time.Now().UnixMilli()
	for _, td := range cc.Types {
		a.Dependencies = append(a.Dependencies, fingerprint.TypeDefinition(td))
	}
	if len(cc.Unresolved) > 0 {
		note := "unresolved types (compiled best-effort): " + strings.Join(cc.Unresolved, ", ")
		if a.Notes != "" {
			a.Notes += "\n"
		}
		a.Notes += note
	}

	c.logger.Info("compiled call site", "call_site", cs.String(), "task_id", taskID, "fingerprint", fp.Short())
	return a, nil
}

// taskDocument renders the compile-task sent as the user message: reachable
// type definitions, the numbered container source, the call position, the
// parameter spec, the return contract, and any directives.
func taskDocument(cs *callsite.CallSite, cc *callsite.CodeContext) (string, error) {
	schema, err := artifact.JSONSchema(cs.Return)
	if err != nil {
		return "", err
	}

	// the whole context is numbered as one listing, types first, so the
	// call line below indexes into it directly
	var ctxText strings.Builder
	for _, td := range cc.Types {
		ctxText.WriteString(td.Source)
		ctxText.WriteString("\n\n")
	}
	ctxText.WriteString(cc.Container)

	var b strings.Builder
	b.WriteString("<compile_task>\n<code_context>\n")
	b.WriteString(numbered(ctxText.String()))
	b.WriteString("\n</code_context>\n")

	fmt.Fprintf(&b, "<call_site>\n<line_number>%d</line_number>\n<method_name>%s</method_name>\n<enclosing_scope>%s</enclosing_scope>\n</call_site>\n",
		cc.CallLine+numberedOffset(cc), cs.Key.Name, cs.Key.Scope)

	b.WriteString("<parameters>\n")
	b.WriteString(artifact.DescribeParams(cs.Params))
	b.WriteString("\n</parameters>\n")

	fmt.Fprintf(&b, "<return_type>%s</return_type>\n", cs.Return.String())
	fmt.Fprintf(&b, "<return_json_schema>\n%s\n</return_json_schema>\n", schema)

	if len(cc.Directives) > 0 {
		b.WriteString("<compilation_directives>\n")
		for _, d := range cc.Directives {
			fmt.Fprintf(&b, "- %s\n", d.Text)
		}
		b.WriteString("</compilation_directives>\n")
	}
	if len(cc.Unresolved) > 0 {
		fmt.Fprintf(&b, "<unresolved_types>%s</unresolved_types>\n", strings.Join(cc.Unresolved, ", "))
	}

	b.WriteString("</compile_task>")
	return b.String(), nil
}

// numberedOffset is how many lines the type definitions push the container
// down inside the numbered code context.
func numberedOffset(cc *callsite.CodeContext) int {
	offset := 0
	for _, td := range cc.Types {
		offset += strings.Count(td.Source, "\n") + 2
	}
	return offset
}

// numbered prefixes each line of text with its 1-based line number.
func numbered(text string) string {
	lines := strings.Split(text, "\n")
	var b strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&b, "%d: %s\n", i+1, line)
	}
	return strings.TrimRight(b.String(), "\n")
}

type xmlResult struct {
	XMLName      xml.Name `xml:"compilation_result"`
	SystemPrompt struct {
		RoleAndContext  string `xml:"role_and_context"`
		TaskDescription string `xml:"task_description"`
		Guidelines      string `xml:"guidelines"`
	} `xml:"system_prompt"`
	UserPromptTemplate string `xml:"user_prompt_template"`
	CompilationNotes   string `xml:"compilation_notes"`
}

// parseResult decodes the compiler model's XML response. A fenced response
// is unwrapped first; anything that still fails to parse is a compilation
// failure the cache will not store.
func parseResult(response string) (*artifact.Artifact, error) {
	text := marshal.Unfence(strings.TrimSpace(response))

	var parsed xmlResult
	if err := xml.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("invalid compilation_result XML: %w", err)
	}

	return &artifact.Artifact{
		RoleContext:  strings.TrimSpace(parsed.SystemPrompt.RoleAndContext),
		Task:         strings.TrimSpace(parsed.SystemPrompt.TaskDescription),
		Guidelines:   strings.TrimSpace(parsed.SystemPrompt.Guidelines),
		UserTemplate: strings.TrimSpace(parsed.UserPromptTemplate),
		Notes:        strings.TrimSpace(parsed.CompilationNotes),
	}, nil
}
