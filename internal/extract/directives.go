package extract

import (
	"strings"

	"github.com/sembly/semcall/pkg/callsite"
)

// Reserved directive syntax
//
// Inside any comment attached to the code context, two markers address the
// compiler directly rather than conveying intent:
//
//	@compile: <one instruction>        single-line form
//	@compile{                          multi-line bracketed form
//	  <instruction lines>
//	}@
//
// Directive text is stripped from the semantic comment set and passed to the
// compiler separately, ordered by byte offset.

const (
	directiveLinePrefix = "@compile:"
	directiveBlockOpen  = "@compile{"
	directiveBlockClose = "}@"
)

// splitDirectives scans comments for reserved directive syntax. It returns
// the comments with directive lines removed (comments left empty are
// dropped) and the extracted directives.
func splitDirectives(comments []callsite.Comment) ([]callsite.Comment, []callsite.Directive) {
	var kept []callsite.Comment
	var directives []callsite.Directive

	for _, c := range comments {
		lines := strings.Split(c.Text, "\n")
		var remaining []string
		consumed := 0 // running byte offset of the current line within c.Text

		for i := 0; i < len(lines); i++ {
			line := lines[i]
			trimmed := strings.TrimSpace(line)
			lineOffset := c.Offset + consumed
			consumed += len(line) + 1

			switch {
			case strings.HasPrefix(trimmed, directiveLinePrefix):
				directives = append(directives, callsite.Directive{
					Text:   strings.TrimSpace(strings.TrimPrefix(trimmed, directiveLinePrefix)),
					File:   c.File,
					Offset: lineOffset,
				})
			case strings.HasPrefix(trimmed, directiveBlockOpen):
				var block []string
				rest := strings.TrimSpace(strings.TrimPrefix(trimmed, directiveBlockOpen))
				if strings.HasSuffix(rest, directiveBlockClose) {
					// single-line bracketed form: @compile{ ... }@
					if body := strings.TrimSpace(strings.TrimSuffix(rest, directiveBlockClose)); body != "" {
						block = append(block, body)
					}
				} else {
					if rest != "" {
						block = append(block, rest)
					}
					// an unterminated block still becomes a directive from
					// whatever was gathered
					for i++; i < len(lines); i++ {
						inner := strings.TrimSpace(lines[i])
						consumed += len(lines[i]) + 1
						if inner == directiveBlockClose || strings.HasSuffix(inner, directiveBlockClose) {
							if body := strings.TrimSpace(strings.TrimSuffix(inner, directiveBlockClose)); body != "" {
								block = append(block, body)
							}
							break
						}
						block = append(block, lines[i])
					}
				}
				directives = append(directives, callsite.Directive{
					Text:   strings.TrimSpace(strings.Join(block, "\n")),
					File:   c.File,
					Offset: lineOffset,
				})
			default:
				remaining = append(remaining, line)
			}
		}

		if text := strings.TrimSpace(strings.Join(remaining, "\n")); text != "" {
			kept = append(kept, callsite.Comment{Text: text, File: c.File, Offset: c.Offset})
		}
	}

	return kept, directives
}
