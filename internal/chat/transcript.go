package chat

import (
	"strings"

	"studio-cli/internal/richtext"
)

// TranscriptHTML renders the conversation as a standalone HTML document.
// Each message runs through the rich-text formatter; code segments become
// <pre> blocks with their language preserved for client-side highlighters.
func (s *Session) TranscriptHTML(title string) string {
	messages := s.Messages()

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\"/>\n")
	b.WriteString("<title>" + escapeText(title) + "</title>\n")
	b.WriteString("<style>\n" + transcriptCSS + "</style>\n</head>\n<body>\n")
	b.WriteString("<h1>" + escapeText(title) + "</h1>\n")

	for _, m := range messages {
		class := "message " + string(m.Sender)
		if m.Err {
			class += " error"
		}
		b.WriteString(`<div class="` + class + `">` + "\n")
		for _, seg := range richtext.Format(m.Text) {
			switch seg.Kind {
			case richtext.SegmentHTML:
				b.WriteString(`<div class="rich">` + withBreaks(seg.HTML) + "</div>\n")
			case richtext.SegmentCode:
				lang := seg.Code.Lang
				if lang == "" {
					lang = "text"
				}
				b.WriteString(`<pre><code class="language-` + escapeText(lang) + `">`)
				b.WriteString(escapeText(seg.Code.Code))
				b.WriteString("</code></pre>\n")
			}
		}
		b.WriteString("</div>\n")
	}

	b.WriteString("</body>\n</html>\n")
	return b.String()
}

// withBreaks keeps plain-text newlines visible in the document.
func withBreaks(html string) string {
	return strings.ReplaceAll(html, "\n", "<br/>\n")
}

func escapeText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

const transcriptCSS = `body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; }
.message { padding: 0.75rem 1rem; margin: 0.5rem 0; border-radius: 6px; }
.message.user { background: #eef3fb; }
.message.agent { background: #f6f6f6; }
.message.error { background: #fbeeee; color: #8a1f1f; }
pre { background: #22272e; color: #e6edf3; padding: 0.75rem; overflow-x: auto; border-radius: 4px; }
code.inline-code { background: #eceff4; padding: 0 0.25em; border-radius: 3px; }
`
