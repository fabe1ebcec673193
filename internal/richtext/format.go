package richtext

import (
	"fmt"
	"regexp"
	"strings"
)

// SegmentKind discriminates the two members of the render plan.
type SegmentKind int

const (
	SegmentHTML SegmentKind = iota
	SegmentCode
)

// Segment is one ordered unit of the final render plan: either an HTML
// fragment or an extracted code block.
type Segment struct {
	Kind SegmentKind
	HTML string
	Code CodeBlock
}

// Format turns a raw message string into a safe, ordered render plan.
// The pipeline is fixed: unwrap, mask code fences, HTML-escape, rich-text
// pass, linkify, reinsert code blocks. Format is pure — the same input
// always produces the same output — and never panics on any string.
func Format(raw string) []Segment {
	text := Unwrap(raw)
	masked, blocks := maskFences(text)
	escaped := escapeHTML(masked)

	html := escaped
	if hasRichTextTriggers(escaped) {
		html = richPass(escaped)
	}
	html = linkify(html)

	return splitSegments(html, blocks)
}

// escapeHTML escapes the five characters that matter for HTML embedding.
// Ampersand goes first so entities are not double-escaped.
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	s = strings.ReplaceAll(s, "'", "&#39;")
	return s
}

// listLineRe matches an ordered or unordered list line, capturing the
// indentation, the marker, and the content.
var listLineRe = regexp.MustCompile(`^(\s*)(\d+\.|[-•])\s+(.*)$`)

var (
	headingRe    = regexp.MustCompile(`^(#{2,6}) (.*)$`)
	hrRe         = regexp.MustCompile(`^-{3,}$`)
	boldRe       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	inlineCodeRe = regexp.MustCompile("`([^`\n]+)`")
	triggerRe    = regexp.MustCompile(`(?m)^\s*(?:\d+\.|[-•])\s`)
)

// hasRichTextTriggers is a short-circuit, not a correctness gate: text
// without any marker renders unchanged through the rich pass anyway.
func hasRichTextTriggers(s string) bool {
	return strings.Contains(s, "##") ||
		strings.Contains(s, "**") ||
		strings.Contains(s, "`") ||
		triggerRe.MatchString(s)
}

// renderInline applies the intra-line substitutions. Code spans are
// masked behind sentinels before the bold pass runs, so markup inside a
// span never undergoes substitution, then reinserted.
func renderInline(s string) string {
	var spans []string
	s = inlineCodeRe.ReplaceAllStringFunc(s, func(m string) string {
		inner := m[1 : len(m)-1]
		spans = append(spans, `<code class="inline-code">`+inner+`</code>`)
		return fmt.Sprintf("\x00inline-%d\x00", len(spans)-1)
	})
	s = boldRe.ReplaceAllString(s, "<strong>$1</strong>")
	for i, span := range spans {
		s = strings.Replace(s, fmt.Sprintf("\x00inline-%d\x00", i), span, 1)
	}
	return s
}

// listFrame is one open list context while converting line-oriented list
// markup to nested HTML.
type listFrame struct {
	ordered  bool
	indent   int
	itemOpen bool
}

// richPass converts line-oriented markup to HTML. Lists are handled with
// an explicit stack of open contexts keyed by indentation depth and kind;
// every frame pushed is popped before the pass returns.
func richPass(text string) string {
	lines := strings.Split(text, "\n")
	var out strings.Builder
	var stack []listFrame

	closeTop := func() {
		top := &stack[len(stack)-1]
		if top.itemOpen {
			out.WriteString("</li>")
		}
		if top.ordered {
			out.WriteString("</ol>")
		} else {
			out.WriteString("</ul>")
		}
		stack = stack[:len(stack)-1]
	}
	closeAll := func() {
		for len(stack) > 0 {
			closeTop()
		}
	}

	for i, line := range lines {
		if m := listLineRe.FindStringSubmatch(line); m != nil {
			indent := len(m[1])
			ordered := m[2] != "-" && m[2] != "•"
			content := renderInline(m[3])

			// Shallower indentation pops contexts until depths match.
			for len(stack) > 0 && indent < stack[len(stack)-1].indent {
				closeTop()
			}
			// A kind change at the same depth closes and reopens.
			if len(stack) > 0 && indent == stack[len(stack)-1].indent &&
				ordered != stack[len(stack)-1].ordered {
				closeTop()
			}
			// Deeper indentation (or no list at all) opens a new context,
			// nested inside the currently open item when there is one.
			if len(stack) == 0 || indent > stack[len(stack)-1].indent {
				if ordered {
					out.WriteString("<ol>")
				} else {
					out.WriteString("<ul>")
				}
				stack = append(stack, listFrame{ordered: ordered, indent: indent})
			}

			top := &stack[len(stack)-1]
			if top.itemOpen {
				out.WriteString("</li>")
			}
			out.WriteString("<li>")
			out.WriteString(content)
			top.itemOpen = true
			continue
		}

		if strings.TrimSpace(line) == "" {
			if len(stack) == 0 {
				out.WriteString("\n")
				continue
			}
			// Lookahead: a blank line inside a list only closes the current
			// item when the list continues afterwards; otherwise it ends
			// every open list.
			if nextNonBlankIsList(lines, i+1) {
				top := &stack[len(stack)-1]
				if top.itemOpen {
					out.WriteString("</li>")
					top.itemOpen = false
				}
			} else {
				closeAll()
				out.WriteString("\n")
			}
			continue
		}

		// Non-list, non-blank line.
		if len(stack) > 0 {
			// Continuation text inside the current item.
			out.WriteString("<br/>")
			out.WriteString(renderInline(line))
			continue
		}

		if m := headingRe.FindStringSubmatch(line); m != nil {
			level := len(m[1])
			tag := "h" + string(rune('0'+level))
			out.WriteString("<" + tag + ">")
			out.WriteString(renderInline(m[2]))
			out.WriteString("</" + tag + ">")
			continue
		}
		if hrRe.MatchString(strings.TrimSpace(line)) {
			out.WriteString("<hr/>")
			continue
		}

		out.WriteString(renderInline(line))
		out.WriteString("\n")
	}

	closeAll()
	return out.String()
}

// nextNonBlankIsList looks ahead from index i for the next non-blank line
// and reports whether it continues a list.
func nextNonBlankIsList(lines []string, i int) bool {
	for ; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		return listLineRe.MatchString(lines[i])
	}
	return false
}

// ─── Links ──────────────────────────────────────────────────────────────────

var (
	mdLinkRe  = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^)\s]+)\)`)
	bareURLRe = regexp.MustCompile(`(^|[\s([{;])(https?://[^\s<>"')]+)`)
)

// linkify converts markdown links to anchors first, then any remaining
// bare URLs. Markdown links go first so the bare-URL pass never touches a
// URL that already sits inside an anchor: generated hrefs are preceded by
// a raw double quote, which the bare-URL boundary class excludes (original
// quotes were escaped to entities before this point).
func linkify(html string) string {
	html = mdLinkRe.ReplaceAllString(html,
		`<a href="$2" target="_blank" rel="noopener noreferrer">$1</a>`)
	html = bareURLRe.ReplaceAllString(html,
		`$1<a href="$2" target="_blank" rel="noopener noreferrer">$2</a>`)
	return html
}

// ─── Segment split ──────────────────────────────────────────────────────────

// splitSegments cuts the final HTML at sentinel positions, in the order
// the sentinels appear in the string, producing the interleaved render
// plan. Empty HTML fragments between adjacent blocks are dropped.
func splitSegments(html string, blocks []CodeBlock) []Segment {
	byToken := make(map[string]CodeBlock, len(blocks))
	for _, b := range blocks {
		byToken[b.Token] = b
	}

	var segments []Segment
	rest := html
	for {
		start := strings.Index(rest, sentinelPrefix)
		if start < 0 {
			break
		}
		end := strings.Index(rest[start+1:], sentinelSuffix)
		if end < 0 {
			break
		}
		token := rest[start : start+1+end+1]
		block, ok := byToken[token]
		if !ok {
			break
		}

		if before := rest[:start]; before != "" {
			segments = append(segments, Segment{Kind: SegmentHTML, HTML: before})
		}
		segments = append(segments, Segment{Kind: SegmentCode, Code: block})
		rest = rest[start+len(token):]
	}
	if rest != "" || len(segments) == 0 {
		segments = append(segments, Segment{Kind: SegmentHTML, HTML: rest})
	}
	return segments
}
