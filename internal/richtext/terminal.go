package richtext

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

const (
	ansiReset     = "\033[0m"
	ansiBold      = "\033[1m"
	ansiDim       = "\033[2m"
	ansiUnderline = "\033[4m"
	ansiBoldCyan  = "\033[1;36m"
)

// RenderTerminal renders a formatted render plan as ANSI terminal text.
// HTML fragments get their markup mapped to ANSI styling; code blocks are
// syntax-highlighted.
func RenderTerminal(segments []Segment) string {
	var out strings.Builder
	for _, seg := range segments {
		switch seg.Kind {
		case SegmentHTML:
			out.WriteString(htmlToANSI(seg.HTML))
		case SegmentCode:
			out.WriteString(renderCodeBlock(seg.Code))
		}
	}
	return out.String()
}

// renderCodeBlock draws a highlighted code block between dim rules, the
// same frame the plain-mode renderer used for fenced regions.
func renderCodeBlock(block CodeBlock) string {
	var out strings.Builder
	out.WriteString("\n  " + ansiDim)
	if block.Lang != "" {
		out.WriteString("┌─ " + block.Lang + " ─")
	} else {
		out.WriteString("┌──")
	}
	out.WriteString(ansiReset + "\n")

	for _, line := range strings.Split(Highlight(block.Code, block.Lang), "\n") {
		out.WriteString(fmt.Sprintf("  %s│%s %s\n", ansiDim, ansiReset, line))
	}

	out.WriteString("  " + ansiDim + "└──" + ansiReset + "\n")
	return out.String()
}

// Highlight applies chroma syntax highlighting for terminal output.
// Unhighlightable input comes back unchanged.
func Highlight(code, lang string) string {
	var lexer chroma.Lexer
	if lang != "" {
		lexer = lexers.Get(lang)
	}
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, styles.Get("monokai"), iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}

// ─── HTML fragment to ANSI ──────────────────────────────────────────────────

// htmlToANSI walks an HTML fragment produced by Format and maps its tags
// to terminal styling. Only the tags Format emits are recognized; anything
// else is dropped. List nesting is tracked so bullets and numbers indent
// correctly.
func htmlToANSI(html string) string {
	var out strings.Builder

	type listCtx struct {
		ordered bool
		n       int
	}
	var lists []listCtx

	i := 0
	for i < len(html) {
		c := html[i]
		if c != '<' {
			j := strings.IndexByte(html[i:], '<')
			if j < 0 {
				out.WriteString(unescapeHTML(html[i:]))
				break
			}
			out.WriteString(unescapeHTML(html[i : i+j]))
			i += j
			continue
		}

		end := strings.IndexByte(html[i:], '>')
		if end < 0 {
			out.WriteString(unescapeHTML(html[i:]))
			break
		}
		tag := html[i+1 : i+end]
		i += end + 1

		switch {
		case tag == "strong":
			out.WriteString(ansiBold)
		case tag == "/strong":
			out.WriteString(ansiReset)
		case strings.HasPrefix(tag, "code"):
			out.WriteString(ansiDim)
		case tag == "/code":
			out.WriteString(ansiReset)
		case len(tag) == 2 && tag[0] == 'h' && tag[1] >= '2' && tag[1] <= '6':
			out.WriteString("\n" + ansiBoldCyan)
		case len(tag) == 3 && tag[0] == '/' && tag[1] == 'h' && tag[2] >= '2' && tag[2] <= '6':
			out.WriteString(ansiReset + "\n")
		case tag == "hr/":
			out.WriteString("\n" + ansiDim + strings.Repeat("─", 40) + ansiReset + "\n")
		case tag == "br/":
			out.WriteString("\n" + listIndent(len(lists)))
		case tag == "ul":
			lists = append(lists, listCtx{})
		case tag == "ol":
			lists = append(lists, listCtx{ordered: true})
		case tag == "/ul", tag == "/ol":
			if len(lists) > 0 {
				lists = lists[:len(lists)-1]
			}
			if len(lists) == 0 {
				out.WriteString("\n")
			}
		case tag == "li":
			out.WriteString("\n" + listIndent(len(lists)))
			if len(lists) > 0 {
				top := &lists[len(lists)-1]
				if top.ordered {
					top.n++
					out.WriteString(fmt.Sprintf("%d. ", top.n))
				} else {
					out.WriteString("• ")
				}
			}
		case tag == "/li":
			// position handled by the next <li> or list close
		case strings.HasPrefix(tag, "a "):
			out.WriteString(ansiUnderline)
		case tag == "/a":
			out.WriteString(ansiReset)
		}
	}

	return out.String()
}

func listIndent(depth int) string {
	if depth <= 0 {
		return ""
	}
	return strings.Repeat("  ", depth)
}

// unescapeHTML reverses escapeHTML for terminal display.
func unescapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")
	s = strings.ReplaceAll(s, "&amp;", "&")
	return s
}
