package tui

import (
	"fmt"
	"strings"

	"studio-cli/internal/richtext"
)

// ─── Welcome Screen ─────────────────────────────────────────────────────────

func renderWelcome(version, server, workflow string, width int) string {
	titleLine := logoTitleStyle.Render("Agent Studio CLI") + " " + versionStyle.Render("v"+version)

	var infoLine string
	if server == "" {
		infoLine = welcomeHintStyle.Render("Type /set server <url> to get started")
	} else {
		serverDisplay := server
		if len(serverDisplay) > 40 {
			serverDisplay = serverDisplay[:37] + "..."
		}
		workflowDisplay := dimStyle.Render("no workflow")
		if workflow != "" {
			workflowDisplay = workflow
			if len(workflowDisplay) > 36 {
				workflowDisplay = workflowDisplay[:33] + "..."
			}
		}
		infoLine = welcomeInfoLabel.Render(fmt.Sprintf("%s · %s", serverDisplay, workflowDisplay))
	}

	logo := renderLogo()
	return fmt.Sprintf("\n%s\n\n%s\n%s\n", logo, titleLine, infoLine)
}

const studioLogo = `
      ..................
    ......................
   .....              .....
  ....    ##########    ....
  ...    ##        ##    ...
  ...   ##  ++  ++  ##   ...
  ...   ##          ##   ...
  ...   ##  ++++++  ##   ...
  ...    ##        ##    ...
  ....    ##########    ....
   .....              .....
    ......................
      ..................
`

func renderLogo() string {
	lines := strings.Split(studioLogo, "\n")
	lines = trimEmptyEdgeLines(lines)

	minIndent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := countLeadingSpaces(line)
		if minIndent == -1 || indent < minIndent {
			minIndent = indent
		}
	}

	for i, line := range lines {
		line = strings.TrimRight(line, " ")
		if minIndent > 0 && len(line) >= minIndent {
			line = line[minIndent:]
		}
		lines[i] = colorizeLogoLine(line)
	}

	return strings.Join(lines, "\n")
}

func trimEmptyEdgeLines(lines []string) []string {
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}

	end := len(lines)
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}

func countLeadingSpaces(s string) int {
	i := 0
	for i < len(s) && s[i] == ' ' {
		i++
	}
	return i
}

// colorizeLogoLine styles the frame dots gray and the bot core violet,
// batching runs of same-style characters into single Render calls.
func colorizeLogoLine(line string) string {
	const (
		stylePlain = iota
		styleFrame
		styleCore
	)

	styleFor := func(r rune) int {
		switch r {
		case '.':
			return styleFrame
		case '#', '+':
			return styleCore
		default:
			return stylePlain
		}
	}

	render := func(style int, s string) string {
		switch style {
		case styleFrame:
			return logoFrameStyle.Render(s)
		case styleCore:
			return logoCoreStyle.Render(s)
		default:
			return s
		}
	}

	var out strings.Builder
	var run strings.Builder
	currentStyle := stylePlain
	first := true

	flush := func() {
		if run.Len() == 0 {
			return
		}
		out.WriteString(render(currentStyle, run.String()))
		run.Reset()
	}

	for _, r := range line {
		nextStyle := styleFor(r)
		if first {
			currentStyle = nextStyle
			first = false
		} else if nextStyle != currentStyle {
			flush()
			currentStyle = nextStyle
		}
		run.WriteRune(r)
	}

	flush()
	return out.String()
}

// ─── Answer rendering ───────────────────────────────────────────────────────

// renderAnswer formats a reply through the rich-text pipeline and renders
// it as indented ANSI text. Code blocks come back numbered so /copy can
// address them; the returned blocks are in display order.
func renderAnswer(text string) (string, []richtext.CodeBlock) {
	segments := richtext.Format(text)

	var blocks []richtext.CodeBlock
	var out strings.Builder
	for _, seg := range segments {
		switch seg.Kind {
		case richtext.SegmentHTML:
			out.WriteString(richtext.RenderTerminal([]richtext.Segment{seg}))
		case richtext.SegmentCode:
			blocks = append(blocks, seg.Code)
			out.WriteString(dimStyle.Render(fmt.Sprintf("\n  [%d]", len(blocks))))
			out.WriteString(richtext.RenderTerminal([]richtext.Segment{seg}))
		}
	}

	return indentText(strings.Trim(out.String(), "\n"), "  "), blocks
}

func indentText(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

func truncateID(s string) string {
	if len(s) > 20 {
		return s[:8] + "..." + s[len(s)-4:]
	}
	return s
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
