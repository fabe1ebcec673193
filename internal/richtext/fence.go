package richtext

import (
	"fmt"
	"strings"
)

// CodeBlock is a fenced code region lifted out of the text before any
// escaping or markdown substitution can touch it. Token is the sentinel
// placeholder left behind in the masked text.
type CodeBlock struct {
	Token string
	Lang  string
	Code  string
}

// Sentinel format. NUL bytes cannot survive the journey from an LLM
// response through JSON decoding as printable text, so they make a
// collision-safe delimiter that also passes HTML-escaping untouched.
const sentinelPrefix = "\x00code-block-"
const sentinelSuffix = "\x00"

func sentinelToken(n int) string {
	return fmt.Sprintf("%s%d%s", sentinelPrefix, n, sentinelSuffix)
}

// maskFences replaces every fenced code block (``` or ~~~, optional
// language tag on the opening fence) with a sentinel token and returns the
// masked text plus the extracted blocks. The code keeps its exact bytes,
// minus the single newline that precedes the closing fence. An opening
// fence with no matching close is left in place as ordinary text.
func maskFences(text string) (string, []CodeBlock) {
	lines := strings.Split(text, "\n")
	var out []string
	var blocks []CodeBlock

	for i := 0; i < len(lines); i++ {
		marker, lang, ok := openFence(lines[i])
		if !ok {
			out = append(out, lines[i])
			continue
		}

		end := -1
		for j := i + 1; j < len(lines); j++ {
			if closesFence(lines[j], marker) {
				end = j
				break
			}
		}
		if end < 0 {
			// Unterminated fence: not a block.
			out = append(out, lines[i])
			continue
		}

		block := CodeBlock{
			Token: sentinelToken(len(blocks)),
			Lang:  lang,
			Code:  strings.Join(lines[i+1:end], "\n"),
		}
		blocks = append(blocks, block)
		out = append(out, block.Token)
		i = end
	}

	return strings.Join(out, "\n"), blocks
}

// openFence reports whether a line opens a fenced block, returning the
// fence character and the language tag.
func openFence(line string) (marker byte, lang string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < 3 {
		return 0, "", false
	}
	c := trimmed[0]
	if c != '`' && c != '~' {
		return 0, "", false
	}
	n := 0
	for n < len(trimmed) && trimmed[n] == c {
		n++
	}
	if n < 3 {
		return 0, "", false
	}
	rest := strings.TrimSpace(trimmed[n:])
	// A language tag is a single bare token; anything with spaces or fence
	// characters is not an opening fence we recognize.
	if strings.ContainsAny(rest, " \t`~") {
		return 0, "", false
	}
	return c, rest, true
}

// closesFence reports whether a line closes a block opened with marker.
func closesFence(line string, marker byte) bool {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < 3 {
		return false
	}
	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] != marker {
			return false
		}
	}
	return true
}
