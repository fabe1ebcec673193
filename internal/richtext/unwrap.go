package richtext

import (
	"encoding/json"
	"regexp"
	"strings"
)

// unwrapKeys is the ordered key list searched when a message arrives as a
// JSON object wrapping the actual reply text.
var unwrapKeys = []string{"content", "text", "response", "reply", "message", "output", "result"}

// arrayLikeRe matches a permissive bracketed literal of quoted strings —
// output that resembles a JSON array but fails strict parsing (trailing
// commas, mixed quote styles). Only the overall shape is checked here;
// token extraction happens separately.
var arrayLikeRe = regexp.MustCompile(`^\s*\[[\s\S]*\]\s*$`)

// quotedTokenRe captures individual single- or double-quoted tokens inside
// an array-like literal.
var quotedTokenRe = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"|'((?:[^'\\]|\\.)*)'`)

// Unwrap peels one layer of JSON wrapping off a raw message, if present.
// A strict JSON array yields its last element when that is a non-empty
// string; a strict JSON object yields the first non-empty string under the
// ordered key list; an array-like literal that fails strict parsing yields
// its last quoted token. Anything else is returned verbatim. Unwrap never
// fails: every fallback simply falls through to the next.
func Unwrap(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		switch v := parsed.(type) {
		case []interface{}:
			if len(v) > 0 {
				if s, ok := v[len(v)-1].(string); ok && strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s)
				}
			}
			return raw
		case map[string]interface{}:
			for _, key := range unwrapKeys {
				if s, ok := v[key].(string); ok && s != "" {
					return s
				}
			}
			return raw
		default:
			return raw
		}
	}

	// Not valid JSON. Try the permissive array-literal fallback.
	if arrayLikeRe.MatchString(trimmed) {
		if last := lastQuotedToken(trimmed); last != "" {
			return last
		}
	}

	return raw
}

// lastQuotedToken returns the final non-empty quoted token of an array-like
// literal, with simple backslash escapes resolved.
func lastQuotedToken(s string) string {
	matches := quotedTokenRe.FindAllStringSubmatch(s, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		token := matches[i][1]
		if token == "" {
			token = matches[i][2]
		}
		token = unescapeQuoted(token)
		if strings.TrimSpace(token) != "" {
			return strings.TrimSpace(token)
		}
	}
	return ""
}

// unescapeQuoted resolves the escapes that matter for display. This is a
// bounded tokenizer, not an evaluator: unknown escapes keep their backslash.
func unescapeQuoted(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			out.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			out.WriteByte('\n')
		case 't':
			out.WriteByte('\t')
		case '"', '\'', '\\':
			out.WriteByte(s[i])
		default:
			out.WriteByte('\\')
			out.WriteByte(s[i])
		}
	}
	return out.String()
}
