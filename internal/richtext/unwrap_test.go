package richtext

import "testing"

func TestUnwrap(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "plain text verbatim",
			raw:  "just an answer",
			want: "just an answer",
		},
		{
			name: "json array takes last string",
			raw:  `["intermediate thought", "final answer"]`,
			want: "final answer",
		},
		{
			name: "json array non-string last element verbatim",
			raw:  `["a", 42]`,
			want: `["a", 42]`,
		},
		{
			name: "json array empty verbatim",
			raw:  `[]`,
			want: `[]`,
		},
		{
			name: "json object content key",
			raw:  `{"content": "the reply"}`,
			want: "the reply",
		},
		{
			name: "key order content before text",
			raw:  `{"text": "second", "content": "first"}`,
			want: "first",
		},
		{
			name: "non-string value skipped for next key",
			raw:  `{"content": 5, "text": "hi"}`,
			want: "hi",
		},
		{
			name: "object without known keys verbatim",
			raw:  `{"foo": "bar"}`,
			want: `{"foo": "bar"}`,
		},
		{
			name: "scalar json verbatim",
			raw:  `42`,
			want: `42`,
		},
		{
			name: "array-like literal with single quotes",
			raw:  `['step one', 'step two']`,
			want: "step two",
		},
		{
			name: "array-like literal with trailing comma",
			raw:  `["a", "b",]`,
			want: "b",
		},
		{
			name: "array-like resolves simple escapes",
			raw:  `['line1\nline2']`,
			want: "line1\nline2",
		},
		{
			name: "array-like unknown escape keeps backslash",
			raw:  `['path\d+',]`,
			want: `path\d+`,
		},
		{
			name: "empty string verbatim",
			raw:  "",
			want: "",
		},
		{
			name: "whitespace verbatim",
			raw:  "   ",
			want: "   ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Unwrap(tt.raw)
			if got != tt.want {
				t.Errorf("Unwrap(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestUnescapeQuoted(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`plain`, "plain"},
		{`a\nb`, "a\nb"},
		{`a\tb`, "a\tb"},
		{`a\"b`, `a"b`},
		{`a\'b`, "a'b"},
		{`a\\b`, `a\b`},
		{`a\zb`, `a\zb`},
		{`trailing\`, `trailing\`},
	}
	for _, tt := range tests {
		got := unescapeQuoted(tt.in)
		if got != tt.want {
			t.Errorf("unescapeQuoted(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
