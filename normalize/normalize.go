// Package normalize turns raw model output into one of three shapes and
// renders structured answers as markdown and plain text.
package normalize

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

// Kind tags a normalized model answer.
type Kind int

const (
	Unparseable Kind = iota
	PlainText
	StructuredJSON
)

func (k Kind) String() string {
	switch k {
	case PlainText:
		return "plain_text"
	case StructuredJSON:
		return "structured_json"
	default:
		return "unparseable"
	}
}

// Result is the single normalized form of a model answer. Text always holds
// the unwrapped answer; JSON is set only for StructuredJSON.
type Result struct {
	Kind Kind
	Text string
	JSON string
}

var ErrNotStructured = errors.New("answer is not structured JSON")

// Decode unmarshals the JSON object into v.
func (r Result) Decode(v any) error {
	if r.Kind != StructuredJSON {
		return ErrNotStructured
	}
	return json.Unmarshal([]byte(r.JSON), v)
}

// Normalize classifies raw model output.
func Normalize(raw string) Result {
	text := strings.TrimSpace(StripWrapper(raw))
	if text == "" {
		return Result{Kind: Unparseable}
	}
	if obj := ExtractJSONObject(text); obj != "" && gjson.Valid(obj) {
		return Result{Kind: StructuredJSON, Text: text, JSON: obj}
	}
	return Result{Kind: PlainText, Text: text}
}

const fence = "```"

// StripWrapper removes a fenced code block wrapper, whatever the language
// tag. For a fence spanning lines only the opening line and the closing
// "\n```" are dropped, so the body comes back byte for byte. On a single
// line the first word after the opening fence is taken as the tag. Text
// without a fence is returned trimmed.
func StripWrapper(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, fence) {
		return strings.TrimSpace(strings.TrimSuffix(s, fence))
	}
	s = s[len(fence):]
	nl := strings.IndexByte(s, '\n')
	if nl < 0 {
		s = strings.TrimSuffix(s, fence)
		if s != "" && s[0] != ' ' && s[0] != '\t' {
			_, s, _ = strings.Cut(s, " ")
		}
		return strings.TrimSpace(s)
	}
	body := s[nl+1:]
	switch {
	case body == fence:
		return ""
	case strings.HasSuffix(body, "\n"+fence):
		return body[:len(body)-len(fence)-1]
	default:
		return strings.TrimSuffix(body, fence)
	}
}

// ExtractJSONObject returns the trimmed text when it already is a balanced
// object, otherwise the span from the first '{' to the last '}'. It returns ""
// when there is no such span.
func ExtractJSONObject(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") && balanced(s) {
		return s
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// balanced checks brace nesting outside of JSON strings.
func balanced(s string) bool {
	depth := 0
	inString := false
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case inString && r == '\\':
			escaped = true
		case r == '"':
			inString = !inString
		case inString:
		case r == '{':
			depth++
		case r == '}':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0 && !inString
}
