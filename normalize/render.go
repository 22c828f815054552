package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// StructuredAnswer is the JSON shape synthesizing prompts ask for.
type StructuredAnswer struct {
	Overview           string   `json:"overview"`
	Metrics            []Metric `json:"metrics"`
	Insights           []string `json:"insights"`
	RecommendedActions []string `json:"recommendedActions"`
	SQLExamples        []string `json:"sqlExamples"`
	Sources            []Source `json:"sources"`
}

type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Source struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

func (a *StructuredAnswer) empty() bool {
	return strings.TrimSpace(a.Overview) == "" && len(a.Metrics) == 0 && len(a.Insights) == 0 &&
		len(a.RecommendedActions) == 0 && len(a.SQLExamples) == 0 && len(a.Sources) == 0
}

// Rendered holds the user-facing forms of one answer.
type Rendered struct {
	Summary  string
	Plain    string
	Markdown string
}

// RenderAnswer renders a model answer. Anything that is not a usable
// structured answer is returned as-is in every field.
func RenderAnswer(raw string) Rendered {
	res := Normalize(raw)
	fallback := Rendered{Summary: res.Text, Plain: res.Text, Markdown: res.Text}
	if res.Kind != StructuredJSON {
		return fallback
	}

	var answer StructuredAnswer
	if err := res.Decode(&answer); err != nil || answer.empty() {
		return fallback
	}

	md := BuildMarkdown(&answer)
	summary := strings.TrimSpace(answer.Overview)
	plain := MarkdownToPlain(md)
	if summary == "" {
		summary = plain
	}
	return Rendered{Summary: summary, Plain: plain, Markdown: md}
}

// BuildMarkdown lays a structured answer out as a markdown document.
func BuildMarkdown(a *StructuredAnswer) string {
	var b strings.Builder
	if o := strings.TrimSpace(a.Overview); o != "" {
		b.WriteString(o)
		b.WriteString("\n\n")
	}
	if len(a.Metrics) > 0 {
		b.WriteString("### Key metrics\n")
		for _, m := range a.Metrics {
			b.WriteString(fmt.Sprintf("- **%s:** %s\n", strings.TrimSpace(m.Label), strings.TrimSpace(m.Value)))
		}
		b.WriteString("\n")
	}
	writeList(&b, "Insights", a.Insights, false)
	writeList(&b, "Recommended actions", a.RecommendedActions, true)
	if len(a.SQLExamples) > 0 {
		b.WriteString("### SQL examples\n")
		for _, q := range a.SQLExamples {
			b.WriteString("```sql\n")
			b.WriteString(strings.TrimSpace(q))
			b.WriteString("\n```\n")
		}
		b.WriteString("\n")
	}
	if len(a.Sources) > 0 {
		b.WriteString("### Sources\n")
		for _, s := range a.Sources {
			label := strings.TrimSpace(s.Label)
			if label == "" {
				label = s.URL
			}
			if s.URL != "" {
				b.WriteString(fmt.Sprintf("- [%s](%s)\n", label, s.URL))
			} else {
				b.WriteString(fmt.Sprintf("- %s\n", label))
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func writeList(b *strings.Builder, title string, items []string, numbered bool) {
	if len(items) == 0 {
		return
	}
	b.WriteString("### " + title + "\n")
	for i, item := range items {
		if numbered {
			b.WriteString(fmt.Sprintf("%d. %s\n", i+1, strings.TrimSpace(item)))
		} else {
			b.WriteString("- " + strings.TrimSpace(item) + "\n")
		}
	}
	b.WriteString("\n")
}

var (
	imagePattern      = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	linkPattern       = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	headingPattern    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	blankRuns         = regexp.MustCompile(`\n{3,}`)
	strongStars       = regexp.MustCompile(`\*\*(\S(?:[^*\n]*?\S)?)\*\*`)
	strongUnderscores = regexp.MustCompile(`__(\S(?:[^_\n]*?\S)?)__`)
)

// MarkdownToPlain drops bold markers, code fences and images, and replaces
// links with their label.
func MarkdownToPlain(md string) string {
	lines := strings.Split(md, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	s := strings.Join(kept, "\n")

	s = imagePattern.ReplaceAllString(s, "")
	s = linkPattern.ReplaceAllString(s, "$1")
	s = unwrapStrong(s, strongStars, false)
	s = unwrapStrong(s, strongUnderscores, true)
	s = headingPattern.ReplaceAllString(s, "")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// unwrapStrong removes paired bold markers that stand apart from the
// surrounding words. Markers touching a letter or digit on the outside are
// left alone, as in my__var or 2**8. With keepIdents set a single identifier
// between the markers is kept as written, so __init__ survives.
func unwrapStrong(s string, re *regexp.Regexp, keepIdents bool) string {
	var b strings.Builder
	last := 0
	for _, m := range re.FindAllStringSubmatchIndex(s, -1) {
		start, end := m[0], m[1]
		inner := s[m[2]:m[3]]
		if wordBefore(s, start) || wordAfter(s, end) || (keepIdents && isIdent(inner)) {
			continue
		}
		b.WriteString(s[last:start])
		b.WriteString(inner)
		last = end
	}
	if last == 0 {
		return s
	}
	b.WriteString(s[last:])
	return b.String()
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func wordBefore(s string, i int) bool {
	r, n := utf8.DecodeLastRuneInString(s[:i])
	return n > 0 && isWordRune(r)
}

func wordAfter(s string, i int) bool {
	r, n := utf8.DecodeRuneInString(s[i:])
	return n > 0 && isWordRune(r)
}

func isIdent(s string) bool {
	for _, r := range s {
		if !isWordRune(r) {
			return false
		}
	}
	return true
}
