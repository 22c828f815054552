package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripWrapper(t *testing.T) {
	t.Run("Should remove fences whatever the tag", func(t *testing.T) {
		for _, tag := range []string{"", "json", "sql", "tsql", "markdown", "anything"} {
			wrapped := "```" + tag + "\nSELECT title FROM book\n```"
			assert.Equal(t, "SELECT title FROM book", StripWrapper(wrapped), tag)
		}
	})

	t.Run("Should return the fenced body byte for byte", func(t *testing.T) {
		tags := []string{"", "sql", "json", "python", "c++", "T-SQL", "anything"}
		texts := []string{
			"",
			"SELECT 1",
			"  SELECT 1",
			"SELECT 1   ",
			"line1\n  indented\n",
			"\n\nafter blank lines",
			"\tTabbed\r\n",
			"has ``` inside",
			"```",
			"ends with a fence\n```",
		}
		for _, tag := range tags {
			for _, text := range texts {
				wrapped := "```" + tag + "\n" + text + "\n```"
				assert.Equal(t, text, StripWrapper(wrapped), "tag %q text %q", tag, text)
			}
		}
	})

	t.Run("Should handle a fence on a single line", func(t *testing.T) {
		assert.Equal(t, "SELECT 1", StripWrapper("```sql SELECT 1```"))
		assert.Equal(t, "print(1)", StripWrapper("```python print(1)```"))
		assert.Equal(t, "SELECT 1", StripWrapper("``` SELECT 1```"))
	})

	t.Run("Should leave unwrapped text alone apart from spacing", func(t *testing.T) {
		assert.Equal(t, "Which month do you mean?", StripWrapper("  Which month do you mean?\n"))
	})

	t.Run("Should return empty for an empty fence", func(t *testing.T) {
		assert.Empty(t, StripWrapper("```\n```"))
	})
}

func TestNormalize(t *testing.T) {
	t.Run("Should pull an object out of surrounding noise", func(t *testing.T) {
		res := Normalize(`noise {"a":1} noise`)
		require.Equal(t, StructuredJSON, res.Kind)
		assert.Equal(t, `{"a":1}`, res.JSON)

		var v map[string]int
		require.NoError(t, res.Decode(&v))
		assert.Equal(t, 1, v["a"])
	})

	t.Run("Should accept fenced JSON", func(t *testing.T) {
		res := Normalize("```json\n{\"summary\":\"ok\",\"steps\":[]}\n```")
		assert.Equal(t, StructuredJSON, res.Kind)
		assert.Equal(t, `{"summary":"ok","steps":[]}`, res.JSON)
	})

	t.Run("Should treat text without an object as plain", func(t *testing.T) {
		res := Normalize("Sales rose by 4%.")
		assert.Equal(t, PlainText, res.Kind)
		assert.Equal(t, "Sales rose by 4%.", res.Text)
		assert.ErrorIs(t, res.Decode(&struct{}{}), ErrNotStructured)
	})

	t.Run("Should treat broken JSON as plain", func(t *testing.T) {
		res := Normalize(`{"a": }`)
		assert.Equal(t, PlainText, res.Kind)
	})

	t.Run("Should mark empty output unparseable", func(t *testing.T) {
		assert.Equal(t, Unparseable, Normalize("   ").Kind)
		assert.Equal(t, "unparseable", Unparseable.String())
	})
}

func TestExtractJSONObject(t *testing.T) {
	t.Run("Should return empty without braces", func(t *testing.T) {
		assert.Empty(t, ExtractJSONObject("no braces here"))
		assert.Empty(t, ExtractJSONObject("} then {"))
	})

	t.Run("Should keep braces inside strings", func(t *testing.T) {
		in := `{"overview":"use {curly} braces"}`
		assert.Equal(t, in, ExtractJSONObject(in))
	})
}

func TestRenderAnswer(t *testing.T) {
	t.Run("Should render a structured answer", func(t *testing.T) {
		raw := `{"overview":"Revenue grew.","metrics":[{"label":"Revenue","value":"65.00"}],` +
			`"insights":["Dune leads"],"recommendedActions":["Restock Neuromancer"],` +
			`"sources":[{"label":"Sales ledger","url":"https://example.com/ledger"}]}`

		r := RenderAnswer(raw)
		assert.Equal(t, "Revenue grew.", r.Summary)
		assert.Contains(t, r.Markdown, "### Key metrics\n- **Revenue:** 65.00")
		assert.Contains(t, r.Markdown, "1. Restock Neuromancer")
		assert.Contains(t, r.Markdown, "[Sales ledger](https://example.com/ledger)")

		assert.Contains(t, r.Plain, "- Revenue: 65.00")
		assert.Contains(t, r.Plain, "Sales ledger")
		assert.NotContains(t, r.Plain, "**")
		assert.NotContains(t, r.Plain, "###")
		assert.NotContains(t, r.Plain, "https://")
	})

	t.Run("Should fall back to the raw text", func(t *testing.T) {
		r := RenderAnswer("```\nJust a sentence.\n```")
		assert.Equal(t, Rendered{Summary: "Just a sentence.", Plain: "Just a sentence.", Markdown: "Just a sentence."}, r)
	})

	t.Run("Should fall back when the object has none of the fields", func(t *testing.T) {
		r := RenderAnswer(`{"foo":1}`)
		assert.Equal(t, `{"foo":1}`, r.Summary)
	})

	t.Run("Should use the plain text as summary without an overview", func(t *testing.T) {
		r := RenderAnswer(`{"insights":["Emma is low on stock"]}`)
		assert.Equal(t, "Insights\n- Emma is low on stock", r.Summary)
	})
}

func TestMarkdownToPlain(t *testing.T) {
	t.Run("Should drop fences, images and emphasis and keep link labels", func(t *testing.T) {
		md := "See [docs](http://x) ![cover](http://y.png)\n```sql\nSELECT 1\n```\n__bold text__ and **strong**"
		assert.Equal(t, "See docs \nSELECT 1\nbold text and strong", MarkdownToPlain(md))
	})

	t.Run("Should leave identifiers with double underscores intact", func(t *testing.T) {
		for _, text := range []string{
			"call __init__ on my__var",
			"set __all__ before import",
			"snake__case and other__thing",
			"2**8 is 256 and 3**2 is 9",
		} {
			assert.Equal(t, text, MarkdownToPlain(text))
		}
	})

	t.Run("Should strip only paired emphasis next to identifiers", func(t *testing.T) {
		assert.Equal(t, "call __init__ on a fresh book",
			MarkdownToPlain("call __init__ on **a fresh** book"))
		assert.Equal(t, "Total: 12 and my__var", MarkdownToPlain("**Total:** 12 and my__var"))
		assert.Equal(t, "unpaired ** marker stays", MarkdownToPlain("unpaired ** marker stays"))
	})

	t.Run("Should collapse blank runs", func(t *testing.T) {
		got := MarkdownToPlain("## Title\n\n\n\nBody")
		assert.Equal(t, "Title\n\nBody", got)
		assert.False(t, strings.Contains(got, "\n\n\n"))
	})
}
