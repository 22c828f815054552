package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"bookdesk/ai"
)

const bookSearchRowCap = 8

// NoBooksFound is the catalog answer when retrieval matches nothing.
const NoBooksFound = "I couldn't find any books in our catalog matching that. Could you try a different title, author or genre?"

// Generator is the slice of the LLM gateway the catalog search needs.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPayload string, opts ...ai.CallOption) (string, error)
}

// BookSearch answers catalog questions by retrieving matching books and
// letting the model phrase a recommendation grounded on them.
type BookSearch struct {
	catalog *Catalog
	gen     Generator
}

func NewBookSearch(catalog *Catalog, gen Generator) *BookSearch {
	return &BookSearch{catalog: catalog, gen: gen}
}

// BookCatalogSearch retrieves up to eight books matching any term of query
// and asks the model to answer from them. When the model has nothing to say
// the retrieved titles are listed instead.
func (s *BookSearch) BookCatalogSearch(ctx context.Context, query string) (string, error) {
	books, err := s.catalog.FindBooks(ctx, query)
	if err != nil {
		return "", err
	}
	if len(books) == 0 {
		return NoBooksFound, nil
	}

	sys, user := ai.BuildBookSearchPrompt(query, books)
	answer, err := s.gen.Generate(ctx, sys, user)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(answer) == "" {
		s.catalog.logger.Debug("book search degraded to listing", zap.Int("books", len(books)))
		return listBooks(books), nil
	}
	return answer, nil
}

// FindBooks matches query terms against title, author and category.
func (c *Catalog) FindBooks(ctx context.Context, query string) ([]map[string]any, error) {
	terms := searchTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	match := squirrel.Or{}
	for _, t := range terms {
		pattern := "%" + t + "%"
		match = append(match,
			squirrel.Like{"LOWER(b.title)": pattern},
			squirrel.Like{"LOWER(b.author)": pattern},
			squirrel.Like{"LOWER(b.category)": pattern},
		)
	}

	rows, err := c.query(ctx, c.sb.
		Select("b.title", "b.author", "b.category", "b.price", "b.stock_quantity").
		From("book b").
		Where(match).
		OrderBy("b.stock_quantity DESC", "b.title"), bookSearchRowCap)
	if err != nil {
		return nil, fmt.Errorf("book search: %w", err)
	}
	return rows, nil
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "book": true, "books": true,
	"about": true, "any": true, "have": true, "you": true, "some": true, "by": true,
	"recommend": true, "looking": true, "want": true, "something": true,
}

func searchTerms(query string) []string {
	seen := map[string]bool{}
	var terms []string
	for _, w := range strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !(r == '\'' || r == '-' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r > 127)
	}) {
		w = escapeLike(w)
		if len([]rune(w)) < 3 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
		if len(terms) == 5 {
			break
		}
	}
	return terms
}

func listBooks(books []map[string]any) string {
	var b strings.Builder
	b.WriteString("Here is what we have that matches:\n")
	for _, book := range books {
		b.WriteString(fmt.Sprintf("- %v by %v (%v)\n", book["title"], book["author"], book["price"]))
	}
	return strings.TrimSpace(b.String())
}
