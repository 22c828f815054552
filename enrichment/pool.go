// Package enrichment fills catalog candidates with external metadata under a
// per-batch concurrency limit.
package enrichment

import (
	"context"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bookdesk/logging"
	"bookdesk/metrics"
	"bookdesk/models"
)

// Source finds metadata for a title. A nil record with a nil error means
// nothing was found.
type Source interface {
	Lookup(ctx context.Context, title string) (*models.BookRecord, error)
}

// Task enriches Target using Title. Every task in a batch must own a
// distinct Target.
type Task struct {
	Title  string
	Target *models.BookRecord
}

// Summary counts the outcome of one batch.
type Summary struct {
	Enriched int
	Failed   int
}

// DefaultLimit is twice GOMAXPROCS, kept between 2 and 8. GOMAXPROCS rather
// than NumCPU so a CPU quota on the container is respected.
func DefaultLimit() int {
	return max(2, min(8, 2*runtime.GOMAXPROCS(0)))
}

type Pool struct {
	source Source
	limit  int
	logger *zap.Logger
}

// NewPool returns a pool running at most limit lookups at once. limit <= 0
// uses DefaultLimit.
func NewPool(source Source, limit int, logger *zap.Logger) *Pool {
	if limit <= 0 {
		limit = DefaultLimit()
	}
	return &Pool{source: source, limit: limit, logger: logging.OrNop(logger).Named("enrichment")}
}

func (p *Pool) Limit() int { return p.limit }

// Enrich runs every task and waits for all of them. A failed lookup never
// cancels its siblings; its target still receives a fresh slug.
func (p *Pool) Enrich(ctx context.Context, tasks []Task) Summary {
	var enriched, failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(p.limit)
	for _, task := range tasks {
		if task.Target == nil {
			continue
		}
		g.Go(func() error {
			if p.enrichOne(ctx, task) {
				enriched.Add(1)
			} else {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return Summary{Enriched: int(enriched.Load()), Failed: int(failed.Load())}
}

func (p *Pool) enrichOne(ctx context.Context, task Task) bool {
	title := strings.TrimSpace(task.Title)
	if title == "" {
		title = task.Target.Title
	}
	defer func() { task.Target.Slug = NewSlug(title) }()

	if err := ctx.Err(); err != nil {
		metrics.EnrichedItems.WithLabelValues(metrics.OutcomeCancelled).Inc()
		return false
	}

	rec, err := p.source.Lookup(ctx, title)
	if err != nil || rec == nil {
		metrics.EnrichedItems.WithLabelValues(metrics.OutcomeFallback).Inc()
		p.logger.Debug("no metadata found", zap.String("title", title), zap.Error(err))
		return false
	}

	filled := Merge(task.Target, rec)
	metrics.EnrichedItems.WithLabelValues(metrics.OutcomeOK).Inc()
	p.logger.Debug("metadata merged", zap.String("title", title), zap.Int("fields", filled))
	return true
}

// NewSlug derives a URL-safe identifier with a random 8 hex digit suffix.
func NewSlug(title string) string {
	base := slug.Make(title)
	if base == "" {
		base = "book"
	}
	return base + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Merge copies fields from src into empty fields of dst and returns how many
// it filled. Populated fields of dst are never overwritten. Slug is not
// merged.
func Merge(dst, src *models.BookRecord) int {
	if dst == nil || src == nil {
		return 0
	}
	n := 0
	fill := func(d *string, s string) {
		if strings.TrimSpace(*d) == "" && strings.TrimSpace(s) != "" {
			*d = s
			n++
		}
	}
	fillInt := func(d *int, s int) {
		if *d == 0 && s != 0 {
			*d = s
			n++
		}
	}

	fill(&dst.Title, src.Title)
	fill(&dst.Author, src.Author)
	fill(&dst.Publisher, src.Publisher)
	fill(&dst.ISBN, src.ISBN)
	fillInt(&dst.PublishedYear, src.PublishedYear)
	fillInt(&dst.PageCount, src.PageCount)
	fill(&dst.Language, src.Language)
	fill(&dst.CoverURL, src.CoverURL)
	return n
}
