// Package assistant turns free-text questions into answers: the direct
// question-to-SQL path, the plan/execute/synthesize loop and the tool router.
package assistant

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"bookdesk/ai"
	"bookdesk/config"
	"bookdesk/logging"
	"bookdesk/metrics"
	"bookdesk/models"
)

const (
	// FallbackApology replaces an empty final answer.
	FallbackApology = "I'm sorry, I couldn't put together an answer to that right now. Could you try rephrasing the question?"

	// StaticClarification is used when the model cannot phrase a clarifying question itself.
	StaticClarification = "Could you tell me a bit more about what you'd like to know, for example a time period, a book title or an order number?"
)

// Generator is the LLM gateway as seen by the assistant.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPayload string, opts ...ai.CallOption) (string, error)
	GenerateRaw(ctx context.Context, req *ai.Request) (*ai.Response, error)
}

// SQLRunner executes one read-only statement with a row cap.
type SQLRunner interface {
	Execute(ctx context.Context, statement string, rowCap int, args ...any) (*models.SQLExecutionResult, error)
}

// BusinessLookups are the typed lookups the tool router dispatches to.
type BusinessLookups interface {
	OrderLookup(ctx context.Context, orderID string) (map[string]any, error)
	CustomerOrderSearch(ctx context.Context, identifier string) (map[string]any, error)
	InvoiceLookup(ctx context.Context, invoiceID string) (map[string]any, error)
}

type SnapshotSource interface {
	AnalyticsSnapshot(ctx context.Context, dr models.DateRange, flags models.SnapshotFlags) (*models.AnalyticsSnapshot, error)
}

type CatalogSearcher interface {
	BookCatalogSearch(ctx context.Context, query string) (string, error)
}

// Deps wires the assistant to its collaborators. SQL, Lookups, Snapshots and
// Books are nil when no reporting database is configured.
type Deps struct {
	Generator Generator
	SQL       SQLRunner
	Lookups   BusinessLookups
	Snapshots SnapshotSource
	Books     CatalogSearcher
}

type Assistant struct {
	gen       Generator
	sql       SQLRunner
	snapshots SnapshotSource
	books     CatalogSearcher
	tools     *ToolRegistry
	cfg       config.AssistantConfig
	schema    string
	logger    *zap.Logger
}

func New(deps Deps, cfg config.AssistantConfig, logger *zap.Logger) *Assistant {
	logger = logging.OrNop(logger).Named("assistant")
	if cfg.ConversationWindow <= 0 {
		cfg.ConversationWindow = 12
	}
	if cfg.AskRowCap <= 0 {
		cfg.AskRowCap = 100
	}
	if cfg.PlanRowCap <= 0 {
		cfg.PlanRowCap = 25
	}
	if cfg.MaxPlanSteps <= 0 {
		cfg.MaxPlanSteps = 2
	}
	if cfg.ToolResultWarnSize <= 0 {
		cfg.ToolResultWarnSize = 30000
	}

	tools := NewToolRegistry(cfg.ToolResultWarnSize, logger)
	registerBusinessTools(tools, deps.Lookups, deps.Books)

	return &Assistant{
		gen:       deps.Generator,
		sql:       deps.SQL,
		snapshots: deps.Snapshots,
		books:     deps.Books,
		tools:     tools,
		cfg:       cfg,
		schema:    config.SchemaDescriptor,
		logger:    logger,
	}
}

// Tools exposes the registry so callers can add their own functions.
func (a *Assistant) Tools() *ToolRegistry { return a.tools }

// Window drops blank turns and keeps the last n.
func Window(turns []models.Turn, n int) []models.Turn {
	kept := make([]models.Turn, 0, len(turns))
	for _, t := range turns {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		kept = append(kept, t)
	}
	if n > 0 && len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return kept
}

var (
	errDatastore = models.NewAppError(models.CodeDatastoreNotConfigured,
		"Reporting data is not available right now.", nil)
)

// surface maps errors that must reach the caller; everything else was
// already degraded where it happened.
func (a *Assistant) surface(err error) error {
	if errors.Is(err, ai.ErrUnavailable) {
		return models.NewAppError(models.CodeLLMUnavailable, "The assistant is temporarily unavailable.", err)
	}
	return err
}

func envelope(text string, sources []string) *models.AnswerEnvelope {
	if sources == nil {
		sources = []string{}
	}
	return &models.AnswerEnvelope{Answer: text, PlainText: text, Markdown: text, DataSources: sources}
}

func (a *Assistant) apology(sources []string) *models.AnswerEnvelope {
	metrics.LLMCalls.WithLabelValues(metrics.OutcomeFallback).Inc()
	return envelope(FallbackApology, sources)
}
