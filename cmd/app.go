package cmd

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"bookdesk/ai"
	"bookdesk/assistant"
	"bookdesk/cache"
	"bookdesk/config"
	"bookdesk/enrichment"
	"bookdesk/models"
	"bookdesk/service"
)

// app holds the long-lived collaborators shared by every command.
type app struct {
	gate        *ai.RateGate
	llm         *ai.AIService
	pool        *sql.DB
	assistant   *assistant.Assistant
	openLibrary *enrichment.OpenLibrary
	enricher    *enrichment.Pool
}

// buildApp wires the gateway, the optional reporting database and the
// enrichment pool. A missing datastore is not an error; the assistant then
// answers datastore questions with DATASTORE_NOT_CONFIGURED.
func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{gate: ai.NewRateGate(cfg.Gemini.GateCapacity)}
	a.llm = ai.New(cfg.Gemini, a.gate, logger)

	deps := assistant.Deps{Generator: a.llm}

	pool, err := service.OpenPool(ctx, cfg.SQL, logger)
	switch {
	case err == nil:
		a.pool = pool
		exec := service.NewExecutor(pool, cfg.SQL.StatementTimeout, logger)
		catalog := service.NewCatalog(exec, cfg.SQL.Driver, logger)
		deps.SQL = exec
		deps.Lookups = catalog
		deps.Snapshots = catalog
		deps.Books = service.NewBookSearch(catalog, a.llm)
	case models.CodeOf(err) == models.CodeDatastoreNotConfigured:
		logger.Warn("reporting database is not configured; data questions will be refused")
	default:
		a.Close()
		return nil, err
	}

	a.assistant = assistant.New(deps, cfg.Assistant, logger)

	a.openLibrary = enrichment.NewOpenLibrary(cfg.Enrichment, cache.New(cfg.Enrichment.CacheTTL), logger)
	a.enricher = enrichment.NewPool(a.openLibrary, 0, logger)
	return a, nil
}

func (a *app) Close() error {
	var errs []error
	if a.openLibrary != nil {
		a.openLibrary.Close()
	}
	if a.llm != nil {
		errs = append(errs, a.llm.Close())
	}
	if a.pool != nil {
		errs = append(errs, a.pool.Close())
	}
	return errors.Join(errs...)
}
