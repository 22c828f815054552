package assistant

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"bookdesk/ai"
	"bookdesk/metrics"
	"bookdesk/models"
	"bookdesk/normalize"
	"bookdesk/validation"
)

// PlanAndAnswer answers an analytics question in three sequential model
// exchanges: plan supplemental queries against the snapshot, execute the
// ones that pass validation, then synthesize the final answer.
func (a *Assistant) PlanAndAnswer(ctx context.Context, question string, dr models.DateRange, flags models.SnapshotFlags, turns []models.Turn) (*models.AnswerEnvelope, error) {
	if a.sql == nil || a.snapshots == nil {
		return nil, errDatastore
	}
	window := Window(turns, a.cfg.ConversationWindow)

	snapshot, err := a.snapshots.AnalyticsSnapshot(ctx, dr, flags)
	if err != nil {
		if ctx.Err() != nil || models.CodeOf(err) == models.CodeDatastoreNotConfigured {
			return nil, err
		}
		a.logger.Warn("analytics snapshot unavailable", zap.Error(err))
	}

	plan, err := a.plan(ctx, question, window, snapshot)
	if err != nil {
		return nil, a.surface(err)
	}

	results, err := a.executePlan(ctx, plan)
	if err != nil {
		return nil, err
	}

	sources := snapshot.Sections()
	for _, r := range results {
		if d := strings.TrimSpace(r.Description); d != "" {
			sources = append(sources, d)
		}
	}

	sys, user := ai.BuildSynthesisPrompt(question, window, snapshot, a.schema, plan.Summary, results)
	answer, err := a.gen.Generate(ctx, sys, user, ai.WithJSONResponse())
	if err != nil {
		return nil, a.surface(err)
	}
	if strings.TrimSpace(answer) == "" {
		return a.apology(sources), nil
	}

	r := normalize.RenderAnswer(answer)
	if sources == nil {
		sources = []string{}
	}
	return &models.AnswerEnvelope{Answer: r.Summary, PlainText: r.Plain, Markdown: r.Markdown, DataSources: sources}, nil
}

// plan asks for at most MaxPlanSteps supplemental steps. Anything short of a
// credential failure or cancellation yields an empty plan.
func (a *Assistant) plan(ctx context.Context, question string, window []models.Turn, snapshot *models.AnalyticsSnapshot) (models.SQLPlan, error) {
	sys, user := ai.BuildPlanPrompt(question, window, snapshot, a.schema, a.cfg.MaxPlanSteps)
	raw, err := a.gen.Generate(ctx, sys, user, ai.WithJSONResponse(), ai.WithTemperature(0))
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, ai.ErrUnavailable) {
			return models.SQLPlan{}, err
		}
		a.logger.Warn("planning failed, continuing without supplemental data", zap.Error(err))
		return models.SQLPlan{}, nil
	}

	var plan models.SQLPlan
	if err := normalize.Normalize(raw).Decode(&plan); err != nil {
		a.logger.Warn("plan was not usable, continuing without supplemental data", zap.Error(err))
		return models.SQLPlan{}, nil
	}

	steps := plan.Steps[:0]
	for _, s := range plan.Steps {
		if strings.TrimSpace(s.Statement) == "" {
			continue
		}
		steps = append(steps, s)
	}
	if len(steps) > a.cfg.MaxPlanSteps {
		a.logger.Debug("ignoring extra plan steps", zap.Int("proposed", len(steps)))
		steps = steps[:a.cfg.MaxPlanSteps]
	}
	plan.Steps = steps
	return plan, nil
}

// executePlan runs each step in order. Rejected and failing steps are
// dropped; only cancellation stops the loop.
func (a *Assistant) executePlan(ctx context.Context, plan models.SQLPlan) ([]models.SQLExecutionResult, error) {
	results := make([]models.SQLExecutionResult, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		log := a.logger.With(zap.String("alias", step.Alias), zap.String("sql", step.Statement))

		if err := validation.ValidateSQL(step.Statement); err != nil {
			metrics.SQLSteps.WithLabelValues(metrics.OutcomeRejected).Inc()
			log.Warn("plan step rejected", zap.Error(err))
			continue
		}

		res, err := a.sql.Execute(ctx, step.Statement, a.cfg.PlanRowCap)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			metrics.SQLSteps.WithLabelValues(metrics.OutcomeFailed).Inc()
			log.Warn("plan step failed", zap.Error(err))
			continue
		}
		metrics.SQLSteps.WithLabelValues(metrics.OutcomeOK).Inc()

		res.Alias = step.Alias
		res.Description = step.Description
		results = append(results, *res)
	}
	return results, nil
}
