package assistant

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"bookdesk/ai"
	"bookdesk/models"
	"bookdesk/normalize"
)

// Clarify asks the model for one short clarifying question. It falls back to
// StaticClarification when the model has nothing usable to say.
func (a *Assistant) Clarify(ctx context.Context, question string, turns []models.Turn) (*models.AnswerEnvelope, error) {
	sys, user := ai.BuildClarificationPrompt(question, Window(turns, a.cfg.ConversationWindow))
	raw, err := a.gen.Generate(ctx, sys, user)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, ai.ErrUnavailable) {
			return nil, a.surface(err)
		}
		a.logger.Warn("clarification failed", zap.Error(err))
	}

	text := strings.Trim(normalize.StripWrapper(raw), "\"' \n")
	if text == "" || strings.Contains(strings.ToUpper(text), ai.OutOfScopeSentinel) {
		text = StaticClarification
	}
	return envelope(text, nil), nil
}
