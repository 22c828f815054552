package assistant

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"bookdesk/ai"
	"bookdesk/metrics"
	"bookdesk/models"
	"bookdesk/normalize"
	"bookdesk/validation"
)

// AskQuestion writes one SQL statement for question, runs it and explains the
// rows. Out-of-scope questions, unusable SQL and failed executions all end
// in a clarifying question instead of an error.
func (a *Assistant) AskQuestion(ctx context.Context, question string, turns []models.Turn) (*models.AnswerEnvelope, error) {
	if a.sql == nil {
		return nil, errDatastore
	}
	window := Window(turns, a.cfg.ConversationWindow)

	sys, user := ai.BuildSQLPrompt(question, window, a.schema)
	raw, err := a.gen.Generate(ctx, sys, user, ai.WithTemperature(0))
	if err != nil {
		return nil, a.surface(err)
	}

	statement := strings.TrimSpace(normalize.StripWrapper(raw))
	if statement == "" || strings.Contains(strings.ToUpper(statement), ai.OutOfScopeSentinel) {
		a.logger.Debug("question out of scope", zap.String("question", question))
		return a.Clarify(ctx, question, window)
	}

	if err := validation.ValidateSQL(statement); err != nil {
		metrics.SQLSteps.WithLabelValues(metrics.OutcomeRejected).Inc()
		a.logger.Warn("generated statement rejected", zap.String("sql", statement), zap.Error(err))
		return a.Clarify(ctx, question, window)
	}

	result, err := a.sql.Execute(ctx, statement, a.cfg.AskRowCap)
	if err != nil {
		if ctx.Err() != nil || models.CodeOf(err) == models.CodeDatastoreNotConfigured {
			return nil, err
		}
		metrics.SQLSteps.WithLabelValues(metrics.OutcomeFailed).Inc()
		a.logger.Warn("generated statement failed", zap.String("sql", statement), zap.Error(err))
		return a.Clarify(ctx, question, window)
	}
	metrics.SQLSteps.WithLabelValues(metrics.OutcomeOK).Inc()

	sources := TablesIn(statement)
	sys, user = ai.BuildRowsAnswerPrompt(question, result)
	answer, err := a.gen.Generate(ctx, sys, user, ai.WithJSONResponse())
	if err != nil {
		return nil, a.surface(err)
	}
	if strings.TrimSpace(answer) == "" {
		return a.apology(sources), nil
	}

	r := normalize.RenderAnswer(answer)
	return &models.AnswerEnvelope{Answer: r.Summary, PlainText: r.Plain, Markdown: r.Markdown, DataSources: sources}, nil
}

var tablePattern = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+([\[\]"\w.]+)`)

// TablesIn lists the tables a statement reads, in order of first use.
// Names of CTEs defined in the statement are left out, as are FROM keywords
// inside function calls such as EXTRACT(MONTH FROM order_date).
func TablesIn(statement string) []string {
	ctes := map[string]bool{}
	for _, m := range ctePattern.FindAllStringSubmatch(statement, -1) {
		ctes[strings.ToLower(m[1])] = true
	}

	inCall := callSpans(statement)
	seen := map[string]bool{}
	out := []string{}
	for _, m := range tablePattern.FindAllStringSubmatchIndex(statement, -1) {
		if inCall[m[0]] {
			continue
		}
		name := strings.NewReplacer("[", "", "]", "", `"`, "").Replace(statement[m[2]:m[3]])
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			name = name[i+1:]
		}
		key := strings.ToLower(name)
		if name == "" || ctes[key] || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}

var queryStart = regexp.MustCompile(`(?i)^\s*(SELECT|WITH)\b`)

// callSpans marks every byte whose innermost enclosing parenthesis is a
// function call rather than a subquery. String literals are skipped.
func callSpans(statement string) []bool {
	marks := make([]bool, len(statement))
	var stack []bool // true for a subquery paren
	inString := false
	for i := 0; i < len(statement); i++ {
		c := statement[i]
		switch {
		case inString:
			if c == '\'' {
				inString = false
			}
		case c == '\'':
			inString = true
		case c == '(':
			stack = append(stack, queryStart.MatchString(statement[i+1:]))
		case c == ')' && len(stack) > 0:
			stack = stack[:len(stack)-1]
		}
		marks[i] = len(stack) > 0 && !stack[len(stack)-1]
	}
	return marks
}

var ctePattern = regexp.MustCompile(`(?i)(?:\bWITH|,)\s*(\w+)\s+AS\s*\(`)
