package assistant

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"bookdesk/ai"
	"bookdesk/metrics"
	"bookdesk/models"
)

// Values of ToolChatResult.MethodUsed.
const (
	MethodFunctionCall = "function_call"
	MethodDirect       = "direct"
	MethodRAG          = "rag"
	MethodFallback     = "fallback"
)

// ChatWithTools offers the registered tools to the model. When it calls one,
// the result goes back in a second exchange that produces the answer;
// otherwise the first answer is returned as is. A silent model falls back
// to catalog search and then to an apology.
func (a *Assistant) ChatWithTools(ctx context.Context, question string) (*models.ToolChatResult, error) {
	req := &ai.Request{
		SystemInstruction: ai.SystemText(ai.BuildToolRouterPrompt()),
		Contents:          []ai.Content{ai.UserText(question)},
	}
	if decls := a.tools.Declarations(); len(decls) > 0 {
		req.Tools = []ai.Tool{{FunctionDeclarations: decls}}
	}

	resp, err := a.gen.GenerateRaw(ctx, req)
	if err != nil {
		return nil, a.surface(err)
	}

	if call := ai.ExtractFunctionCall(resp); call != nil {
		a.logger.Debug("model requested a function", zap.String("function", call.Name))
		result := a.tools.Dispatch(ctx, call)
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sys, user := ai.BuildToolAnswerPrompt(question, call.Name, call.Args, result)
		answer, err := a.gen.Generate(ctx, sys, user)
		if err != nil {
			return nil, a.surface(err)
		}
		if strings.TrimSpace(answer) == "" {
			metrics.LLMCalls.WithLabelValues(metrics.OutcomeFallback).Inc()
			answer = FallbackApology
		}
		return &models.ToolChatResult{Answer: answer, MethodUsed: MethodFunctionCall, FunctionCalled: call.Name}, nil
	}

	if text := ai.ExtractText(resp); strings.TrimSpace(text) != "" {
		return &models.ToolChatResult{Answer: text, MethodUsed: MethodDirect}, nil
	}

	if a.books != nil {
		answer, err := a.books.BookCatalogSearch(ctx, question)
		switch {
		case err == nil && strings.TrimSpace(answer) != "":
			return &models.ToolChatResult{Answer: answer, MethodUsed: MethodRAG}, nil
		case err != nil && (ctx.Err() != nil || errors.Is(err, ai.ErrUnavailable)):
			return nil, a.surface(err)
		case err != nil:
			a.logger.Warn("catalog search fallback failed", zap.Error(err))
		}
	}

	metrics.LLMCalls.WithLabelValues(metrics.OutcomeFallback).Inc()
	return &models.ToolChatResult{Answer: FallbackApology, MethodUsed: MethodFallback}, nil
}
