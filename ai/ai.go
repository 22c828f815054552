package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"bookdesk/config"
	"bookdesk/logging"
	"bookdesk/metrics"
)

// AIService is the only path to the generative backend. Every call passes
// through the shared RateGate and the retry policy.
type AIService struct {
	apiKey      string
	model       string
	speechModel string
	speechVoice string
	client      *resty.Client
	gate        *RateGate
	maxRetries  int
	baseDelay   time.Duration
	logger      *zap.Logger
}

func New(cfg config.GeminiConfig, gate *RateGate, logger *zap.Logger) *AIService {
	if gate == nil {
		gate = NewRateGate(cfg.GateCapacity)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	baseDelay := cfg.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = time.Millisecond
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-goog-api-key", cfg.APIKey)

	return &AIService{
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		speechModel: cfg.SpeechModel,
		speechVoice: cfg.SpeechVoice,
		client:      client,
		gate:        gate,
		maxRetries:  maxRetries,
		baseDelay:   baseDelay,
		logger:      logging.OrNop(logger).Named("ai"),
	}
}

// CallOption adjusts a request built by Generate.
type CallOption func(*Request)

// WithTools attaches function declarations to the request.
func WithTools(decls ...FunctionDeclaration) CallOption {
	return func(r *Request) {
		if len(decls) > 0 {
			r.Tools = []Tool{{FunctionDeclarations: decls}}
		}
	}
}

// WithJSONResponse asks the model for an application/json body.
func WithJSONResponse() CallOption {
	return func(r *Request) {
		cfg := ensureGenerationConfig(r)
		cfg.ResponseMimeType = "application/json"
	}
}

func WithTemperature(t float64) CallOption {
	return func(r *Request) {
		cfg := ensureGenerationConfig(r)
		cfg.Temperature = Temperature(t)
	}
}

func ensureGenerationConfig(r *Request) *GenerationConfig {
	if r.GenerationConfig == nil {
		r.GenerationConfig = &GenerationConfig{}
	}
	return r.GenerationConfig
}

// Generate sends one system instruction and one user payload and returns the
// first text part of the answer. "" with a nil error means the model gave no
// usable answer.
func (a *AIService) Generate(ctx context.Context, systemPrompt, userPayload string, opts ...CallOption) (string, error) {
	req := &Request{
		SystemInstruction: SystemText(systemPrompt),
		Contents:          []Content{UserText(userPayload)},
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := a.GenerateRaw(ctx, req)
	if err != nil || resp == nil {
		return "", err
	}
	return ExtractText(resp), nil
}

// GenerateRaw sends req to the default model. A nil response with a nil error
// means the call degraded (rate limits exhausted, unusable answer).
// Credential failures return ErrUnavailable; cancellation returns ctx.Err().
func (a *AIService) GenerateRaw(ctx context.Context, req *Request) (*Response, error) {
	return a.generate(ctx, a.model, req)
}

func (a *AIService) generate(ctx context.Context, model string, req *Request) (*Response, error) {
	if a.apiKey == "" {
		metrics.LLMCalls.WithLabelValues(metrics.OutcomeFatal).Inc()
		a.logger.Error("gemini API key is not configured")
		return nil, fmt.Errorf("%w: api key not configured", ErrUnavailable)
	}

	backoff := retry.WithMaxRetries(uint64(a.maxRetries), retry.NewExponential(a.baseDelay))

	var out *Response
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		resp, err := a.callOnce(ctx, model, req)
		if err == nil {
			out = resp
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) {
			if apiErr.Transient() {
				metrics.LLMCalls.WithLabelValues(metrics.OutcomeRetried).Inc()
				a.logger.Warn("transient gemini error, backing off",
					zap.Int("attempt", attempt),
					zap.Int("status_code", apiErr.StatusCode),
					zap.String("status", apiErr.Status))
				return retry.RetryableError(err)
			}
			return err
		}

		// Transport failures are retried like rate limits.
		metrics.LLMCalls.WithLabelValues(metrics.OutcomeRetried).Inc()
		a.logger.Warn("gemini request failed, backing off", zap.Int("attempt", attempt), zap.Error(err))
		return retry.RetryableError(err)
	})

	switch {
	case err == nil:
		metrics.LLMCalls.WithLabelValues(metrics.OutcomeOK).Inc()
		return out, nil
	case errors.Is(err, ErrUnavailable):
		metrics.LLMCalls.WithLabelValues(metrics.OutcomeFatal).Inc()
		a.logger.Error("gemini rejected credentials", zap.Error(err))
		return nil, err
	case ctx.Err() != nil:
		metrics.LLMCalls.WithLabelValues(metrics.OutcomeCancelled).Inc()
		return nil, ctx.Err()
	default:
		metrics.LLMCalls.WithLabelValues(metrics.OutcomeDegraded).Inc()
		a.logger.Warn("gemini call degraded to no answer", zap.Int("attempts", attempt), zap.Error(err))
		return nil, nil
	}
}

// callOnce performs a single HTTP exchange while holding a gate slot.
func (a *AIService) callOnce(ctx context.Context, model string, req *Request) (*Response, error) {
	release, err := a.gate.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(req).
		Post(fmt.Sprintf("/models/%s:generateContent", model))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, newAPIError(resp.StatusCode(), resp.Body())
	}

	var out Response
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, &APIError{StatusCode: resp.StatusCode(), Message: "malformed response body: " + err.Error()}
	}
	return &out, nil
}

// Close drops idle keep-alive connections to the backend.
func (a *AIService) Close() error {
	a.client.GetClient().CloseIdleConnections()
	return nil
}
