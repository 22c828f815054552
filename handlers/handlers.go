package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bookdesk/ai"
	"bookdesk/db"
	"bookdesk/enrichment"
	"bookdesk/logging"
	"bookdesk/models"
)

// @title           Bookdesk Assistant API
// @version         1.0
// @description     Data assistant for the bookstore back office: questions answered from the reporting database, order and invoice lookups, catalog enrichment and spoken replies.

// @contact.name   Bookdesk maintainers

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:9090
// @BasePath  /

// @schemes   http https

// SessionHeader selects the conversation a question belongs to.
const SessionHeader = "X-Session-ID"

// ChatService is the upstream contract of the assistant.
type ChatService interface {
	AskQuestion(ctx context.Context, question string, turns []models.Turn) (*models.AnswerEnvelope, error)
	PlanAndAnswer(ctx context.Context, question string, dr models.DateRange, flags models.SnapshotFlags, turns []models.Turn) (*models.AnswerEnvelope, error)
	ChatWithTools(ctx context.Context, question string) (*models.ToolChatResult, error)
}

type Enricher interface {
	Enrich(ctx context.Context, tasks []enrichment.Task) enrichment.Summary
}

type Speaker interface {
	Speak(ctx context.Context, text string) (*ai.Audio, error)
}

// Pinger reports whether the reporting database answers.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators of the HTTP layer. Datastore is nil when no
// reporting database is configured.
type Deps struct {
	Store     *db.DB
	Chat      ChatService
	Enricher  Enricher
	Speaker   Speaker
	Datastore Pinger
	Gate      *ai.RateGate
	Window    int
}

type Handlers struct {
	store     *db.DB
	chat      ChatService
	enricher  Enricher
	speaker   Speaker
	datastore Pinger
	gate      *ai.RateGate
	window    int
	logger    *zap.Logger
}

func New(deps Deps, logger *zap.Logger) *Handlers {
	window := deps.Window
	if window <= 0 {
		window = 12
	}
	return &Handlers{
		store:     deps.Store,
		chat:      deps.Chat,
		enricher:  deps.Enricher,
		speaker:   deps.Speaker,
		datastore: deps.Datastore,
		gate:      deps.Gate,
		window:    window,
		logger:    logging.OrNop(logger).Named("http"),
	}
}

// respondError writes a generic message and, for configuration-class
// failures, a machine-readable code. Details stay in the log.
func (h *Handlers) respondError(c *gin.Context, err error) {
	var appErr *models.AppError
	switch {
	case errors.As(err, &appErr):
		status := http.StatusInternalServerError
		switch appErr.Code {
		case models.CodeDatastoreNotConfigured, models.CodeLLMUnavailable:
			status = http.StatusServiceUnavailable
		case models.CodeInvalidRequest:
			status = http.StatusBadRequest
		}
		h.logger.Warn("request failed", zap.String("path", c.FullPath()), zap.String("code", string(appErr.Code)), zap.Error(err))
		c.JSON(status, gin.H{"error": appErr.Message, "code": appErr.Code})
	case errors.Is(err, ai.ErrUnavailable):
		h.logger.Error("llm unavailable", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "The assistant is temporarily unavailable.", "code": models.CodeLLMUnavailable})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.logger.Info("request abandoned", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "The request took too long. Please try again.", "code": "TIMEOUT"})
	default:
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong. Please try again.", "code": models.CodeInternal})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": models.CodeInvalidRequest})
}

// RequestLogger logs one line per request with zap.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	logger = logging.OrNop(logger).Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		)
	}
}
