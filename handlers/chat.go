package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"bookdesk/models"
	"bookdesk/validation"
)

const dateLayout = "2006-01-02"

var errInvalidRange = errors.New("start date is after end date")

// AskHandler answers a question with a query against the reporting database
// @Summary      Ask a data question
// @Description  Turns the question into one read-only query, runs it and explains the rows. Questions outside the data get a clarifying question back.
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request       body      models.AskRequest      true   "Question"
// @Param        X-Session-ID  header    string                 false  "Conversation id; a new one is issued when missing"
// @Success      200           {object}  models.AnswerEnvelope
// @Failure      400           {object}  map[string]string      "Invalid request"
// @Failure      503           {object}  map[string]string      "Datastore or LLM unavailable"
// @Router       /api/chat/ask [post]
func (h *Handlers) AskHandler(c *gin.Context) {
	var req models.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	if !validation.IsValidPrompt(req.Question) {
		badRequest(c, "Please enter a question.")
		return
	}

	session := h.session(c, req.SessionID)
	turns := h.recentTurns(session)

	answer, err := h.chat.AskQuestion(c.Request.Context(), strings.TrimSpace(req.Question), turns)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.remember(session, req.Question, answer.PlainText)
	c.JSON(http.StatusOK, answer)
}

// PlanHandler answers an analytics question over a date range
// @Summary      Ask an analytics question
// @Description  Plans up to two supplemental queries on top of the sales snapshot for the range, runs them and synthesizes an answer.
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request       body      models.PlanRequest     true   "Question, inclusive date range (YYYY-MM-DD) and snapshot sections"
// @Param        X-Session-ID  header    string                 false  "Conversation id"
// @Success      200           {object}  models.AnswerEnvelope
// @Failure      400           {object}  map[string]string      "Invalid request"
// @Failure      503           {object}  map[string]string      "Datastore or LLM unavailable"
// @Router       /api/chat/plan [post]
func (h *Handlers) PlanHandler(c *gin.Context) {
	var req models.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	if !validation.IsValidPrompt(req.Question) {
		badRequest(c, "Please enter a question.")
		return
	}
	dr, err := parseDateRange(req.DateFrom, req.DateTo)
	if err != nil {
		badRequest(c, "Dates must look like 2026-01-31, and the start must not be after the end.")
		return
	}

	session := h.session(c, req.SessionID)
	turns := h.recentTurns(session)

	answer, err := h.chat.PlanAndAnswer(c.Request.Context(), strings.TrimSpace(req.Question), dr, req.Flags, turns)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.remember(session, req.Question, answer.PlainText)
	c.JSON(http.StatusOK, answer)
}

// ToolsHandler answers customer questions with order, invoice and catalog lookups
// @Summary      Customer chat with lookups
// @Description  Lets the model call order, customer, invoice and catalog lookups before answering.
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request  body      models.ToolChatRequest  true  "Question"
// @Success      200      {object}  models.ToolChatResult
// @Failure      400      {object}  map[string]string       "Invalid request"
// @Failure      503      {object}  map[string]string       "LLM unavailable"
// @Router       /api/chat/tools [post]
func (h *Handlers) ToolsHandler(c *gin.Context) {
	var req models.ToolChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	if !validation.IsValidPrompt(req.Question) {
		badRequest(c, "Please enter a question.")
		return
	}

	result, err := h.chat.ChatWithTools(c.Request.Context(), strings.TrimSpace(req.Question))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// session picks the conversation id from the header, then the body, and
// issues a new one otherwise. The id is echoed in the response header.
func (h *Handlers) session(c *gin.Context, fromBody string) string {
	id := strings.TrimSpace(c.GetHeader(SessionHeader))
	if id == "" {
		id = strings.TrimSpace(fromBody)
	}
	if id == "" || strings.ContainsRune(id, ':') || len(id) > 128 {
		id = uuid.NewString()
	}
	c.Header(SessionHeader, id)
	return id
}

func (h *Handlers) recentTurns(session string) []models.Turn {
	if h.store == nil {
		return nil
	}
	turns, err := h.store.RecentTurns(session, h.window)
	if err != nil {
		h.logger.Warn("failed to load conversation", zap.String("session", session), zap.Error(err))
		return nil
	}
	return turns
}

func (h *Handlers) remember(session, question, answer string) {
	if h.store == nil {
		return
	}
	if err := h.store.AppendTurn(session, "user", question); err != nil {
		h.logger.Warn("failed to store question", zap.String("session", session), zap.Error(err))
		return
	}
	if err := h.store.AppendTurn(session, "assistant", answer); err != nil {
		h.logger.Warn("failed to store answer", zap.String("session", session), zap.Error(err))
	}
}

// parseDateRange reads inclusive calendar dates into a half-open range.
func parseDateRange(from, to string) (models.DateRange, error) {
	var dr models.DateRange
	if from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			return dr, err
		}
		dr.From = t
	}
	if to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return dr, err
		}
		dr.To = t.AddDate(0, 0, 1)
	}
	if !dr.From.IsZero() && !dr.To.IsZero() && !dr.From.Before(dr.To) {
		return dr, errInvalidRange
	}
	return dr, nil
}
