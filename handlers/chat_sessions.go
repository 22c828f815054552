package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bookdesk/db"
	"bookdesk/models"
)

// CreateChatSessionHandler issues a new conversation id.
// @Summary      Start a conversation
// @Tags         Chat
// @Produce      json
// @Success      201  {object}  map[string]string  "session_id"
// @Router       /api/chat/sessions [post]
func (h *Handlers) CreateChatSessionHandler(c *gin.Context) {
	id := uuid.NewString()
	c.Header(SessionHeader, id)
	c.JSON(http.StatusCreated, gin.H{"session_id": id})
}

// ChatHistoryHandler returns the turns the assistant will see for a session.
// @Summary      Conversation window
// @Description  Returns the most recent turns of a conversation, oldest first.
// @Tags         Chat
// @Produce      json
// @Param        id   path      string  true  "Session id"
// @Success      200  {array}   models.Turn
// @Failure      400  {object}  map[string]string  "Invalid session id"
// @Failure      503  {object}  map[string]string  "Conversation store unavailable"
// @Router       /api/chat/sessions/{id} [get]
func (h *Handlers) ChatHistoryHandler(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Conversation history is not available."})
		return
	}
	turns, err := h.store.RecentTurns(c.Param("id"), h.window)
	if errors.Is(err, db.ErrInvalidSession) {
		badRequest(c, "Invalid session id")
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	if turns == nil {
		turns = []models.Turn{}
	}
	c.JSON(http.StatusOK, turns)
}
