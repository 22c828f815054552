package handlers

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bookdesk/models"
)

const maxSpeechChars = 2000

// SpeakHandler renders an answer as speech
// @Summary      Speak an answer
// @Description  Converts text (usually the plain_text of an answer) to audio with the configured voice.
// @Tags         Voice
// @Accept       json
// @Produce      json
// @Param        request  body      models.SpeakRequest   true  "Text to speak"
// @Success      200      {object}  models.SpeakResponse  "Base64 encoded audio"
// @Failure      400      {object}  map[string]string     "Invalid request"
// @Failure      502      {object}  map[string]string     "No audio produced"
// @Failure      503      {object}  map[string]string     "LLM unavailable"
// @Router       /api/voice/speak [post]
func (h *Handlers) SpeakHandler(c *gin.Context) {
	var req models.SpeakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" || len([]rune(text)) > maxSpeechChars {
		badRequest(c, "Text must be between 1 and 2000 characters.")
		return
	}

	audio, err := h.speaker.Speak(c.Request.Context(), text)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if audio == nil || len(audio.Data) == 0 {
		c.JSON(http.StatusBadGateway, gin.H{"error": "No audio could be produced right now."})
		return
	}

	mime := audio.MimeType
	if mime == "" {
		mime = "audio/L16;codec=pcm;rate=24000"
	}
	c.JSON(http.StatusOK, models.SpeakResponse{
		MimeType:  mime,
		AudioData: base64.StdEncoding.EncodeToString(audio.Data),
	})
}
