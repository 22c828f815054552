package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookdesk/enrichment"
	"bookdesk/models"
)

const maxEnrichBatch = 200

// EnrichBooksHandler fills catalog candidates with public metadata
// @Summary      Enrich book records
// @Description  Looks every title up in Open Library, fills only the empty fields and assigns each record a fresh slug. Lookups that fail leave the record as sent, apart from the slug.
// @Tags         Books
// @Accept       json
// @Produce      json
// @Param        request  body      models.EnrichRequest  true  "Books to enrich (max 200)"
// @Success      200      {object}  map[string]interface{}  "books, enriched, failed"
// @Failure      400      {object}  map[string]string       "Invalid request"
// @Router       /api/books/enrich [post]
func (h *Handlers) EnrichBooksHandler(c *gin.Context) {
	var req models.EnrichRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	if len(req.Books) == 0 || len(req.Books) > maxEnrichBatch {
		badRequest(c, "Send between 1 and 200 books.")
		return
	}

	tasks := make([]enrichment.Task, len(req.Books))
	for i := range req.Books {
		tasks[i] = enrichment.Task{Title: req.Books[i].Title, Target: &req.Books[i]}
	}
	summary := h.enricher.Enrich(c.Request.Context(), tasks)

	c.JSON(http.StatusOK, gin.H{
		"books":    req.Books,
		"enriched": summary.Enriched,
		"failed":   summary.Failed,
	})
}
