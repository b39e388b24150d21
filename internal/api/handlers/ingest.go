package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/Movelgroup/movel-RestAPI/internal/apperr"
	"github.com/Movelgroup/movel-RestAPI/internal/models"
)

// ingestAs decodes the body as T and runs it through the pipeline
func ingestAs[T any, PT interface {
	*T
	models.Message
}](h *Handler, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			_ = c.Error(apperr.Validation("read body: %v", err))
			return
		}

		msg := PT(new(T))
		if err := json.Unmarshal(body, msg); err != nil {
			_ = c.Error(apperr.Validation("invalid %s payload: %v", msg.Kind(), err))
			return
		}

		if _, err := h.Ingest.Ingest(c.Request.Context(), msg); err != nil {
			_ = c.Error(err)
			return
		}

		success(c, message, nil)
	}
}
