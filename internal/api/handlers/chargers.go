package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Movelgroup/movel-RestAPI/internal/apperr"
)

// GetCharger returns the charger aggregate when the caller may access it
func (h *Handler) GetCharger(c *gin.Context) {
	chargerID := c.Param("id")
	claims, err := claimsOf(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	ok, err := h.Authorizer.CanAccess(c.Request.Context(), claims, chargerID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !ok {
		h.Logger.Warn("Charger access denied",
			zap.String("subject", claims.Subject),
			zap.String("charger_id", chargerID))
		_ = c.Error(apperr.Authorization("Access to charger denied"))
		return
	}

	agg, err := h.Chargers.GetAggregate(c.Request.Context(), chargerID)
	if err != nil {
		_ = c.Error(apperr.Dependency("load charger", err))
		return
	}
	if agg == nil {
		c.JSON(http.StatusNotFound, gin.H{"status": "Error", "message": "Charger not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": agg})
}
