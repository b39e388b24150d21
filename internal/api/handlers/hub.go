package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Movelgroup/movel-RestAPI/internal/state"
	"github.com/Movelgroup/movel-RestAPI/pkg/ws"
)

// HandleHub upgrades to the real-time channel. The token comes from the
// access_token query parameter or the Authorization header and is checked
// once, before the upgrade.
func (h *Handler) HandleHub(c *gin.Context) {
	states := h.Hub.States()
	machine := states.GetOrCreate(uuid.NewString())

	token := c.Query("access_token")
	if token == "" {
		token = bearerToken(c.GetHeader("Authorization"))
	}

	claims, err := h.Tokens.Verify(token)
	if err != nil {
		_ = machine.Trigger(state.EventClose)
		states.Remove(machine.ConnID())
		_ = c.Error(err)
		return
	}
	if err := machine.Trigger(state.EventAuthenticate); err != nil {
		_ = c.Error(err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Error("Failed to upgrade websocket", zap.Error(err))
		_ = machine.Trigger(state.EventClose)
		states.Remove(machine.ConnID())
		return
	}

	client := ws.NewClient(h.Hub, conn, machine, claims.Subject, claims.AllowedChargers)

	go client.WritePump()
	client.Register()
	go client.ReadPump()
}
