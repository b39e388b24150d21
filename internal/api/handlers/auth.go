package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Movelgroup/movel-RestAPI/internal/apperr"
	"github.com/Movelgroup/movel-RestAPI/internal/auth"
)

// ConnectRequest body of /auth/connect. apiKey takes precedence over email/password.
type ConnectRequest struct {
	Email      string   `json:"email"`
	Password   string   `json:"password"`
	ApiKey     string   `json:"apiKey"`
	ChargerIDs []string `json:"chargerIds"`
}

// ConnectResponse issued token
type ConnectResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
	TokenType string `json:"tokenType"`
}

// Connect issues an access token for the requested chargers
func (h *Handler) Connect(c *gin.Context) {
	var req ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperr.Validation("invalid connect request: %v", err))
		return
	}

	var creds auth.Credentials
	switch {
	case req.ApiKey != "":
		creds = auth.APIKeyCredentials{Key: req.ApiKey, ClientID: c.GetHeader(HeaderClientID)}
	case strings.TrimSpace(req.Email) != "":
		creds = auth.PasswordCredentials{Email: req.Email, Password: req.Password}
	default:
		_ = c.Error(apperr.Validation("apiKey or email and password are required"))
		return
	}

	res, err := h.Issuer.Issue(c.Request.Context(), creds, req.ChargerIDs)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !res.Success {
		_ = c.Error(apperr.Authentication(res.ErrorMessage))
		return
	}

	c.JSON(http.StatusOK, ConnectResponse{
		Token:     res.Token,
		ExpiresIn: int64(res.ExpiresIn.Seconds()),
		TokenType: "Bearer",
	})
}
