package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Movelgroup/movel-RestAPI/internal/auth"
	"github.com/Movelgroup/movel-RestAPI/internal/models"
	"github.com/Movelgroup/movel-RestAPI/pkg/ws"
)

// HubPath real-time channel endpoint
const HubPath = "/chargerhub"

// Ingester message pipeline
type Ingester interface {
	Ingest(ctx context.Context, msg models.Message) (models.Record, error)
	IngestRaw(ctx context.Context, body []byte) (models.Record, error)
}

// TokenIssuer mints access tokens
type TokenIssuer interface {
	Issue(ctx context.Context, creds auth.Credentials, chargerIDs []string) (*auth.Result, error)
}

// TokenVerifier validates access tokens
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// AccessChecker per-charger read authorization
type AccessChecker interface {
	CanAccess(ctx context.Context, identity *auth.Claims, chargerID string) (bool, error)
}

// ChargerReader aggregate charger reads
type ChargerReader interface {
	GetAggregate(ctx context.Context, chargerID string) (*models.ChargerAggregate, error)
}

// WebhookVerifier webhook shared-secret check
type WebhookVerifier interface {
	Verify(ctx context.Context, authHeader string) (bool, error)
}

// Deps handler dependencies
type Deps struct {
	Logger         *zap.Logger
	Ingest         Ingester
	Issuer         TokenIssuer
	Tokens         TokenVerifier
	Authorizer     AccessChecker
	Chargers       ChargerReader
	Webhook        WebhookVerifier
	ApiKeys        auth.KeyLookup
	Hub            *ws.Hub
	Debug          bool
	AllowedOrigins []string
}

// Handler HTTP handlers
type Handler struct {
	Deps
	upgrader websocket.Upgrader
}

// NewHandler creates the handlers
func NewHandler(d Deps) *Handler {
	h := &Handler{Deps: d}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: h.checkOrigin,
	}
	return h
}

// NewRouter builds the gin engine with middleware and routes
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(traceMiddleware())
	router.Use(h.errorHandler())
	router.Use(h.recovery())
	router.Use(h.requestLogger())
	router.Use(corsMiddleware(h.AllowedOrigins))

	h.RegisterRoutes(router)
	return router
}

// RegisterRoutes registers routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	// Typed ingress
	ingress := r.Group("/", h.requireApiKey())
	{
		ingress.POST("/charger-state", ingestAs[models.ChargerStateMessage](h, "Charger state processed"))
		ingress.POST("/measurements", ingestAs[models.MeasurementsMessage](h, "Measurements processed"))
		ingress.POST("/full-charging-transaction", ingestAs[models.FullChargingTransaction](h, "Full charging transaction processed"))
		ingress.POST("/charging-transaction", ingestAs[models.ChargingTransaction](h, "Charging transaction processed"))
	}

	// Push webhook
	r.POST("/webhook", h.ReceiveWebhook)
	r.GET("/webhook", h.VerifyWebhook)

	// Tokens
	r.POST("/auth/connect", h.Connect)

	// Queries
	r.GET("/chargers/:id", h.requireBearer(), h.GetCharger)

	// Real-time channel
	r.GET(HubPath, h.HandleHub)

	// Health
	r.GET("/health", h.HealthCheck)
	r.GET("/health/details", h.HealthDetails)
}

// HealthCheck liveness probe
func (h *Handler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "Healthy")
}

// HealthDetails hub connection counts
func (h *Handler) HealthDetails(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "Healthy",
		"connections": h.Hub.ClientCount(),
		"topics":      len(h.Hub.Topics()),
		"states":      h.Hub.States().CountByState(),
	})
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range h.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
