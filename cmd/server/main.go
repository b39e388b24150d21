package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Movelgroup/movel-RestAPI/internal/api/handlers"
	"github.com/Movelgroup/movel-RestAPI/internal/auth"
	"github.com/Movelgroup/movel-RestAPI/internal/config"
	"github.com/Movelgroup/movel-RestAPI/internal/influxdb"
	"github.com/Movelgroup/movel-RestAPI/internal/kafka"
	"github.com/Movelgroup/movel-RestAPI/internal/models"
	"github.com/Movelgroup/movel-RestAPI/internal/mqtt"
	"github.com/Movelgroup/movel-RestAPI/internal/repository"
	"github.com/Movelgroup/movel-RestAPI/internal/service"
	"github.com/Movelgroup/movel-RestAPI/internal/state"
	"github.com/Movelgroup/movel-RestAPI/pkg/ws"
)

func main() {
	// Config
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	logger.Info("Starting charger gateway", zap.String("port", cfg.ServerPort))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.Info("Database migrated successfully")

	docRepo := repository.NewDocumentRepository(db)
	chargerRepo := repository.NewChargerRepository(db, docRepo)
	userRepo := repository.NewUserRepository(db)

	// Secrets
	var secretStore auth.SecretStore = repository.NewSecretRepository(db)
	if cfg.SecretsBackend == "file" {
		secretStore = auth.FileSecretStore{Dir: cfg.SecretsDir}
	}
	webhookSecrets := auth.NewWebhookSecretProvider(secretStore, cfg.WebhookSecretID, cfg.WebhookSecretTTL, logger.Named("secrets"))
	apiKeys := auth.NewApiKeyProvider(secretStore, cfg.ApiKeySecretID, cfg.ApiKeyTTL, logger.Named("secrets"))

	if _, err := apiKeys.Keys(ctx); err != nil {
		logger.Warn("API keys not available yet", zap.Error(err))
	}

	// Tokens
	signer := auth.NewSigner(cfg.JWTKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTLifetime)
	issuer := auth.NewIssuer(signer, userRepo, apiKeys, logger.Named("auth"))
	authorizer := auth.NewAuthorizer(chargerRepo, cfg.AdminRole)

	// Real-time hub
	states := state.NewManager(func(connID, from, to string) {
		logger.Debug("Connection state changed",
			zap.String("conn_id", connID),
			zap.String("from", from),
			zap.String("to", to))
	})
	wsHub := ws.NewHub(logger.Named("hub"), states, ws.Options{
		SendBuffer:    cfg.WSSendBuffer,
		PublishBuffer: cfg.WSPublishBuffer,
	})
	go wsHub.Run(ctx)

	// Mirrors
	sinks, closeSinks := openSinks(cfg, logger)
	defer closeSinks()

	threshold, err := models.ParseDecimal(cfg.SlowChargingThresholdKw)
	if err != nil {
		logger.Fatal("Invalid slow charging threshold", zap.Error(err))
	}

	ingest := service.NewIngestService(docRepo, wsHub, logger.Named("ingest"),
		service.WithSinks(sinks...),
		service.WithSlowChargingThreshold(threshold),
	)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := handlers.NewHandler(handlers.Deps{
		Logger:         logger.Named("http"),
		Ingest:         ingest,
		Issuer:         issuer,
		Tokens:         signer,
		Authorizer:     authorizer,
		Chargers:       chargerRepo,
		Webhook:        webhookSecrets,
		ApiKeys:        apiKeys,
		Hub:            wsHub,
		Debug:          cfg.Debug,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})
	router := handlers.NewRouter(handler)

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", server.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	cancel()

	logger.Info("Server exited")
}

// openSinks connects the configured mirrors. A mirror that fails to connect
// is logged and skipped.
func openSinks(cfg *config.Config, logger *zap.Logger) ([]service.Sink, func()) {
	var (
		sinks   []service.Sink
		closers []func()
	)

	if cfg.InfluxURL != "" {
		sink := influxdb.NewSink(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := sink.Health(ctx); err != nil {
			logger.Warn("InfluxDB not healthy, writing anyway", zap.Error(err))
		}
		cancel()
		sinks = append(sinks, sink)
		closers = append(closers, sink.Close)
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			logger.Error("Failed to create Kafka producer", zap.Error(err))
		} else {
			sinks = append(sinks, producer)
			closers = append(closers, func() {
				if err := producer.Close(); err != nil {
					logger.Warn("Failed to close Kafka producer", zap.Error(err))
				}
			})
		}
	}

	if cfg.MQTTBroker != "" {
		client, err := mqtt.Connect(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTUser, cfg.MQTTPass)
		if err != nil {
			logger.Error("Failed to connect MQTT broker", zap.Error(err))
		} else {
			publisher := mqtt.NewPublisher(client, cfg.MQTTTopicPrefix)
			sinks = append(sinks, publisher)
			closers = append(closers, publisher.Close)
		}
	}

	for _, s := range sinks {
		logger.Info("Mirror enabled", zap.String("sink", s.Name()))
	}

	return sinks, func() {
		for _, c := range closers {
			c()
		}
	}
}

// initLogger creates the logger
func initLogger(debug bool) *zap.Logger {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	logger, _ := config.Build()
	return logger
}
