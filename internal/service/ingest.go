package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Movelgroup/movel-RestAPI/internal/apperr"
	"github.com/Movelgroup/movel-RestAPI/internal/models"
	"github.com/Movelgroup/movel-RestAPI/internal/processor"
)

// Hub event names, one per record type
const (
	EventChargerStateChanged              = "ChargerStateChanged"
	EventMeasurementsUpdated              = "MeasurementsUpdated"
	EventFullChargingTransactionProcessed = "FullChargingTransactionProcessed"
	EventChargingTransactionProcessed     = "ChargingTransactionProcessed"
)

var eventNames = map[string]string{
	models.MessageTypeChargerState:    EventChargerStateChanged,
	models.MessageTypeMeasurements:    EventMeasurementsUpdated,
	models.MessageTypeFullTransaction: EventFullChargingTransactionProcessed,
	models.MessageTypeTransaction:     EventChargingTransactionProcessed,
}

// EventName hub event emitted for a record type
func EventName(messageType string) string {
	return eventNames[messageType]
}

// Store persistence of processed records
type Store interface {
	SaveChargerState(ctx context.Context, s *models.ProcessedChargerState) error
	SaveMeasurements(ctx context.Context, m *models.ProcessedMeasurements) error
	SaveFullTransaction(ctx context.Context, t *models.ProcessedFullChargingTransaction) error
	SaveTransaction(ctx context.Context, t *models.ProcessedChargingTransaction) error
	SaveSlowChargingIncident(ctx context.Context, inc *models.SlowChargingIncident) error
}

// Publisher real-time fan-out
type Publisher interface {
	Publish(topic, event string, payload interface{}) error
}

// Sink mirror of processed records; failures never fail ingestion
type Sink interface {
	Name() string
	Write(ctx context.Context, rec models.Record) error
}

// IngestService normalize, persist, publish and mirror inbound messages
type IngestService struct {
	logger     *zap.Logger
	normalizer *processor.Normalizer
	store      Store
	publisher  Publisher
	sinks      []Sink
	threshold  models.Decimal
	now        func() time.Time
}

// Option configures the service
type Option func(*IngestService)

// WithSinks adds mirror sinks
func WithSinks(sinks ...Sink) Option {
	return func(s *IngestService) {
		s.sinks = append(s.sinks, sinks...)
	}
}

// WithSlowChargingThreshold total kW below which a measurement batch is logged as slow charging
func WithSlowChargingThreshold(kw models.Decimal) Option {
	return func(s *IngestService) {
		s.threshold = kw
	}
}

// NewIngestService creates the service
func NewIngestService(store Store, publisher Publisher, logger *zap.Logger, opts ...Option) *IngestService {
	s := &IngestService{
		logger:     logger,
		normalizer: processor.NewNormalizer(),
		store:      store,
		publisher:  publisher,
		threshold:  models.MustDecimal("1.0"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IngestRaw classifies an untyped payload and ingests it
func (s *IngestService) IngestRaw(ctx context.Context, body []byte) (models.Record, error) {
	msg, err := processor.Decode(body)
	if err != nil {
		if apperr.Is(err, apperr.KindUnclassified) {
			s.logger.Warn("Unclassified payload", zap.Error(err))
		}
		return nil, err
	}
	return s.Ingest(ctx, msg)
}

// Ingest runs one message through the pipeline. A persistence failure stops
// the pipeline before publication; publish and mirror failures are logged.
func (s *IngestService) Ingest(ctx context.Context, msg models.Message) (models.Record, error) {
	rec, err := s.normalizer.Normalize(msg)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With(
		zap.String("charger_id", rec.Charger()),
		zap.String("message_type", rec.Type()))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, rec); err != nil {
		logger.Error("Failed to persist record", zap.Error(err))
		return nil, apperr.Dependency("persist "+rec.Type(), err)
	}

	if m, ok := rec.(*models.ProcessedMeasurements); ok {
		s.detectSlowCharging(ctx, m, logger)
	}

	if err := s.publisher.Publish(rec.Charger(), EventName(rec.Type()), rec); err != nil {
		logger.Error("Failed to publish record", zap.Error(err))
	}

	for _, sink := range s.sinks {
		if err := sink.Write(ctx, rec); err != nil {
			logger.Warn("Mirror sink failed", zap.String("sink", sink.Name()), zap.Error(err))
		}
	}

	logger.Info("Record processed")
	return rec, nil
}

func (s *IngestService) persist(ctx context.Context, rec models.Record) error {
	switch r := rec.(type) {
	case *models.ProcessedChargerState:
		return s.store.SaveChargerState(ctx, r)
	case *models.ProcessedMeasurements:
		return s.store.SaveMeasurements(ctx, r)
	case *models.ProcessedFullChargingTransaction:
		return s.store.SaveFullTransaction(ctx, r)
	case *models.ProcessedChargingTransaction:
		return s.store.SaveTransaction(ctx, r)
	default:
		return fmt.Errorf("unsupported record %T", rec)
	}
}

// detectSlowCharging writes a side record when delivered power is below the
// threshold. Errors are logged only.
func (s *IngestService) detectSlowCharging(ctx context.Context, m *models.ProcessedMeasurements, logger *zap.Logger) {
	total, slow := processor.SlowChargingPower(m, s.threshold)
	if !slow {
		return
	}

	incident := &models.SlowChargingIncident{
		ChargerID:            m.ChargerID,
		SocketID:             m.SocketID,
		Timestamp:            m.Timestamp,
		PowerKw:              total,
		DetailedMeasurements: m.Measurements,
		DetectedAt:           s.now().UTC(),
	}
	if err := s.store.SaveSlowChargingIncident(ctx, incident); err != nil {
		logger.Warn("Failed to record slow charging incident", zap.String("power_kw", total.String()), zap.Error(err))
		return
	}
	logger.Info("Slow charging detected", zap.String("power_kw", total.String()))
}
