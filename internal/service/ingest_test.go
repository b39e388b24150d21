package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Movelgroup/movel-RestAPI/internal/apperr"
	"github.com/Movelgroup/movel-RestAPI/internal/models"
)

type fakeStore struct {
	mu          sync.Mutex
	states      map[string]*models.ProcessedChargerState
	measurement map[string]*models.ProcessedMeasurements
	full        []*models.ProcessedFullChargingTransaction
	tx          []*models.ProcessedChargingTransaction
	incidents   []*models.SlowChargingIncident

	err         error
	incidentErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		states:      map[string]*models.ProcessedChargerState{},
		measurement: map[string]*models.ProcessedMeasurements{},
	}
}

func (f *fakeStore) SaveChargerState(_ context.Context, s *models.ProcessedChargerState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.states[s.ChargerID] = s
	return nil
}

func (f *fakeStore) SaveMeasurements(_ context.Context, m *models.ProcessedMeasurements) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.measurement[m.ChargerID] = m
	return nil
}

func (f *fakeStore) SaveFullTransaction(_ context.Context, t *models.ProcessedFullChargingTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.full = append(f.full, t)
	return nil
}

func (f *fakeStore) SaveTransaction(_ context.Context, t *models.ProcessedChargingTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.tx = append(f.tx, t)
	return nil
}

func (f *fakeStore) SaveSlowChargingIncident(_ context.Context, inc *models.SlowChargingIncident) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incidentErr != nil {
		return f.incidentErr
	}
	f.incidents = append(f.incidents, inc)
	return nil
}

type published struct {
	topic, event string
	payload      interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (f *fakePublisher) Publish(topic, event string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{topic, event, payload})
	return nil
}

type fakeSink struct {
	records []models.Record
	err     error
}

func (f *fakeSink) Name() string { return "fake" }

func (f *fakeSink) Write(_ context.Context, rec models.Record) error {
	f.records = append(f.records, rec)
	return f.err
}

func TestIngestChargerState(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	sink := &fakeSink{err: errors.New("mirror down")}
	svc := NewIngestService(store, pub, zap.NewNop(), WithSinks(sink))

	rec, err := svc.IngestRaw(context.Background(),
		[]byte(`{"chargerId":"CHG-1","socketId":1,"status":"Charging","timeStamp":"2024-04-22T10:00:00Z"}`))

	require.NoError(t, err)
	assert.Equal(t, models.MessageTypeChargerState, rec.Type())
	require.Contains(t, store.states, "CHG-1")
	assert.Equal(t, "Charging", store.states["CHG-1"].Status)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "CHG-1", pub.events[0].topic)
	assert.Equal(t, EventChargerStateChanged, pub.events[0].event)
	assert.Len(t, sink.records, 1, "sink failure does not fail ingestion")
}

func TestIngestEventNames(t *testing.T) {
	tests := []struct {
		body  string
		event string
	}{
		{`{"chargerId":"CHG-1","measurements":[{"value":"230","typeOfMeasurement":"voltage","unit":"V"}]}`, EventMeasurementsUpdated},
		{`{"chargerId":"CHG-1","transactionId":5,"deviceTimeStampStart":"2024-04-22T10:00:00Z","deviceTimeStampEnd":"2024-04-22T11:00:00Z","meterReadStart":1,"meterReadEnd":2}`, EventFullChargingTransactionProcessed},
		{`{"chargerId":"CHG-1","transactionId":5,"action":"transaction_stop","meterRead":"10.5"}`, EventChargingTransactionProcessed},
	}

	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			pub := &fakePublisher{}
			svc := NewIngestService(newFakeStore(), pub, zap.NewNop())

			_, err := svc.IngestRaw(context.Background(), []byte(tt.body))

			require.NoError(t, err)
			require.Len(t, pub.events, 1)
			assert.Equal(t, tt.event, pub.events[0].event)
		})
	}
}

func TestIngestSlowCharging(t *testing.T) {
	body := []byte(`{"chargerId":"CHG-2","measurements":[{"value":"0.5","typeOfMeasurement":"power","unit":"kw"}]}`)

	t.Run("writes a side record", func(t *testing.T) {
		store := newFakeStore()
		svc := NewIngestService(store, &fakePublisher{}, zap.NewNop())

		_, err := svc.IngestRaw(context.Background(), body)

		require.NoError(t, err)
		require.Len(t, store.incidents, 1)
		assert.Equal(t, "0.5", store.incidents[0].PowerKw.String())
		assert.Equal(t, "CHG-2", store.incidents[0].ChargerID)
	})

	t.Run("side write failure does not fail the request", func(t *testing.T) {
		store := newFakeStore()
		store.incidentErr = errors.New("disk full")
		pub := &fakePublisher{}
		svc := NewIngestService(store, pub, zap.NewNop())

		_, err := svc.IngestRaw(context.Background(), body)

		require.NoError(t, err)
		assert.Contains(t, store.measurement, "CHG-2")
		assert.Len(t, pub.events, 1)
	})

	t.Run("threshold is configurable", func(t *testing.T) {
		store := newFakeStore()
		svc := NewIngestService(store, &fakePublisher{}, zap.NewNop(), WithSlowChargingThreshold(models.MustDecimal("0.1")))

		_, err := svc.IngestRaw(context.Background(), body)

		require.NoError(t, err)
		assert.Empty(t, store.incidents)
	})
}

func TestIngestFailures(t *testing.T) {
	t.Run("store failure is a dependency error and nothing is published", func(t *testing.T) {
		store := newFakeStore()
		store.err = errors.New("connection refused")
		pub := &fakePublisher{}
		svc := NewIngestService(store, pub, zap.NewNop())

		_, err := svc.IngestRaw(context.Background(), []byte(`{"chargerId":"CHG-1","status":"Charging"}`))

		assert.Equal(t, apperr.KindDependency, apperr.KindOf(err))
		assert.Empty(t, pub.events)
	})

	t.Run("invalid measurement persists nothing", func(t *testing.T) {
		store := newFakeStore()
		pub := &fakePublisher{}
		svc := NewIngestService(store, pub, zap.NewNop())

		_, err := svc.IngestRaw(context.Background(),
			[]byte(`{"chargerId":"CHG-1","measurements":[{"value":"1"},{"value":"abc"}]}`))

		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		assert.Empty(t, store.measurement)
		assert.Empty(t, pub.events)
	})

	t.Run("unclassified payload", func(t *testing.T) {
		svc := NewIngestService(newFakeStore(), &fakePublisher{}, zap.NewNop())

		_, err := svc.IngestRaw(context.Background(), []byte(`{"foo":1}`))

		assert.Equal(t, apperr.KindUnclassified, apperr.KindOf(err))
	})

	t.Run("canceled request stops before persisting", func(t *testing.T) {
		store := newFakeStore()
		svc := NewIngestService(store, &fakePublisher{}, zap.NewNop())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := svc.Ingest(ctx, &models.ChargerStateMessage{ChargerID: "CHG-1"})

		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, store.states)
	})
}
