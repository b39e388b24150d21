package processor

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Movelgroup/movel-RestAPI/internal/apperr"
	"github.com/Movelgroup/movel-RestAPI/internal/models"
)

var fixedNow = time.Date(2024, 4, 22, 12, 0, 0, 0, time.UTC)

func newTestNormalizer() *Normalizer {
	return &Normalizer{now: func() time.Time { return fixedNow }}
}

func utc(t *testing.T, s string) models.UTCTime {
	t.Helper()
	parsed, err := models.ParseUTCTime(s)
	require.NoError(t, err)
	return models.UTCTime{Time: parsed}
}

func TestNormalizeChargerState(t *testing.T) {
	n := newTestNormalizer()

	t.Run("valid message", func(t *testing.T) {
		msg := &models.ChargerStateMessage{
			ChargerID: "CHG-1",
			SocketID:  1,
			TimeStamp: utc(t, "2024-04-22T10:00:00Z"),
			Status:    "charging",
			ErrorCode: "NoError",
		}

		got, err := n.ChargerState(msg)

		require.NoError(t, err)
		assert.Equal(t, "CHG-1", got.ChargerID)
		assert.Equal(t, "Charging", got.Status)
		assert.Equal(t, models.MessageTypeChargerState, got.MessageType)
		assert.Equal(t, time.UTC, got.Timestamp.Location())
		assert.Equal(t, 10, got.Timestamp.Hour())
		assert.Equal(t, "", got.Message)
	})

	t.Run("offset timestamp keeps wall clock and is marked UTC", func(t *testing.T) {
		msg := &models.ChargerStateMessage{ChargerID: "CHG-1", TimeStamp: utc(t, "2024-04-22T10:00:00+03:00")}

		got, err := n.ChargerState(msg)

		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 4, 22, 10, 0, 0, 0, time.UTC), got.Timestamp)
	})

	t.Run("missing status defaults to UNKNOWN", func(t *testing.T) {
		got, err := n.ChargerState(&models.ChargerStateMessage{ChargerID: "CHG-1"})

		require.NoError(t, err)
		assert.Equal(t, models.StatusUnknown, got.Status)
		assert.Equal(t, fixedNow, got.Timestamp)
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		_, err := n.ChargerState(&models.ChargerStateMessage{ChargerID: "CHG-1", Status: "Exploding"})

		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("every known status is accepted", func(t *testing.T) {
		for _, status := range models.ChargerStatuses {
			got, err := n.ChargerState(&models.ChargerStateMessage{ChargerID: "CHG-1", Status: status})
			require.NoError(t, err, status)
			assert.Equal(t, status, got.Status)
		}
	})

	for _, id := range []string{"", "   "} {
		t.Run(fmt.Sprintf("charger id %q is rejected", id), func(t *testing.T) {
			_, err := n.ChargerState(&models.ChargerStateMessage{ChargerID: id, Status: "Charging"})

			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestNormalizeMeasurements(t *testing.T) {
	n := newTestNormalizer()

	t.Run("keeps count and order", func(t *testing.T) {
		msg := &models.MeasurementsMessage{
			ChargerID: "CHG-1",
			SocketID:  1,
			TimeStamp: utc(t, "2024-04-22T10:00:00Z"),
			Measurements: []models.Measurement{
				{Value: "230.1", TypeOfMeasurement: "voltage", Phase: "L1", Unit: "V"},
				{Value: "-3", TypeOfMeasurement: "current", Phase: "L2", Unit: "A"},
				{Value: "11.04", TypeOfMeasurement: "power", Unit: "kW"},
			},
		}

		got, err := n.Measurements(msg)

		require.NoError(t, err)
		require.Len(t, got.Measurements, 3)
		assert.Equal(t, "230.1", got.Measurements[0].Value.String())
		assert.Equal(t, "-3", got.Measurements[1].Value.String())
		assert.Equal(t, "11.04", got.Measurements[2].Value.String())
		assert.Equal(t, "L2", got.Measurements[1].Phase)
		assert.Equal(t, models.MessageTypeMeasurements, got.MessageType)
	})

	t.Run("nil measurements become an empty batch", func(t *testing.T) {
		got, err := n.Measurements(&models.MeasurementsMessage{ChargerID: "CHG-1"})

		require.NoError(t, err)
		assert.NotNil(t, got.Measurements)
		assert.Empty(t, got.Measurements)
	})

	for _, bad := range []string{"abc", "", "1.", ".5", "1e3", "1,5", " 1"} {
		t.Run(fmt.Sprintf("value %q fails the whole batch", bad), func(t *testing.T) {
			msg := &models.MeasurementsMessage{
				ChargerID: "CHG-1",
				Measurements: []models.Measurement{
					{Value: "1.0", TypeOfMeasurement: "power", Unit: "kW"},
					{Value: bad, TypeOfMeasurement: "power", Unit: "kW"},
				},
			}

			got, err := n.Measurements(msg)

			assert.Nil(t, got)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}

	t.Run("missing charger id", func(t *testing.T) {
		_, err := n.Measurements(&models.MeasurementsMessage{})

		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
}

func TestNormalizeFullTransaction(t *testing.T) {
	n := newTestNormalizer()

	t.Run("derives consumption from meter reads", func(t *testing.T) {
		msg := &models.FullChargingTransaction{
			ChargerID:            "CHG-1",
			TransactionID:        42,
			DeviceTimeStampStart: utc(t, "2024-04-22T10:00:00Z"),
			DeviceTimeStampEnd:   utc(t, "2024-04-22T11:00:00Z"),
			MeterReadStart:       models.MustDecimal("1000"),
			MeterReadEnd:         models.MustDecimal("12500.5"),
		}

		got, err := n.FullTransaction(msg)

		require.NoError(t, err)
		assert.Equal(t, "11500.5", got.ConsumptionWh.String())
		assert.Equal(t, models.MessageTypeFullTransaction, got.MessageType)
		assert.Equal(t, 11, got.TimeStampEnd.Hour())
	})

	t.Run("reported consumption wins", func(t *testing.T) {
		reported := models.MustDecimal("9000")
		msg := &models.FullChargingTransaction{
			ChargerID:      "CHG-1",
			TransactionID:  42,
			TimeStampStart: utc(t, "2024-04-22T10:00:00Z"),
			MeterReadStart: models.MustDecimal("1000"),
			MeterReadEnd:   models.MustDecimal("12500"),
			ConsumptionWh:  &reported,
		}

		got, err := n.FullTransaction(msg)

		require.NoError(t, err)
		assert.Equal(t, "9000", got.ConsumptionWh.String())
		assert.Equal(t, 10, got.TimeStampStart.Hour())
	})

	t.Run("missing transaction id", func(t *testing.T) {
		_, err := n.FullTransaction(&models.FullChargingTransaction{ChargerID: "CHG-1"})

		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
}

func TestNormalizeTransaction(t *testing.T) {
	n := newTestNormalizer()

	t.Run("start", func(t *testing.T) {
		got, err := n.Transaction(&models.ChargingTransaction{
			ChargerID:     "CHG-1",
			TransactionID: 7,
			Action:        "Transaction_Start",
			MeterRead:     models.MustDecimal("1234.5"),
		})

		require.NoError(t, err)
		assert.Equal(t, models.ActionTransactionStart, got.Action)
		assert.Equal(t, models.MessageTypeTransaction, got.MessageType)
		assert.Equal(t, fixedNow, got.TimeStamp)
	})

	t.Run("unknown action", func(t *testing.T) {
		_, err := n.Transaction(&models.ChargingTransaction{ChargerID: "CHG-1", TransactionID: 7, Action: "pause"})

		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
}

func TestNormalizeDispatch(t *testing.T) {
	n := newTestNormalizer()

	rec, err := n.Normalize(&models.ChargerStateMessage{ChargerID: "CHG-9", Status: "Available"})

	require.NoError(t, err)
	assert.Equal(t, "CHG-9", rec.Charger())
	assert.Equal(t, models.MessageTypeChargerState, rec.Type())
}

func TestSlowChargingPower(t *testing.T) {
	threshold := models.MustDecimal("1.0")

	tests := []struct {
		name  string
		items []models.ProcessedMeasurement
		total string
		slow  bool
	}{
		{
			name:  "single low power entry",
			items: []models.ProcessedMeasurement{{Value: models.MustDecimal("0.5"), TypeOfMeasurement: "power", Unit: "kw"}},
			total: "0.5",
			slow:  true,
		},
		{
			name: "sums phases",
			items: []models.ProcessedMeasurement{
				{Value: models.MustDecimal("0.4"), TypeOfMeasurement: "power", Unit: "kW", Phase: "L1"},
				{Value: models.MustDecimal("0.7"), TypeOfMeasurement: "Power", Unit: "KW", Phase: "L2"},
			},
			total: "1.1",
			slow:  false,
		},
		{
			name: "ignores other types and units",
			items: []models.ProcessedMeasurement{
				{Value: models.MustDecimal("230"), TypeOfMeasurement: "voltage", Unit: "V"},
				{Value: models.MustDecimal("500"), TypeOfMeasurement: "power", Unit: "W"},
				{Value: models.MustDecimal("0.2"), TypeOfMeasurement: "power", Unit: "kw"},
			},
			total: "0.2",
			slow:  true,
		},
		{
			name:  "no power entries is not slow",
			items: []models.ProcessedMeasurement{{Value: models.MustDecimal("230"), TypeOfMeasurement: "voltage", Unit: "V"}},
			total: "0",
			slow:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, slow := SlowChargingPower(&models.ProcessedMeasurements{Measurements: tt.items}, threshold)

			assert.Equal(t, tt.slow, slow)
			assert.Zero(t, total.Cmp(models.MustDecimal(tt.total)), "total %s", total)
		})
	}
}
