package processor

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Movelgroup/movel-RestAPI/internal/apperr"
	"github.com/Movelgroup/movel-RestAPI/internal/models"
)

var measurementValue = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// Normalizer converts raw messages into processed records.
// It never persists or publishes.
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer creates a normalizer stamping missing timestamps with time.Now
func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// Normalize dispatches on the message kind
func (n *Normalizer) Normalize(msg models.Message) (models.Record, error) {
	switch m := msg.(type) {
	case *models.ChargerStateMessage:
		return n.ChargerState(m)
	case *models.MeasurementsMessage:
		return n.Measurements(m)
	case *models.FullChargingTransaction:
		return n.FullTransaction(m)
	case *models.ChargingTransaction:
		return n.Transaction(m)
	default:
		return nil, apperr.Validation("unsupported message type %T", msg)
	}
}

// ChargerState normalizes a state message
func (n *Normalizer) ChargerState(msg *models.ChargerStateMessage) (*models.ProcessedChargerState, error) {
	if msg == nil || strings.TrimSpace(msg.ChargerID) == "" {
		return nil, apperr.Validation("chargerId is required for ChargerStateMessage")
	}

	status := models.StatusUnknown
	if msg.Status != "" {
		canonical, ok := models.CanonicalStatus(msg.Status)
		if !ok {
			return nil, apperr.Validation("unknown charger status %q", msg.Status)
		}
		status = canonical
	}

	return &models.ProcessedChargerState{
		ChargerID:   msg.ChargerID,
		SocketID:    msg.SocketID,
		Timestamp:   n.stamp(msg.TimeStamp),
		Status:      status,
		ErrorCode:   msg.ErrorCode,
		Message:     msg.Message,
		MessageType: models.MessageTypeChargerState,
	}, nil
}

// Measurements normalizes a measurement batch. One unparsable value rejects
// the whole batch.
func (n *Normalizer) Measurements(msg *models.MeasurementsMessage) (*models.ProcessedMeasurements, error) {
	if msg == nil || strings.TrimSpace(msg.ChargerID) == "" {
		return nil, apperr.Validation("chargerId is required")
	}

	processed := make([]models.ProcessedMeasurement, 0, len(msg.Measurements))
	for i, m := range msg.Measurements {
		value, err := parseMeasurementValue(m.Value)
		if err != nil {
			return nil, apperr.Validation("invalid measurement value at index %d: %v", i, err)
		}
		processed = append(processed, models.ProcessedMeasurement{
			Value:             value,
			TypeOfMeasurement: m.TypeOfMeasurement,
			Phase:             m.Phase,
			Unit:              m.Unit,
		})
	}

	return &models.ProcessedMeasurements{
		ChargerID:    msg.ChargerID,
		SocketID:     msg.SocketID,
		Timestamp:    n.stamp(msg.TimeStamp),
		MessageType:  models.MessageTypeMeasurements,
		Measurements: processed,
	}, nil
}

func parseMeasurementValue(s string) (models.Decimal, error) {
	if !measurementValue.MatchString(s) {
		return models.Decimal{}, fmt.Errorf("%q is not a decimal number", s)
	}
	return models.ParseDecimal(s)
}

// FullTransaction normalizes a finished-transaction summary.
// A missing consumption is derived from the meter reads.
func (n *Normalizer) FullTransaction(msg *models.FullChargingTransaction) (*models.ProcessedFullChargingTransaction, error) {
	if msg == nil || strings.TrimSpace(msg.ChargerID) == "" {
		return nil, apperr.Validation("chargerId is required")
	}
	if msg.TransactionID == 0 {
		return nil, apperr.Validation("transactionId is required")
	}

	consumption := msg.MeterReadEnd.Sub(msg.MeterReadStart)
	if msg.ConsumptionWh != nil {
		consumption = *msg.ConsumptionWh
	}

	return &models.ProcessedFullChargingTransaction{
		ChargerID:       msg.ChargerID,
		MessageType:     models.MessageTypeFullTransaction,
		SocketID:        msg.SocketID,
		TimeStampStart:  n.stamp(firstSet(msg.DeviceTimeStampStart, msg.TimeStampStart)),
		TimeStampEnd:    n.stamp(firstSet(msg.DeviceTimeStampEnd, msg.TimeStampEnd)),
		TransactionID:   msg.TransactionID,
		AuthorizedIDTag: msg.AuthorizedIDTag,
		MeterReadStart:  msg.MeterReadStart,
		MeterReadEnd:    msg.MeterReadEnd,
		ConsumptionWh:   consumption,
	}, nil
}

// Transaction normalizes a start/stop event
func (n *Normalizer) Transaction(msg *models.ChargingTransaction) (*models.ProcessedChargingTransaction, error) {
	if msg == nil || strings.TrimSpace(msg.ChargerID) == "" {
		return nil, apperr.Validation("chargerId is required")
	}
	if msg.TransactionID == 0 {
		return nil, apperr.Validation("transactionId is required")
	}

	action := strings.ToLower(strings.TrimSpace(msg.Action))
	if action != models.ActionTransactionStart && action != models.ActionTransactionStop {
		return nil, apperr.Validation("action must be %q or %q, got %q",
			models.ActionTransactionStart, models.ActionTransactionStop, msg.Action)
	}

	return &models.ProcessedChargingTransaction{
		ChargerID:       msg.ChargerID,
		MessageType:     models.MessageTypeTransaction,
		SocketID:        msg.SocketID,
		TimeStamp:       n.stamp(firstSet(msg.DeviceTimeStamp, msg.TimeStamp)),
		Action:          action,
		TransactionID:   msg.TransactionID,
		AuthorizedIDTag: msg.AuthorizedIDTag,
		MeterRead:       msg.MeterRead,
	}, nil
}

// stamp returns ts in UTC, receipt time when the device sent none
func (n *Normalizer) stamp(ts models.UTCTime) time.Time {
	if ts.IsZero() {
		return n.now().UTC()
	}
	return ts.Time.UTC()
}

func firstSet(times ...models.UTCTime) models.UTCTime {
	for _, t := range times {
		if !t.IsZero() {
			return t
		}
	}
	return models.UTCTime{}
}

// SlowChargingPower sums active power entries reported in kW. ok is false when
// the batch has no such entry or the total is not below threshold.
func SlowChargingPower(m *models.ProcessedMeasurements, threshold models.Decimal) (total models.Decimal, ok bool) {
	found := false
	for _, pm := range m.Measurements {
		if strings.EqualFold(pm.TypeOfMeasurement, "power") && strings.EqualFold(pm.Unit, "kw") {
			total = total.Add(pm.Value)
			found = true
		}
	}
	if !found {
		return total, false
	}
	return total, total.Cmp(threshold) < 0
}
