package processor

import (
	"encoding/json"
	"sort"

	"github.com/Movelgroup/movel-RestAPI/internal/apperr"
	"github.com/Movelgroup/movel-RestAPI/internal/models"
)

// schema required top-level keys of a message kind
type schema struct {
	kind models.MessageKind
	keys []string
}

// schemas in priority order, first match wins. A payload carrying both
// transaction and state keys is classified as a transaction.
var schemas = []schema{
	{kind: models.KindFullTransaction, keys: []string{"transactionId", "deviceTimeStampStart", "deviceTimeStampEnd"}},
	{kind: models.KindTransaction, keys: []string{"transactionId", "action"}},
	{kind: models.KindMeasurements, keys: []string{"measurements", "chargerId"}},
	{kind: models.KindChargerState, keys: []string{"status", "chargerId"}},
}

// Classify determines the message kind from the set of keys present.
// A key counts as present even when its value is null.
func Classify(fields map[string]json.RawMessage) models.MessageKind {
	for _, s := range schemas {
		if hasAll(fields, s.keys) {
			return s.kind
		}
	}
	return models.KindUnknown
}

func hasAll(fields map[string]json.RawMessage, keys []string) bool {
	for _, k := range keys {
		if _, ok := fields[k]; !ok {
			return false
		}
	}
	return true
}

// NewMessage allocates an empty message of the given kind
func NewMessage(kind models.MessageKind) models.Message {
	switch kind {
	case models.KindChargerState:
		return &models.ChargerStateMessage{}
	case models.KindMeasurements:
		return &models.MeasurementsMessage{}
	case models.KindFullTransaction:
		return &models.FullChargingTransaction{}
	case models.KindTransaction:
		return &models.ChargingTransaction{}
	default:
		return nil
	}
}

// Decode classifies an untyped JSON object and decodes it into its message type.
func Decode(body []byte) (models.Message, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, apperr.Validation("payload must be a JSON object: %v", err)
	}

	kind := Classify(fields)
	if kind == models.KindUnknown {
		return nil, apperr.Unclassified(sortedKeys(fields))
	}

	msg := NewMessage(kind)
	if err := json.Unmarshal(body, msg); err != nil {
		return nil, apperr.Validation("invalid %s payload: %v", kind, err)
	}
	return msg, nil
}

func sortedKeys(fields map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
