package models

import "time"

// Message type tags carried by every processed record
const (
	MessageTypeChargerState    = "chargerState"
	MessageTypeMeasurements    = "measurements"
	MessageTypeFullTransaction = "fullyCharged"
	MessageTypeTransaction     = "chargingStartStop"
)

// StatusUnknown is stored when a state message has no status
const StatusUnknown = "UNKNOWN"

// Record a processed (canonical) record
type Record interface {
	Charger() string
	Type() string
}

// ProcessedChargerState canonical charger state, stored as the charger's current state
type ProcessedChargerState struct {
	ChargerID   string    `json:"chargerId"`
	SocketID    int       `json:"socketId"`
	Timestamp   time.Time `json:"timestamp"`
	Status      string    `json:"status"`
	ErrorCode   string    `json:"errorCode,omitempty"`
	Message     string    `json:"message"`
	MessageType string    `json:"messageType"`
}

func (p *ProcessedChargerState) Charger() string { return p.ChargerID }
func (p *ProcessedChargerState) Type() string    { return p.MessageType }

// ProcessedMeasurements canonical measurement batch
type ProcessedMeasurements struct {
	ChargerID    string                 `json:"chargerId"`
	SocketID     int                    `json:"socketId"`
	Timestamp    time.Time              `json:"timestamp"`
	MessageType  string                 `json:"messageType"`
	Measurements []ProcessedMeasurement `json:"measurements"`
}

func (p *ProcessedMeasurements) Charger() string { return p.ChargerID }
func (p *ProcessedMeasurements) Type() string    { return p.MessageType }

// ProcessedMeasurement one parsed meter value
type ProcessedMeasurement struct {
	Value             Decimal `json:"value"`
	TypeOfMeasurement string  `json:"typeOfMeasurement"`
	Phase             string  `json:"phase"`
	Unit              string  `json:"unit"`
}

// ProcessedFullChargingTransaction canonical finished transaction
type ProcessedFullChargingTransaction struct {
	ChargerID       string    `json:"chargerId"`
	MessageType     string    `json:"messageType"`
	SocketID        int       `json:"socketId"`
	TimeStampStart  time.Time `json:"timeStampStart"`
	TimeStampEnd    time.Time `json:"timeStampEnd"`
	TransactionID   int64     `json:"transactionId"`
	AuthorizedIDTag string    `json:"authorizedIdTag"`
	MeterReadStart  Decimal   `json:"meterReadStart"`
	MeterReadEnd    Decimal   `json:"meterReadEnd"`
	ConsumptionWh   Decimal   `json:"consumptionWh"`
}

func (p *ProcessedFullChargingTransaction) Charger() string { return p.ChargerID }
func (p *ProcessedFullChargingTransaction) Type() string    { return p.MessageType }

// ProcessedChargingTransaction canonical start/stop event
type ProcessedChargingTransaction struct {
	ChargerID       string    `json:"chargerId"`
	MessageType     string    `json:"messageType"`
	SocketID        int       `json:"socketId"`
	TimeStamp       time.Time `json:"timeStamp"`
	Action          string    `json:"action"`
	TransactionID   int64     `json:"transactionId"`
	AuthorizedIDTag string    `json:"authorizedIdTag"`
	MeterRead       Decimal   `json:"meterRead"`
}

func (p *ProcessedChargingTransaction) Charger() string { return p.ChargerID }
func (p *ProcessedChargingTransaction) Type() string    { return p.MessageType }

// SlowChargingIncident side record written when delivered power is below the threshold
type SlowChargingIncident struct {
	ChargerID            string                 `json:"chargerId"`
	SocketID             int                    `json:"socketId"`
	Timestamp            time.Time              `json:"timestamp"`
	PowerKw              Decimal                `json:"powerKw"`
	DetailedMeasurements []ProcessedMeasurement `json:"detailedMeasurements"`
	DetectedAt           time.Time              `json:"detectedAt"`
}
