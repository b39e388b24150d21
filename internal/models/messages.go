package models

// MessageKind inbound message kind
type MessageKind int

const (
	KindUnknown MessageKind = iota
	KindChargerState
	KindMeasurements
	KindFullTransaction
	KindTransaction
)

func (k MessageKind) String() string {
	switch k {
	case KindChargerState:
		return "ChargerState"
	case KindMeasurements:
		return "Measurements"
	case KindFullTransaction:
		return "FullChargingTransaction"
	case KindTransaction:
		return "ChargingTransaction"
	default:
		return "Unknown"
	}
}

// Message one decoded inbound message. Implemented by the four raw message types.
type Message interface {
	Kind() MessageKind
}

// ChargerStateMessage current status of a charger socket.
// Status: Available, Error, Offline, Info, Charging, SuspendedCAR,
// SuspendedCHARGER, Preparing, Finishing, Booting, Unavailable.
type ChargerStateMessage struct {
	ChargerID string  `json:"chargerId"`
	SocketID  int     `json:"socketId"`
	TimeStamp UTCTime `json:"timeStamp"`
	Status    string  `json:"status"`
	ErrorCode string  `json:"errorCode"`
	Message   string  `json:"message"`
}

func (*ChargerStateMessage) Kind() MessageKind { return KindChargerState }

// MeasurementsMessage meter values reported during a charging transaction.
// TypeOfMeasurement, Phase and Unit follow the OCPP 1.6 model.
type MeasurementsMessage struct {
	ChargerID    string        `json:"chargerId"`
	SocketID     int           `json:"socketId"`
	TimeStamp    UTCTime       `json:"timeStamp"`
	Measurements []Measurement `json:"measurements"`
	Message      string        `json:"message"`
}

func (*MeasurementsMessage) Kind() MessageKind { return KindMeasurements }

// Measurement raw meter value, Value is a decimal string
type Measurement struct {
	Value             string `json:"value"`
	TypeOfMeasurement string `json:"typeOfMeasurement"`
	Phase             string `json:"phase"`
	Unit              string `json:"unit"`
}

// FullChargingTransaction summary of a finished charging transaction.
// The push API sends deviceTimeStamp*, the direct API timeStamp*.
type FullChargingTransaction struct {
	ChargerID            string   `json:"chargerId"`
	SocketID             int      `json:"socketId"`
	TimeStampStart       UTCTime  `json:"timeStampStart"`
	TimeStampEnd         UTCTime  `json:"timeStampEnd"`
	DeviceTimeStampStart UTCTime  `json:"deviceTimeStampStart"`
	DeviceTimeStampEnd   UTCTime  `json:"deviceTimeStampEnd"`
	TransactionID        int64    `json:"transactionId"`
	AuthorizedIDTag      string   `json:"authorizedIdTag"`
	MeterReadStart       Decimal  `json:"meterReadStart"`
	MeterReadEnd         Decimal  `json:"meterReadEnd"`
	ConsumptionWh        *Decimal `json:"consumptionWh"`
}

func (*FullChargingTransaction) Kind() MessageKind { return KindFullTransaction }

// ChargingTransaction sent when a transaction starts or stops.
type ChargingTransaction struct {
	ChargerID       string  `json:"chargerId"`
	SocketID        int     `json:"socketId"`
	TimeStamp       UTCTime `json:"timeStamp"`
	DeviceTimeStamp UTCTime `json:"deviceTimeStamp"`
	Action          string  `json:"action"`
	TransactionID   int64   `json:"transactionId"`
	AuthorizedIDTag string  `json:"authorizedIdTag"`
	MeterRead       Decimal `json:"meterRead"`
}

func (*ChargingTransaction) Kind() MessageKind { return KindTransaction }

// Transaction actions
const (
	ActionTransactionStart = "transaction_start"
	ActionTransactionStop  = "transaction_stop"
)
