package influxdb

import (
	"context"
	"fmt"
	"strconv"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/Movelgroup/movel-RestAPI/internal/models"
)

// Measurement names
const (
	MeasurementChargerState   = "charger_state"
	MeasurementChargerReading = "charger_measurement"
	MeasurementTransaction    = "charging_transaction"
	MeasurementTransactionEvt = "charging_transaction_event"
)

type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// Sink mirrors processed records as InfluxDB points
type Sink struct {
	client influxdb2.Client
	api    pointWriter
}

// NewSink creates a blocking-write sink. Caller should call Close() when done.
func NewSink(url, token, org, bucket string) *Sink {
	client := influxdb2.NewClient(url, token)
	return &Sink{client: client, api: client.WriteAPIBlocking(org, bucket)}
}

// Name sink name for logs
func (s *Sink) Name() string { return "influxdb" }

// Health checks that InfluxDB is reachable and the token is valid
func (s *Sink) Health(ctx context.Context) error {
	_, err := s.client.Health(ctx)
	return err
}

// Close releases the client
func (s *Sink) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// Write converts rec into points and writes them
func (s *Sink) Write(ctx context.Context, rec models.Record) error {
	points := Points(rec)
	if len(points) == 0 {
		return nil
	}
	if err := s.api.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("influx write: %w", err)
	}
	return nil
}

// Points converts a processed record into line-protocol points
func Points(rec models.Record) []*write.Point {
	switch r := rec.(type) {
	case *models.ProcessedChargerState:
		p := influxdb2.NewPointWithMeasurement(MeasurementChargerState).
			AddTag("chargerId", r.ChargerID).
			AddTag("socketId", strconv.Itoa(r.SocketID)).
			AddField("status", r.Status).
			SetTime(r.Timestamp)
		if r.ErrorCode != "" {
			p.AddField("errorCode", r.ErrorCode)
		}
		return []*write.Point{p}

	case *models.ProcessedMeasurements:
		points := make([]*write.Point, 0, len(r.Measurements))
		for _, m := range r.Measurements {
			p := influxdb2.NewPointWithMeasurement(MeasurementChargerReading).
				AddTag("chargerId", r.ChargerID).
				AddTag("socketId", strconv.Itoa(r.SocketID)).
				AddField("value", m.Value.Float64()).
				SetTime(r.Timestamp)
			addTagIfSet(p, "type", m.TypeOfMeasurement)
			addTagIfSet(p, "phase", m.Phase)
			addTagIfSet(p, "unit", m.Unit)
			points = append(points, p)
		}
		return points

	case *models.ProcessedFullChargingTransaction:
		p := influxdb2.NewPointWithMeasurement(MeasurementTransaction).
			AddTag("chargerId", r.ChargerID).
			AddTag("transactionId", strconv.FormatInt(r.TransactionID, 10)).
			AddField("consumptionWh", r.ConsumptionWh.Float64()).
			AddField("meterReadStart", r.MeterReadStart.Float64()).
			AddField("meterReadEnd", r.MeterReadEnd.Float64()).
			AddField("durationSeconds", r.TimeStampEnd.Sub(r.TimeStampStart).Seconds()).
			SetTime(r.TimeStampEnd)
		return []*write.Point{p}

	case *models.ProcessedChargingTransaction:
		p := influxdb2.NewPointWithMeasurement(MeasurementTransactionEvt).
			AddTag("chargerId", r.ChargerID).
			AddTag("action", r.Action).
			AddField("transactionId", r.TransactionID).
			AddField("meterRead", r.MeterRead.Float64()).
			SetTime(r.TimeStamp)
		return []*write.Point{p}
	}
	return nil
}

// addTagIfSet skips empty values, which line protocol cannot encode
func addTagIfSet(p *write.Point, key, value string) {
	if value != "" {
		p.AddTag(key, value)
	}
}
