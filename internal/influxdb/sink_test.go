package influxdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Movelgroup/movel-RestAPI/internal/models"
)

type recordingWriter struct {
	points []*write.Point
	err    error
}

func (w *recordingWriter) WritePoint(_ context.Context, point ...*write.Point) error {
	w.points = append(w.points, point...)
	return w.err
}

var ts = time.Date(2024, 4, 22, 10, 0, 0, 0, time.UTC)

func TestPointsMeasurements(t *testing.T) {
	rec := &models.ProcessedMeasurements{
		ChargerID: "CHG-1",
		SocketID:  1,
		Timestamp: ts,
		Measurements: []models.ProcessedMeasurement{
			{Value: models.MustDecimal("230.5"), TypeOfMeasurement: "voltage", Phase: "L1", Unit: "V"},
			{Value: models.MustDecimal("7.2"), TypeOfMeasurement: "power", Unit: "kW"},
		},
	}

	points := Points(rec)

	require.Len(t, points, 2)
	assert.Equal(t, MeasurementChargerReading, points[0].Name())
	line := write.PointToLineProtocol(points[0], time.Nanosecond)
	for _, part := range []string{"chargerId=CHG-1", "phase=L1", "type=voltage", "unit=V", "value=230.5", "1713780000000000000"} {
		assert.Contains(t, line, part)
	}
	assert.NotContains(t, write.PointToLineProtocol(points[1], time.Nanosecond), "phase=")
}

func TestPointsPerRecordType(t *testing.T) {
	tests := []struct {
		rec  models.Record
		want string
	}{
		{&models.ProcessedChargerState{ChargerID: "CHG-1", Status: "Charging", Timestamp: ts}, MeasurementChargerState},
		{&models.ProcessedFullChargingTransaction{ChargerID: "CHG-1", TransactionID: 9, TimeStampStart: ts, TimeStampEnd: ts.Add(time.Hour)}, MeasurementTransaction},
		{&models.ProcessedChargingTransaction{ChargerID: "CHG-1", Action: models.ActionTransactionStart, TransactionID: 9, TimeStamp: ts}, MeasurementTransactionEvt},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			points := Points(tt.rec)

			require.Len(t, points, 1)
			assert.Equal(t, tt.want, points[0].Name())
			assert.Contains(t, write.PointToLineProtocol(points[0], time.Nanosecond), "chargerId=CHG-1")
		})
	}
}

func TestSinkWrite(t *testing.T) {
	w := &recordingWriter{}
	s := &Sink{api: w}

	require.NoError(t, s.Write(context.Background(), &models.ProcessedChargerState{ChargerID: "CHG-1", Status: "Available", Timestamp: ts}))
	assert.Len(t, w.points, 1)

	require.NoError(t, s.Write(context.Background(), &models.ProcessedMeasurements{ChargerID: "CHG-1"}), "empty batch writes nothing")
	assert.Len(t, w.points, 1)

	w.err = errors.New("unauthorized")
	assert.ErrorContains(t, s.Write(context.Background(), &models.ProcessedChargerState{ChargerID: "CHG-1", Timestamp: ts}), "influx write")
}
