package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimalJSON(t *testing.T) {
	t.Run("accepts numbers and numeric strings", func(t *testing.T) {
		var v struct {
			A Decimal  `json:"a"`
			B Decimal  `json:"b"`
			C *Decimal `json:"c"`
		}

		require.NoError(t, json.Unmarshal([]byte(`{"a":12.50,"b":"-7.25"}`), &v))

		assert.Equal(t, "12.50", v.A.String())
		assert.Equal(t, "-7.25", v.B.String())
		assert.Nil(t, v.C)
	})

	t.Run("encodes as a JSON number", func(t *testing.T) {
		out, err := json.Marshal(struct {
			V Decimal `json:"v"`
			Z Decimal `json:"z"`
		}{V: MustDecimal("0.5")})

		require.NoError(t, err)
		assert.JSONEq(t, `{"v":0.5,"z":0}`, string(out))
	})

	t.Run("rejects garbage", func(t *testing.T) {
		var d Decimal
		assert.Error(t, json.Unmarshal([]byte(`"abc"`), &d))
	})
}

func TestDecimalArithmetic(t *testing.T) {
	sum := MustDecimal("0.1").Add(MustDecimal("0.2"))

	assert.Equal(t, 0, sum.Cmp(MustDecimal("0.3")))
	assert.Equal(t, "-0.1", MustDecimal("0.2").Sub(MustDecimal("0.3")).String())
	assert.True(t, Decimal{}.IsZero())
	assert.InDelta(t, 0.3, sum.Float64(), 1e-9)
}

func TestParseUTCTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-04-22T10:00:00Z", time.Date(2024, 4, 22, 10, 0, 0, 0, time.UTC)},
		{"2024-04-22T10:00:00+02:00", time.Date(2024, 4, 22, 10, 0, 0, 0, time.UTC)},
		{"2024-04-22T10:00:00.250", time.Date(2024, 4, 22, 10, 0, 0, 250000000, time.UTC)},
		{"2024-04-22 10:00:00", time.Date(2024, 4, 22, 10, 0, 0, 0, time.UTC)},
		{"1713780000", time.Unix(1713780000, 0).UTC()},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseUTCTime(tt.in)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	_, err := ParseUTCTime("yesterday")
	assert.Error(t, err)
}

func TestUTCTimeJSON(t *testing.T) {
	var v struct {
		T UTCTime `json:"t"`
		N UTCTime `json:"n"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"t":"2024-04-22T10:00:00Z","n":null}`), &v))

	assert.True(t, v.N.IsZero())
	out, err := json.Marshal(v.T)
	require.NoError(t, err)
	assert.Equal(t, `"2024-04-22T10:00:00Z"`, string(out))
}

func TestCanonicalStatus(t *testing.T) {
	got, ok := CanonicalStatus("suspendedcar")
	assert.True(t, ok)
	assert.Equal(t, "SuspendedCAR", got)

	_, ok = CanonicalStatus("Sleeping")
	assert.False(t, ok)
}

func TestChargerDataHasUser(t *testing.T) {
	c := &ChargerData{ChargerID: "CHG-1", OwnerID: "u1", AssociatedUserIDs: []string{"u2"}}

	assert.True(t, c.HasUser("u1"))
	assert.True(t, c.HasUser("u2"))
	assert.False(t, c.HasUser("u3"))
}
