package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/couchcryptid/precip-trend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	avg := 0.0125
	s := domain.Summary{
		ID:           "0123456789abcdef",
		Dataset:      "cru_ts4.07.1901.2022.pre.dat.nc",
		Variable:     "pre",
		Box:          domain.CONUS,
		Samples:      372,
		Cells:        5000,
		AverageTrend: &avg,
		GeneratedAt:  now,
	}

	msg, err := serializeToMessage(s)
	require.NoError(t, err)

	assert.Equal(t, []byte("0123456789abcdef"), msg.Key)
	assert.Contains(t, string(msg.Value), `"variable":"pre"`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "generated_at", msg.Headers[0].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[0].Value)
	assert.Equal(t, "variable", msg.Headers[1].Key)
	assert.Equal(t, []byte("pre"), msg.Headers[1].Value)

	var back domain.Summary
	require.NoError(t, json.Unmarshal(msg.Value, &back))
	require.NotNil(t, back.AverageTrend)
	assert.InDelta(t, avg, *back.AverageTrend, 0)
}

func TestSerializeToMessage_UndefinedAverage(t *testing.T) {
	msg, err := serializeToMessage(domain.Summary{ID: "x", Variable: "pre"})
	require.NoError(t, err)
	assert.Contains(t, string(msg.Value), `"average_trend":null`)
}
