package utils

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestTimer_StopLogsOperation(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	timer := NewTimer("forward_pass", log)
	d := timer.Stop()

	assert.GreaterOrEqual(t, d, time.Duration(0))
	assert.Contains(t, buf.String(), `"operation":"forward_pass"`)
}

func TestTimer_SlowThreshold(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.InfoLevel)

	timer := NewTimer("episode", log).WithSlowThreshold(time.Nanosecond)
	time.Sleep(time.Millisecond)
	timer.Stop()

	assert.Contains(t, buf.String(), "Slow operation detected")
}

func TestTimer_Disabled(t *testing.T) {
	var buf bytes.Buffer
	timer := NewTimer("noop", zerolog.New(&buf))
	timer.Disable()

	assert.Equal(t, time.Duration(0), timer.Stop())
	assert.Empty(t, buf.String())
}

func TestMeasureDBQuery(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	done := MeasureDBQuery("list_bars", log)
	done(12)

	assert.Contains(t, buf.String(), `"rows_affected":12`)
}
