package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/humitemp/internal/receiver"
	"github.com/srg/humitemp/internal/sensor"
	"github.com/srg/humitemp/pkg/config"
	"github.com/srg/humitemp/pkg/resource"
)

func TestReadingPrinterText(t *testing.T) {
	p := newReadingPrinter(config.FormatText, false)
	p.now = fixedNow

	tests := []struct {
		name string
		in   receiver.Reading
		want string
	}{
		{name: "reading", in: reading(-5.3, 60.7), want: "12:00:00   -5.3°C   60.7%"},
		{name: "disconnected", in: resource.Success(sensor.DisconnectedResult()), want: "12:00:00 sensor disconnected"},
		{name: "error", in: resource.Error[sensor.TempHumidityResult]("boom"), want: "12:00:00 boom"},
		{name: "loading", in: resource.Loading[sensor.TempHumidityResult]("Scanning"), want: "Scanning"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, err := p.Line(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, line)
		})
	}
}

func TestReadingPrinterJSONKeyOrder(t *testing.T) {
	p := newReadingPrinter(config.FormatJSON, false)
	p.now = fixedNow

	line, err := p.Line(reading(21.5, 40))
	require.NoError(t, err)
	assert.Equal(t,
		`{"time":"2024-05-01T12:00:00Z","kind":"success","temperature":21.5,"humidity":40,"state":"connected"}`,
		line)

	line, err = p.Line(resource.Error[sensor.TempHumidityResult]("boom"))
	require.NoError(t, err)
	assert.Equal(t, `{"time":"2024-05-01T12:00:00Z","kind":"error","message":"boom"}`, line)
}

func TestReadingPrinterColors(t *testing.T) {
	p := newReadingPrinter(config.FormatText, true)
	p.now = fixedNow

	line, err := p.Line(reading(20, 50))
	require.NoError(t, err)
	assert.Contains(t, line, "\x1b[", "interactive output MUST be colored")
}
