package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/srg/humitemp/internal/device"
	"github.com/srg/humitemp/internal/receiver"
	"github.com/srg/humitemp/internal/sensor"
)

func TestFormatUserError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "bluetooth off",
			err:  fmt.Errorf("failed to start scan: %w", device.ErrBluetoothOff),
			want: "Bluetooth is turned off or unavailable; enable it and try again",
		},
		{
			name: "timeout",
			err:  fmt.Errorf("dial: %w", device.ErrTimeout),
			want: "the sensor did not respond in time; move closer and try again",
		},
		{
			name: "receiver error",
			err:  &ReceiveError{Message: receiver.MsgPublisherNotFound},
			want: receiver.MsgPublisherNotFound,
		},
		{
			name: "not found",
			err:  &device.NotFoundError{Resource: "service", UUIDs: []string{"aa20"}},
			want: `sensor service "aa20" not found`,
		},
		{
			name: "decode",
			err:  &sensor.DecodeError{Length: 3},
			want: "cannot decode payload: payload too short: got 3 bytes, want 6",
		},
		{
			name: "other",
			err:  errors.New("boom"),
			want: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatUserError(tt.err))
		})
	}
}
