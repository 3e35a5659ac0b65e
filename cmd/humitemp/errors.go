package main

import (
	"errors"
	"fmt"

	"github.com/srg/humitemp/internal/device"
	"github.com/srg/humitemp/internal/sensor"
)

// ReceiveError carries a terminal Error published by the receiver
type ReceiveError struct {
	Message string
}

func (e *ReceiveError) Error() string {
	return e.Message
}

// FormatUserError turns an error into a one-line message for the terminal
func FormatUserError(err error) string {
	var recvErr *ReceiveError
	var notFound *device.NotFoundError
	var decodeErr *sensor.DecodeError

	switch {
	case errors.Is(err, device.ErrBluetoothOff):
		return "Bluetooth is turned off or unavailable; enable it and try again"
	case errors.Is(err, device.ErrTimeout):
		return "the sensor did not respond in time; move closer and try again"
	case errors.Is(err, device.ErrUnsupported):
		return "BLE is not supported on this platform"
	case errors.As(err, &recvErr):
		return recvErr.Message
	case errors.As(err, &notFound):
		return fmt.Sprintf("sensor %s", notFound.Error())
	case errors.As(err, &decodeErr):
		return fmt.Sprintf("cannot decode payload: %s", decodeErr.Error())
	default:
		return err.Error()
	}
}
