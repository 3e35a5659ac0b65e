package sensor

import "fmt"

// ConnectionState describes the logical link state of the sensor session.
type ConnectionState int

const (
	Uninitialized ConnectionState = iota
	CurrentlyInitializing
	Connected
	Disconnected
)

func (s ConnectionState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case CurrentlyInitializing:
		return "initializing"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// TempHumidityResult is a single reading from the sensor.
// Temperature is in degrees Celsius, Humidity in percent relative humidity.
type TempHumidityResult struct {
	Temperature     float32
	Humidity        float32
	ConnectionState ConnectionState
}

// DisconnectedResult is emitted when the link goes down cleanly.
func DisconnectedResult() TempHumidityResult {
	return TempHumidityResult{ConnectionState: Disconnected}
}

func (r TempHumidityResult) String() string {
	return fmt.Sprintf("%.1f°C %.1f%% (%s)", r.Temperature, r.Humidity, r.ConnectionState)
}
