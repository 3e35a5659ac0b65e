package sensor

import "fmt"

// PayloadLength is the number of bytes the firmware sends per notification.
//
// Layout:
//
//	[0] sign flag (non-zero = negative temperature)
//	[1] temperature, whole degrees
//	[2] temperature, tenths
//	[3] unused
//	[4] humidity, whole percent
//	[5] humidity, tenths
const PayloadLength = 6

// DecodeError reports a payload that does not match the firmware layout
type DecodeError struct {
	Length int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("payload too short: got %d bytes, want %d", e.Length, PayloadLength)
}

// Decode converts a raw notification payload into a reading.
// The fraction bytes are single decimal digits, not a fixed-point scale.
func Decode(payload []byte) (TempHumidityResult, error) {
	if len(payload) < PayloadLength {
		return TempHumidityResult{}, &DecodeError{Length: len(payload)}
	}

	// Bytes are unsigned: a 0x80 sign byte means negative and fields above 0x7F
	// keep their magnitude. Readers that treat the bytes as signed int8 disagree
	// on exactly these values, which the sensor does not produce.
	sign := float32(1)
	if payload[0] > 0 {
		sign = -1
	}
	temperature := float32(payload[1]) + float32(payload[2])/10
	humidity := float32(payload[4]) + float32(payload[5])/10

	return TempHumidityResult{
		Temperature:     sign * temperature,
		Humidity:        humidity,
		ConnectionState: Connected,
	}, nil
}
