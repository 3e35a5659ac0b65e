package sensor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name        string
		payload     []byte
		temperature float32
		humidity    float32
	}{
		{
			name:        "negative temperature",
			payload:     []byte{0x01, 0x18, 0x02, 0xFF, 0x2F, 0x00},
			temperature: -24.2,
			humidity:    47.0,
		},
		{
			name:        "positive temperature",
			payload:     []byte{0x00, 0x15, 0x07, 0x00, 0x37, 0x04},
			temperature: 21.7,
			humidity:    55.4,
		},
		{
			name:        "sign byte above 0x7F is read unsigned",
			payload:     []byte{0x80, 0x03, 0x05, 0x00, 0x10, 0x09},
			temperature: -3.5,
			humidity:    16.9,
		},
		{
			name:        "temperature byte above 0x7F keeps its magnitude",
			payload:     []byte{0x00, 0x82, 0x01, 0x00, 0x90, 0x00},
			temperature: 130.1,
			humidity:    144.0,
		},
		{
			name:        "zero reading",
			payload:     []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
			temperature: 0,
			humidity:    0,
		},
		{
			name:        "trailing bytes are ignored",
			payload:     []byte{0x00, 0x01, 0x01, 0x00, 0x02, 0x02, 0xAA, 0xBB},
			temperature: 1.1,
			humidity:    2.2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.payload)
			require.NoError(t, err)
			assert.InDelta(t, tt.temperature, got.Temperature, 0.0001)
			assert.InDelta(t, tt.humidity, got.Humidity, 0.0001)
			assert.Equal(t, Connected, got.ConnectionState)
		})
	}
}

func TestDecode_ShortPayload(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		_, err := Decode(make([]byte, n))
		require.Error(t, err)

		var decodeErr *DecodeError
		require.True(t, errors.As(err, &decodeErr), "error MUST be a *DecodeError")
		assert.Equal(t, n, decodeErr.Length)
		assert.Contains(t, err.Error(), "payload too short")
	}
}

func TestDecode_IsPure(t *testing.T) {
	payload := []byte{0x01, 0x18, 0x02, 0x00, 0x2F, 0x00}
	first, err := Decode(payload)
	require.NoError(t, err)
	second, err := Decode(payload)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []byte{0x01, 0x18, 0x02, 0x00, 0x2F, 0x00}, payload, "payload MUST NOT be modified")
}

func TestConnectionState_String(t *testing.T) {
	assert.Equal(t, "uninitialized", Uninitialized.String())
	assert.Equal(t, "initializing", CurrentlyInitializing.String())
	assert.Equal(t, "connected", Connected.String())
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "state(9)", ConnectionState(9).String())
}

func TestDisconnectedResult(t *testing.T) {
	r := DisconnectedResult()
	assert.Equal(t, TempHumidityResult{Temperature: 0, Humidity: 0, ConnectionState: Disconnected}, r)
}
