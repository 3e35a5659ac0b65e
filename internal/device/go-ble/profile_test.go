package goble

import (
	"testing"

	"github.com/go-ble/ble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/humitemp/internal/device"
)

const (
	testServiceUUID = "0000aa20-0000-1000-8000-00805f9b34fb"
	testCharUUID    = "0000aa21-0000-1000-8000-00805f9b34fb"
)

func newTestProfile(withCCCDField bool) (*ble.Profile, *ble.Characteristic) {
	char := &ble.Characteristic{
		UUID:     ble.MustParse(testCharUUID),
		Property: ble.CharRead | ble.CharNotify,
	}
	cccd := &ble.Descriptor{UUID: ble.ClientCharacteristicConfigUUID}
	if withCCCDField {
		char.CCCD = cccd
	} else {
		char.Descriptors = []*ble.Descriptor{cccd}
	}
	svc := &ble.Service{
		UUID:            ble.MustParse(testServiceUUID),
		Characteristics: []*ble.Characteristic{char},
	}
	return &ble.Profile{Services: []*ble.Service{svc}}, char
}

func TestNewProperty(t *testing.T) {
	assert.Equal(t, device.Property(0), NewProperty(0))
	assert.Equal(t, device.PropRead|device.PropNotify, NewProperty(ble.CharRead|ble.CharNotify))
	assert.True(t, NewProperty(ble.CharIndicate).CanIndicate())
	assert.False(t, NewProperty(ble.CharWrite).CanNotify())
}

func TestNewServices(t *testing.T) {
	t.Run("nil profile", func(t *testing.T) {
		assert.Empty(t, NewServices(nil))
	})

	for _, fromField := range []bool{false, true} {
		name := "cccd in descriptors"
		if fromField {
			name = "cccd only in dedicated field"
		}
		t.Run(name, func(t *testing.T) {
			profile, _ := newTestProfile(fromField)
			services := NewServices(profile)
			require.Len(t, services, 1)
			assert.Equal(t, "aa20", services[0].UUID())

			char, err := device.FindCharacteristic(services, "AA20", "0xaa21")
			require.NoError(t, err)
			assert.True(t, char.Properties().CanNotify())

			require.Len(t, char.Descriptors(), 1, "CCCD must appear exactly once")
			desc := device.FindDescriptor(char, device.ClientConfigUUID)
			require.NotNil(t, desc)
			assert.Same(t, char, desc.Characteristic())
		})
	}

	t.Run("cccd not duplicated when present twice", func(t *testing.T) {
		profile, char := newTestProfile(false)
		char.CCCD = char.Descriptors[0]
		services := NewServices(profile)
		assert.Len(t, services[0].Characteristics()[0].Descriptors(), 1)
	})
}
