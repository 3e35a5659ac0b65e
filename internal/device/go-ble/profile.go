package goble

import (
	"github.com/go-ble/ble"
	"github.com/srg/humitemp/internal/device"
)

// BLEService wraps a discovered ble.Service
type BLEService struct {
	raw             *ble.Service
	characteristics []device.Characteristic
}

func (s *BLEService) UUID() string                             { return device.NormalizeUUID(s.raw.UUID.String()) }
func (s *BLEService) Characteristics() []device.Characteristic { return s.characteristics }

// BLECharacteristic wraps a discovered ble.Characteristic
type BLECharacteristic struct {
	raw         *ble.Characteristic
	descriptors []device.Descriptor
}

func (c *BLECharacteristic) UUID() string                     { return device.NormalizeUUID(c.raw.UUID.String()) }
func (c *BLECharacteristic) Properties() device.Property      { return NewProperty(c.raw.Property) }
func (c *BLECharacteristic) Descriptors() []device.Descriptor { return c.descriptors }

// BLEDescriptor wraps a discovered ble.Descriptor
type BLEDescriptor struct {
	raw  *ble.Descriptor
	char *BLECharacteristic
}

func (d *BLEDescriptor) UUID() string                          { return device.NormalizeUUID(d.raw.UUID.String()) }
func (d *BLEDescriptor) Characteristic() device.Characteristic { return d.char }

// NewServices converts a discovered go-ble profile into device services.
// go-ble keeps the CCCD in a dedicated field on some platforms, so it is
// added to the descriptor list when discovery did not report it.
func NewServices(profile *ble.Profile) []device.Service {
	if profile == nil {
		return nil
	}

	services := make([]device.Service, 0, len(profile.Services))
	for _, rawSvc := range profile.Services {
		svc := &BLEService{raw: rawSvc}
		for _, rawChar := range rawSvc.Characteristics {
			char := &BLECharacteristic{raw: rawChar}
			hasCCCD := false
			for _, rawDesc := range rawChar.Descriptors {
				if rawDesc.UUID.Equal(ble.ClientCharacteristicConfigUUID) {
					hasCCCD = true
				}
				char.descriptors = append(char.descriptors, &BLEDescriptor{raw: rawDesc, char: char})
			}
			if !hasCCCD && rawChar.CCCD != nil {
				char.descriptors = append(char.descriptors, &BLEDescriptor{raw: rawChar.CCCD, char: char})
			}
			svc.characteristics = append(svc.characteristics, char)
		}
		services = append(services, svc)
	}
	return services
}

var propertyMap = []struct {
	from ble.Property
	to   device.Property
}{
	{ble.CharBroadcast, device.PropBroadcast},
	{ble.CharRead, device.PropRead},
	{ble.CharWriteNR, device.PropWriteNR},
	{ble.CharWrite, device.PropWrite},
	{ble.CharNotify, device.PropNotify},
	{ble.CharIndicate, device.PropIndicate},
	{ble.CharSignedWrite, device.PropSignedWrite},
	{ble.CharExtended, device.PropExtendedProps},
}

// NewProperty converts go-ble property flags
func NewProperty(p ble.Property) device.Property {
	var result device.Property
	for _, m := range propertyMap {
		if p&m.from != 0 {
			result |= m.to
		}
	}
	return result
}
