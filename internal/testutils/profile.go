package testutils

import (
	"encoding/json"
	"fmt"

	"github.com/srg/humitemp/internal/device"
)

// FakeService implements device.Service
type FakeService struct {
	ID    string
	Chars []device.Characteristic
}

func (s *FakeService) UUID() string                             { return s.ID }
func (s *FakeService) Characteristics() []device.Characteristic { return s.Chars }

// FakeCharacteristic implements device.Characteristic
type FakeCharacteristic struct {
	ID    string
	Props device.Property
	Descs []device.Descriptor
}

func (c *FakeCharacteristic) UUID() string                     { return c.ID }
func (c *FakeCharacteristic) Properties() device.Property      { return c.Props }
func (c *FakeCharacteristic) Descriptors() []device.Descriptor { return c.Descs }

// FakeDescriptor implements device.Descriptor
type FakeDescriptor struct {
	ID   string
	Char device.Characteristic
}

func (d *FakeDescriptor) UUID() string                          { return d.ID }
func (d *FakeDescriptor) Characteristic() device.Characteristic { return d.Char }

type profileJSON struct {
	Services []struct {
		UUID            string `json:"uuid"`
		Characteristics []struct {
			UUID        string   `json:"uuid"`
			Properties  string   `json:"properties"`
			Descriptors []string `json:"descriptors"`
		} `json:"characteristics"`
	} `json:"services"`
}

// ProfileFromJSON builds a GATT table from a JSON description:
//
//	{"services": [{"uuid": "aa20", "characteristics": [
//	    {"uuid": "aa21", "properties": "read,notify", "descriptors": ["2902"]}
//	]}]}
//
// The format string is expanded with args first.
func ProfileFromJSON(jsonStrFmt string, args ...any) ([]device.Service, error) {
	var p profileJSON
	if err := json.Unmarshal([]byte(fmt.Sprintf(jsonStrFmt, args...)), &p); err != nil {
		return nil, fmt.Errorf("invalid profile JSON: %w", err)
	}

	services := make([]device.Service, 0, len(p.Services))
	for _, s := range p.Services {
		svc := &FakeService{ID: device.NormalizeUUID(s.UUID)}
		for _, c := range s.Characteristics {
			props, err := device.ParseProperty(c.Properties)
			if err != nil {
				return nil, err
			}
			char := &FakeCharacteristic{ID: device.NormalizeUUID(c.UUID), Props: props}
			for _, d := range c.Descriptors {
				char.Descs = append(char.Descs, &FakeDescriptor{ID: device.NormalizeUUID(d), Char: char})
			}
			svc.Chars = append(svc.Chars, char)
		}
		services = append(services, svc)
	}
	return services, nil
}

// MustProfileFromJSON is ProfileFromJSON that panics on malformed input
func MustProfileFromJSON(jsonStrFmt string, args ...any) []device.Service {
	services, err := ProfileFromJSON(jsonStrFmt, args...)
	if err != nil {
		panic(err)
	}
	return services
}

// SensorProfile is the GATT table of a Jinou temperature and humidity sensor
func SensorProfile() []device.Service {
	return MustProfileFromJSON(`{
		"services": [
			{"uuid": "1800", "characteristics": [{"uuid": "2a00", "properties": "read"}]},
			{"uuid": "0000aa20-0000-1000-8000-00805f9b34fb", "characteristics": [
				{"uuid": "0000aa21-0000-1000-8000-00805f9b34fb", "properties": "read,notify", "descriptors": ["2902"]}
			]}
		]
	}`)
}
