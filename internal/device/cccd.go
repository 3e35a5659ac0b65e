package device

import "fmt"

// ClientConfigUUID is the Client Characteristic Configuration descriptor (0x2902)
const ClientConfigUUID = "00002902-0000-1000-8000-00805f9b34fb"

// CCCD values written to the ClientConfig descriptor
var (
	EnableNotificationValue  = []byte{0x01, 0x00}
	EnableIndicationValue    = []byte{0x02, 0x00}
	DisableNotificationValue = []byte{0x00, 0x00}
)

// ClientConfig is the decoded content of a CCCD value
type ClientConfig struct {
	Notifications bool
	Indications   bool
}

// ParseClientConfig decodes a CCCD payload
func ParseClientConfig(value []byte) (ClientConfig, error) {
	if len(value) != 2 {
		return ClientConfig{}, fmt.Errorf("client config value must be 2 bytes, got %d", len(value))
	}
	return ClientConfig{
		Notifications: value[0]&0x01 != 0,
		Indications:   value[0]&0x02 != 0,
	}, nil
}

// EnablePayload picks the CCCD value for a characteristic.
// Indication wins when both are offered. Returns nil if neither is supported.
func EnablePayload(p Property) []byte {
	switch {
	case p.CanIndicate():
		return EnableIndicationValue
	case p.CanNotify():
		return EnableNotificationValue
	default:
		return nil
	}
}
