package receiver

import "github.com/srg/humitemp/internal/device"

// Progress and failure messages published on the data stream
const (
	MsgScanning          = "Scanning Ble devices...."
	MsgConnecting        = "Connecting to Device..."
	MsgDiscovering       = "Discovering services..."
	MsgAdjustingMTU      = "Adjusting MTU Space..."
	MsgAttemptFmt        = "Attempting to connect %d/%d"
	MsgConnectFailed     = "Could not connect to ble device.."
	MsgScanFailed        = "Could not scan for ble devices.."
	MsgPublisherNotFound = "Could not find temp and humidity publisher"
	MsgDecodeFailed      = "Could not decode temp and humidity payload"
)

type phase int

const (
	phaseIdle phase = iota
	phaseScanning
	phaseConnecting
	phaseDiscovering
	phaseNegotiatingMTU
	phaseSubscribing
	phaseSubscribed
)

func (p phase) String() string {
	switch p {
	case phaseIdle:
		return "idle"
	case phaseScanning:
		return "scanning"
	case phaseConnecting:
		return "connecting"
	case phaseDiscovering:
		return "discovering"
	case phaseNegotiatingMTU:
		return "negotiating-mtu"
	case phaseSubscribing:
		return "subscribing"
	case phaseSubscribed:
		return "subscribed"
	default:
		return "unknown"
	}
}

// session is the mutable state of one receive cycle.
// Only the session goroutine reads or writes it.
type session struct {
	active   bool
	epoch    uint64
	scanning bool
	// attempt is the 1-based connection attempt counter
	attempt int
	phase   phase
	// target is resolved after MTU negotiation and kept for the handle's lifetime
	target device.Characteristic
}

func newSession() session {
	return session{attempt: 1}
}

// resetLink forgets everything tied to the current handle
func (s *session) resetLink() {
	s.phase = phaseIdle
	s.target = nil
}
