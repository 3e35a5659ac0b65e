package device

// Status is the outcome code reported with every GATT callback
type Status int

const (
	StatusSuccess Status = 0
	// StatusFailure is the generic link-layer error
	StatusFailure Status = 0x101
	// StatusTimeout reports a connection attempt that did not complete
	StatusTimeout Status = 0x08
	// StatusBluetoothOff reports a powered-off or unavailable radio
	StatusBluetoothOff Status = 0x85
)

func (s Status) IsSuccess() bool { return s == StatusSuccess }

// ProfileState is the link state reported on connection changes
type ProfileState int

const (
	StateDisconnected ProfileState = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s ProfileState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// ScanMode selects the radio duty cycle while scanning
type ScanMode int

const (
	ScanModeLowPower ScanMode = iota
	ScanModeBalanced
	ScanModeLowLatency
)

// ScanSettings configures a scan
type ScanSettings struct {
	Mode ScanMode
}

// Advertisement is a single advertising report seen while scanning
type Advertisement interface {
	LocalName() string
	Addr() string
	RSSI() int
	Connectable() bool
}

// ScanCallback receives scan results. Calls may arrive on any goroutine.
type ScanCallback interface {
	OnScanResult(adv Advertisement)
	OnScanFailed(err error)
}

// Scanner discovers advertising peripherals.
// StopScan must be safe to call when no scan is running.
type Scanner interface {
	StartScan(settings ScanSettings, cb ScanCallback) error
	StopScan()
}

// Adapter is the host BLE radio
type Adapter interface {
	Scanner

	// Connect starts connecting to the advertiser and returns the handle for the
	// attempt right away. The outcome is delivered via cb.OnConnectionStateChange.
	Connect(adv Advertisement, cb GattCallback) (Gatt, error)
}

// Gatt is a connection handle to one peripheral.
// Methods returning bool report whether the request was accepted, not its result.
type Gatt interface {
	Address() string

	// Connect re-establishes the link of an existing handle.
	Connect() bool
	// Disconnect terminates the link; the handle stays usable for Connect.
	Disconnect()
	// Close releases the handle. No callbacks are delivered after Close.
	Close()

	DiscoverServices() bool
	// Services returns what the last successful discovery found.
	Services() []Service
	RequestMTU(size int) bool

	// SetCharacteristicNotification arms or disarms local delivery of
	// notifications for c. It does not touch the remote CCCD.
	SetCharacteristicNotification(c Characteristic, enable bool) bool
	WriteDescriptor(d Descriptor, payload []byte) bool
}

// GattCallback receives the outcome of Gatt operations and peripheral events.
type GattCallback interface {
	OnConnectionStateChange(g Gatt, status Status, newState ProfileState)
	OnServicesDiscovered(g Gatt, status Status)
	OnMtuChanged(g Gatt, mtu int, status Status)
	OnDescriptorWrite(g Gatt, d Descriptor, status Status)
	OnCharacteristicChanged(g Gatt, c Characteristic, value []byte)
}

// Service is a discovered GATT service
type Service interface {
	UUID() string
	Characteristics() []Characteristic
}

// Characteristic is a discovered GATT characteristic
type Characteristic interface {
	UUID() string
	Properties() Property
	Descriptors() []Descriptor
}

// Descriptor is a discovered GATT descriptor
type Descriptor interface {
	UUID() string
	Characteristic() Characteristic
}

// FindCharacteristic looks up a characteristic by service and characteristic UUID.
// Returns a NotFoundError naming the missing level.
func FindCharacteristic(services []Service, serviceUUID, charUUID string) (Characteristic, error) {
	for _, svc := range services {
		if !EqualUUID(svc.UUID(), serviceUUID) {
			continue
		}
		for _, c := range svc.Characteristics() {
			if EqualUUID(c.UUID(), charUUID) {
				return c, nil
			}
		}
		return nil, &NotFoundError{Resource: "characteristic", UUIDs: []string{serviceUUID, charUUID}}
	}
	return nil, &NotFoundError{Resource: "service", UUIDs: []string{serviceUUID}}
}

// FindDescriptor returns the descriptor with the given UUID or nil
func FindDescriptor(c Characteristic, uuid string) Descriptor {
	for _, d := range c.Descriptors() {
		if EqualUUID(d.UUID(), uuid) {
			return d
		}
	}
	return nil
}
