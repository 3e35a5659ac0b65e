package testutils

import (
	"fmt"
	"sync"

	"github.com/srg/humitemp/internal/device"
)

// FakeAdvertisement implements device.Advertisement
type FakeAdvertisement struct {
	Name    string
	Address string
	Signal  int
}

func (a *FakeAdvertisement) LocalName() string { return a.Name }
func (a *FakeAdvertisement) Addr() string      { return a.Address }
func (a *FakeAdvertisement) RSSI() int         { return a.Signal }
func (a *FakeAdvertisement) Connectable() bool { return true }

// FakeAdapter implements device.Adapter in memory.
//
// With AutoRespond set, handles answer every request with a successful
// callback, which lets a whole receive cycle run from a single Advertise.
// Otherwise tests fire callbacks through the FakeGatt helpers.
type FakeAdapter struct {
	mu sync.Mutex

	// Profile is the GATT table handed to new handles
	Profile     []device.Service
	AutoRespond bool
	// ConnectStatus is the status auto-reported for Connect, StatusSuccess by default
	ConnectStatus device.Status
	ScanErr       error
	ConnectErr    error
	// ArmFails makes SetCharacteristicNotification return false
	ArmFails bool

	scanCB     device.ScanCallback
	scanning   bool
	startScans int
	stopScans  int
	gatts      []*FakeGatt
}

// NewFakeAdapter creates an adapter serving SensorProfile with AutoRespond on
func NewFakeAdapter() *FakeAdapter {
	return &FakeAdapter{
		Profile:     SensorProfile(),
		AutoRespond: true,
	}
}

func (a *FakeAdapter) StartScan(_ device.ScanSettings, cb device.ScanCallback) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.startScans++
	if a.ScanErr != nil {
		return a.ScanErr
	}
	a.scanCB = cb
	a.scanning = true
	return nil
}

func (a *FakeAdapter) StopScan() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopScans++
	a.scanning = false
}

func (a *FakeAdapter) Connect(adv device.Advertisement, cb device.GattCallback) (device.Gatt, error) {
	a.mu.Lock()
	if a.ConnectErr != nil {
		err := a.ConnectErr
		a.mu.Unlock()
		return nil, err
	}
	g := &FakeGatt{
		adapter:  a,
		address:  adv.Addr(),
		cb:       cb,
		services: a.Profile,
		armed:    make(map[string]bool),
	}
	a.gatts = append(a.gatts, g)
	auto, status := a.AutoRespond, a.ConnectStatus
	a.mu.Unlock()

	if auto {
		g.respondConnect(status)
	}
	return g, nil
}

// Advertise delivers an advertisement to the last scan callback, even after
// StopScan, the way a radio can still flush queued reports
func (a *FakeAdapter) Advertise(name, address string, rssi int) {
	a.mu.Lock()
	cb := a.scanCB
	a.mu.Unlock()
	if cb == nil {
		return
	}
	cb.OnScanResult(&FakeAdvertisement{Name: name, Address: address, Signal: rssi})
}

// FailScan reports an asynchronous scan failure
func (a *FakeAdapter) FailScan(err error) {
	a.mu.Lock()
	cb := a.scanCB
	a.scanning = false
	a.mu.Unlock()
	if cb != nil {
		cb.OnScanFailed(err)
	}
}

func (a *FakeAdapter) Scanning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scanning
}

func (a *FakeAdapter) StartScanCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.startScans
}

func (a *FakeAdapter) StopScanCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopScans
}

// Gatts returns every handle created by Connect, oldest first
func (a *FakeAdapter) Gatts() []*FakeGatt {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*FakeGatt(nil), a.gatts...)
}

// LastGatt returns the newest handle or nil
func (a *FakeAdapter) LastGatt() *FakeGatt {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.gatts) == 0 {
		return nil
	}
	return a.gatts[len(a.gatts)-1]
}

// SetConnectStatus changes the status auto-reported by later connects
func (a *FakeAdapter) SetConnectStatus(status device.Status) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ConnectStatus = status
}

// SetAutoRespond switches automatic callbacks on or off
func (a *FakeAdapter) SetAutoRespond(auto bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.AutoRespond = auto
}

func (a *FakeAdapter) armFails() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ArmFails
}

func (a *FakeAdapter) autoRespond() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.AutoRespond
}

// DescriptorWrite is a recorded WriteDescriptor call
type DescriptorWrite struct {
	UUID    string
	Payload []byte
}

// FakeGatt implements device.Gatt and records every request
type FakeGatt struct {
	adapter *FakeAdapter
	address string
	cb      device.GattCallback

	mu       sync.Mutex
	services []device.Service
	closed   bool
	calls    []string
	armed    map[string]bool
	writes   []DescriptorWrite
}

func (g *FakeGatt) record(call string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, call)
}

func (g *FakeGatt) isClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

func (g *FakeGatt) Address() string { return g.address }

func (g *FakeGatt) Connect() bool {
	g.record("connect")
	if g.isClosed() {
		return false
	}
	if g.adapter.autoRespond() {
		g.adapter.mu.Lock()
		status := g.adapter.ConnectStatus
		g.adapter.mu.Unlock()
		g.respondConnect(status)
	}
	return true
}

func (g *FakeGatt) respondConnect(status device.Status) {
	if status.IsSuccess() {
		g.FireConnectionState(device.StatusSuccess, device.StateConnected)
		return
	}
	g.FireConnectionState(status, device.StateDisconnected)
}

func (g *FakeGatt) Disconnect() {
	g.record("disconnect")
	if g.adapter.autoRespond() {
		g.FireConnectionState(device.StatusSuccess, device.StateDisconnected)
	}
}

func (g *FakeGatt) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, "close")
	g.closed = true
}

func (g *FakeGatt) DiscoverServices() bool {
	g.record("discover")
	if g.isClosed() {
		return false
	}
	if g.adapter.autoRespond() {
		g.FireServicesDiscovered(device.StatusSuccess)
	}
	return true
}

func (g *FakeGatt) Services() []device.Service {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.services
}

func (g *FakeGatt) RequestMTU(size int) bool {
	g.record(fmt.Sprintf("mtu:%d", size))
	if g.isClosed() {
		return false
	}
	if g.adapter.autoRespond() {
		g.FireMtuChanged(size, device.StatusSuccess)
	}
	return true
}

func (g *FakeGatt) SetCharacteristicNotification(c device.Characteristic, enable bool) bool {
	g.record(fmt.Sprintf("arm:%s:%t", c.UUID(), enable))
	if g.isClosed() || g.adapter.armFails() {
		return false
	}
	g.mu.Lock()
	g.armed[device.NormalizeUUID(c.UUID())] = enable
	g.mu.Unlock()
	return true
}

func (g *FakeGatt) WriteDescriptor(d device.Descriptor, payload []byte) bool {
	g.record(fmt.Sprintf("write:%s:% x", d.UUID(), payload))
	if g.isClosed() {
		return false
	}
	g.mu.Lock()
	g.writes = append(g.writes, DescriptorWrite{UUID: d.UUID(), Payload: append([]byte(nil), payload...)})
	g.mu.Unlock()
	if g.adapter.autoRespond() {
		g.FireDescriptorWrite(d, device.StatusSuccess)
	}
	return true
}

// Calls returns the recorded requests in order
func (g *FakeGatt) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

// Writes returns the recorded descriptor writes in order
func (g *FakeGatt) Writes() []DescriptorWrite {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]DescriptorWrite(nil), g.writes...)
}

func (g *FakeGatt) Closed() bool { return g.isClosed() }

// Armed reports whether local delivery is enabled for a characteristic
func (g *FakeGatt) Armed(charUUID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.armed[device.NormalizeUUID(charUUID)]
}

// SetServices replaces the GATT table reported by Services
func (g *FakeGatt) SetServices(services []device.Service) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.services = services
}

// Callbacks are not delivered once the handle is closed

func (g *FakeGatt) FireConnectionState(status device.Status, state device.ProfileState) {
	if !g.isClosed() {
		g.cb.OnConnectionStateChange(g, status, state)
	}
}

func (g *FakeGatt) FireServicesDiscovered(status device.Status) {
	if !g.isClosed() {
		g.cb.OnServicesDiscovered(g, status)
	}
}

func (g *FakeGatt) FireMtuChanged(mtu int, status device.Status) {
	if !g.isClosed() {
		g.cb.OnMtuChanged(g, mtu, status)
	}
}

func (g *FakeGatt) FireDescriptorWrite(d device.Descriptor, status device.Status) {
	if !g.isClosed() {
		g.cb.OnDescriptorWrite(g, d, status)
	}
}

// Notify delivers a value for charUUID if it is armed. Returns false when the
// characteristic is unknown, unarmed or the handle is closed.
func (g *FakeGatt) Notify(charUUID string, value []byte) bool {
	c := g.findCharacteristic(charUUID)
	if c == nil || !g.Armed(charUUID) || g.isClosed() {
		return false
	}
	g.cb.OnCharacteristicChanged(g, c, value)
	return true
}

// NotifyUnchecked delivers a value for any characteristic, armed or not
func (g *FakeGatt) NotifyUnchecked(c device.Characteristic, value []byte) {
	if !g.isClosed() {
		g.cb.OnCharacteristicChanged(g, c, value)
	}
}

func (g *FakeGatt) findCharacteristic(uuid string) device.Characteristic {
	for _, svc := range g.Services() {
		for _, c := range svc.Characteristics() {
			if device.EqualUUID(c.UUID(), uuid) {
				return c
			}
		}
	}
	return nil
}
