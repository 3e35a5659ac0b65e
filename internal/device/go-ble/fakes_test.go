package goble

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-ble/ble"
	"github.com/stretchr/testify/mock"

	"github.com/srg/humitemp/internal/device"
)

// fakeBLEDevice overrides the scan and dial parts of ble.Device
type fakeBLEDevice struct {
	ble.Device

	mu      sync.Mutex
	adverts []ble.Advertisement
	scanErr error
	dialErr error
	client  *fakeClient
	dials   int
	dialed  ble.Addr
}

func (d *fakeBLEDevice) Scan(ctx context.Context, allowDup bool, h ble.AdvHandler) error {
	d.mu.Lock()
	adverts, scanErr := d.adverts, d.scanErr
	d.mu.Unlock()

	if scanErr != nil {
		return scanErr
	}
	for _, adv := range adverts {
		h(adv)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (d *fakeBLEDevice) Dial(ctx context.Context, a ble.Addr) (ble.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	d.dialed = a
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	return d.client, nil
}

func (d *fakeBLEDevice) dialedAddr() ble.Addr {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dialed
}

func (d *fakeBLEDevice) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// fakeClient records GATT client calls
type fakeClient struct {
	ble.Client
	mock.Mock

	mu        sync.Mutex
	handlers  map[string]ble.NotificationHandler
	done      chan struct{}
	cancelled atomic.Bool
	unsubs    atomic.Int32
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		handlers: make(map[string]ble.NotificationHandler),
		done:     make(chan struct{}),
	}
}

func (c *fakeClient) DiscoverProfile(force bool) (*ble.Profile, error) {
	args := c.Called(force)
	p, _ := args.Get(0).(*ble.Profile)
	return p, args.Error(1)
}

func (c *fakeClient) ExchangeMTU(rxMTU int) (int, error) {
	args := c.Called(rxMTU)
	return args.Int(0), args.Error(1)
}

func (c *fakeClient) WriteDescriptor(d *ble.Descriptor, v []byte) error {
	return c.Called(d, v).Error(0)
}

func (c *fakeClient) Subscribe(char *ble.Characteristic, ind bool, h ble.NotificationHandler) error {
	err := c.Called(char, ind).Error(0)
	if err == nil {
		c.mu.Lock()
		c.handlers[char.UUID.String()] = h
		c.mu.Unlock()
	}
	return err
}

func (c *fakeClient) Unsubscribe(char *ble.Characteristic, ind bool) error {
	c.unsubs.Add(1)
	return c.Called(char, ind).Error(0)
}

func (c *fakeClient) CancelConnection() error {
	c.cancelled.Store(true)
	return c.Called().Error(0)
}

func (c *fakeClient) Disconnected() <-chan struct{} { return c.done }

func (c *fakeClient) notify(char *ble.Characteristic, data []byte) bool {
	c.mu.Lock()
	h := c.handlers[char.UUID.String()]
	c.mu.Unlock()
	if h == nil {
		return false
	}
	h(data)
	return true
}

// fakeAdvertisement overrides the fields the adapter reads
type fakeAdvertisement struct {
	ble.Advertisement
	name string
	addr string
	rssi int
	// raw, when set, is returned by Addr instead of a parsed addr
	raw ble.Addr
}

func (a *fakeAdvertisement) LocalName() string { return a.name }
func (a *fakeAdvertisement) Addr() ble.Addr {
	if a.raw != nil {
		return a.raw
	}
	return ble.NewAddr(a.addr)
}
func (a *fakeAdvertisement) RSSI() int         { return a.rssi }
func (a *fakeAdvertisement) Connectable() bool { return true }

// randomAddr stands for a platform address type carrying more than the string form
type randomAddr string

func (a randomAddr) String() string { return string(a) }

type gattEvent struct {
	kind   string
	status device.Status
	state  device.ProfileState
	mtu    int
	uuid   string
	value  []byte
}

// recorder captures scan and GATT callbacks
type recorder struct {
	mu     sync.Mutex
	adv    []device.Advertisement
	errs   []error
	events []gattEvent
}

func (r *recorder) OnScanResult(adv device.Advertisement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adv = append(r.adv, adv)
}

func (r *recorder) OnScanFailed(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) add(e gattEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) OnConnectionStateChange(_ device.Gatt, status device.Status, state device.ProfileState) {
	r.add(gattEvent{kind: "state", status: status, state: state})
}

func (r *recorder) OnServicesDiscovered(_ device.Gatt, status device.Status) {
	r.add(gattEvent{kind: "services", status: status})
}

func (r *recorder) OnMtuChanged(_ device.Gatt, mtu int, status device.Status) {
	r.add(gattEvent{kind: "mtu", status: status, mtu: mtu})
}

func (r *recorder) OnDescriptorWrite(_ device.Gatt, d device.Descriptor, status device.Status) {
	r.add(gattEvent{kind: "descriptor", status: status, uuid: d.UUID()})
}

func (r *recorder) OnCharacteristicChanged(_ device.Gatt, c device.Characteristic, value []byte) {
	r.add(gattEvent{kind: "changed", uuid: c.UUID(), value: value})
}

func (r *recorder) snapshot() []gattEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gattEvent(nil), r.events...)
}

func (r *recorder) last(kind string) (gattEvent, bool) {
	events := r.snapshot()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].kind == kind {
			return events[i], true
		}
	}
	return gattEvent{}, false
}

func (r *recorder) count(kind string) int {
	n := 0
	for _, e := range r.snapshot() {
		if e.kind == kind {
			n++
		}
	}
	return n
}

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)
