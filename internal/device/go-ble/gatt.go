package goble

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-ble/ble"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sirupsen/logrus"
	"github.com/srg/humitemp/internal/device"
	"github.com/srg/humitemp/internal/groutine"
)

// gattConn implements device.Gatt.
//
// Requests are queued and executed one at a time by a per-handle worker, so
// callbacks of one handle are delivered in request order. Notifications are
// delivered from go-ble's goroutine and only for characteristics armed with
// SetCharacteristicNotification.
type gattConn struct {
	dev     ble.Device
	addr    ble.Addr
	address string
	cb      device.GattCallback
	opts    AdapterOptions
	logger  *logrus.Logger

	ops    chan func(ctx context.Context)
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	mu       sync.RWMutex
	client   ble.Client
	services []device.Service
	released bool

	armed *xsync.MapOf[string, bool]
}

// closeDrainTimeout bounds how long Close waits for queued requests
const closeDrainTimeout = 2 * time.Second

func newGattConn(dev ble.Device, addr ble.Addr, cb device.GattCallback, opts AdapterOptions, logger *logrus.Logger) *gattConn {
	ctx, cancel := context.WithCancel(context.Background())
	return &gattConn{
		dev:     dev,
		addr:    addr,
		address: addr.String(),
		cb:      cb,
		opts:    opts,
		logger:  logger,
		ops:     make(chan func(ctx context.Context), opts.OpQueueSize),
		ctx:     ctx,
		cancel:  cancel,
		armed:   xsync.NewMapOf[string, bool](),
	}
}

func (g *gattConn) start() {
	groutine.Go(g.ctx, "ble-gatt-"+g.address, func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case op := <-g.ops:
				op(ctx)
			}
		}
	})
}

// enqueue schedules op on the worker; false if the handle is closed or saturated
func (g *gattConn) enqueue(name string, op func(ctx context.Context)) bool {
	if g.closed.Load() {
		return false
	}
	select {
	case g.ops <- op:
		return true
	case <-g.ctx.Done():
		return false
	default:
		g.logger.WithFields(logrus.Fields{
			"address": g.address,
			"op":      name,
		}).Warn("GATT request queue full, dropping request")
		return false
	}
}

func (g *gattConn) currentClient() ble.Client {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.client
}

func (g *gattConn) Address() string { return g.address }

func (g *gattConn) Connect() bool {
	return g.enqueue("connect", g.dial)
}

func (g *gattConn) dial(ctx context.Context) {
	if g.currentClient() != nil {
		g.deliverState(device.StatusSuccess, device.StateConnected)
		return
	}

	g.logger.WithField("address", g.address).Info("Connecting to BLE device...")

	dialCtx, cancel := context.WithTimeout(ctx, g.opts.ConnectTimeout)
	defer cancel()

	client, err := g.dev.Dial(dialCtx, g.addr)
	if err != nil {
		err = NormalizeError(err)
		g.logger.WithFields(logrus.Fields{
			"address": g.address,
			"error":   err,
		}).Error("Failed to dial BLE device")
		g.deliverState(device.StatusFromError(err), device.StateDisconnected)
		return
	}

	g.mu.Lock()
	if g.released {
		g.mu.Unlock()
		_ = client.CancelConnection()
		return
	}
	g.client = client
	g.mu.Unlock()

	// CoreBluetooth and HCI clients expose link loss through Disconnected()
	if dc, ok := client.(interface{ Disconnected() <-chan struct{} }); ok {
		groutine.Go(g.ctx, "ble-link-monitor", func(ctx context.Context) {
			select {
			case <-dc.Disconnected():
				// a closing handle keeps its client until the release runs
				if !g.closed.Load() && g.dropClient(client) {
					g.logger.WithField("address", g.address).Warn("BLE link reported disconnection")
					g.deliverState(device.StatusSuccess, device.StateDisconnected)
				}
			case <-ctx.Done():
			}
		})
	}

	g.logger.WithField("address", g.address).Info("BLE device connected")
	g.deliverState(device.StatusSuccess, device.StateConnected)
}

// dropClient clears the client if it is still the current one
func (g *gattConn) dropClient(client ble.Client) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != client {
		return false
	}
	g.client = nil
	g.services = nil
	g.armed.Clear()
	return true
}

func (g *gattConn) Disconnect() {
	g.enqueue("disconnect", func(ctx context.Context) {
		client := g.currentClient()
		if client == nil {
			return
		}
		if err := client.CancelConnection(); err != nil {
			g.logger.WithField("error", err).Warn("BLE device disconnected with errors")
		}
		// clients without Disconnected() get no monitor, report the drop here
		if _, ok := client.(interface{ Disconnected() <-chan struct{} }); !ok && g.dropClient(client) {
			g.deliverState(device.StatusSuccess, device.StateDisconnected)
		}
	})
}

// Close stops callbacks at once and releases the link in the background,
// after requests queued before Close (such as a CCCD disable) have run.
func (g *gattConn) Close() {
	if !g.closed.CompareAndSwap(false, true) {
		return
	}
	g.armed.Clear()

	groutine.Go(context.Background(), "ble-gatt-release", func(ctx context.Context) {
		g.drain()
		g.cancel()

		g.mu.Lock()
		client := g.client
		g.client = nil
		g.services = nil
		g.released = true
		g.mu.Unlock()

		if client != nil {
			if err := client.CancelConnection(); err != nil {
				g.logger.WithField("error", err).Debug("CancelConnection on close failed")
			}
		}
		g.logger.WithField("address", g.address).Debug("GATT handle closed")
	})
}

// drain waits until the worker has run every request queued so far
func (g *gattConn) drain() {
	timer := time.NewTimer(closeDrainTimeout)
	defer timer.Stop()

	done := make(chan struct{})
	select {
	case g.ops <- func(context.Context) { close(done) }:
	case <-timer.C:
		g.logger.WithField("address", g.address).Warn("GATT request queue stuck, closing without draining")
		return
	}
	select {
	case <-done:
	case <-timer.C:
		g.logger.WithField("address", g.address).Warn("Pending GATT requests did not finish before close")
	}
}

func (g *gattConn) DiscoverServices() bool {
	return g.enqueue("discover", func(ctx context.Context) {
		client := g.currentClient()
		if client == nil {
			g.deliverServices(device.StatusFromError(device.ErrNotConnected))
			return
		}

		profile, err := client.DiscoverProfile(true)
		if err != nil {
			g.logger.WithFields(logrus.Fields{
				"address": g.address,
				"error":   err,
			}).Error("Failed to discover profile")
			g.deliverServices(device.StatusFromError(NormalizeError(err)))
			return
		}

		services := NewServices(profile)
		g.mu.Lock()
		g.services = services
		g.mu.Unlock()
		g.deliverServices(device.StatusSuccess)
	})
}

func (g *gattConn) Services() []device.Service {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.services
}

func (g *gattConn) RequestMTU(size int) bool {
	return g.enqueue("mtu", func(ctx context.Context) {
		client := g.currentClient()
		if client == nil {
			g.deliverMTU(0, device.StatusFromError(device.ErrNotConnected))
			return
		}
		mtu, err := client.ExchangeMTU(size)
		if err != nil {
			g.logger.WithFields(logrus.Fields{
				"requested": size,
				"error":     err,
			}).Warn("MTU exchange failed")
			g.deliverMTU(mtu, device.StatusFromError(NormalizeError(err)))
			return
		}
		g.deliverMTU(mtu, device.StatusSuccess)
	})
}

func (g *gattConn) SetCharacteristicNotification(c device.Characteristic, enable bool) bool {
	if g.closed.Load() || g.currentClient() == nil {
		return false
	}
	if _, ok := c.(*BLECharacteristic); !ok {
		return false
	}
	if enable {
		g.armed.Store(c.UUID(), true)
	} else {
		g.armed.Delete(c.UUID())
	}
	return true
}

// WriteDescriptor writes a descriptor value. go-ble owns CCCD writes through
// Subscribe/Unsubscribe, so CCCD payloads are translated into those calls.
func (g *gattConn) WriteDescriptor(d device.Descriptor, payload []byte) bool {
	desc, ok := d.(*BLEDescriptor)
	if !ok {
		return false
	}
	value := append([]byte(nil), payload...)

	return g.enqueue("write-descriptor", func(ctx context.Context) {
		client := g.currentClient()
		if client == nil {
			g.deliverDescriptorWrite(d, device.StatusFromError(device.ErrNotConnected))
			return
		}

		var err error
		if device.EqualUUID(desc.UUID(), device.ClientConfigUUID) {
			err = g.writeClientConfig(client, desc.char, value)
		} else {
			err = client.WriteDescriptor(desc.raw, value)
		}
		if err != nil {
			err = NormalizeError(err)
			g.logger.WithFields(logrus.Fields{
				"char_uuid": desc.char.UUID(),
				"desc_uuid": desc.UUID(),
				"error":     err,
			}).Error("Descriptor write failed")
		}
		g.deliverDescriptorWrite(d, device.StatusFromError(err))
	})
}

func (g *gattConn) writeClientConfig(client ble.Client, char *BLECharacteristic, value []byte) error {
	cfg, err := device.ParseClientConfig(value)
	if err != nil {
		return err
	}

	if !cfg.Notifications && !cfg.Indications {
		// unsubscribe both modes; only report failure when both fail
		errNotify := client.Unsubscribe(char.raw, false)
		errIndicate := client.Unsubscribe(char.raw, true)
		if errNotify != nil && errIndicate != nil {
			return errNotify
		}
		return nil
	}

	uuid := char.UUID()
	return client.Subscribe(char.raw, cfg.Indications, func(data []byte) {
		if armed, _ := g.armed.Load(uuid); !armed || g.closed.Load() {
			return
		}
		g.cb.OnCharacteristicChanged(g, char, append([]byte(nil), data...))
	})
}

func (g *gattConn) deliverState(status device.Status, state device.ProfileState) {
	if g.closed.Load() {
		return
	}
	g.cb.OnConnectionStateChange(g, status, state)
}

func (g *gattConn) deliverServices(status device.Status) {
	if g.closed.Load() {
		return
	}
	g.cb.OnServicesDiscovered(g, status)
}

func (g *gattConn) deliverMTU(mtu int, status device.Status) {
	if g.closed.Load() {
		return
	}
	g.cb.OnMtuChanged(g, mtu, status)
}

func (g *gattConn) deliverDescriptorWrite(d device.Descriptor, status device.Status) {
	if g.closed.Load() {
		return
	}
	g.cb.OnDescriptorWrite(g, d, status)
}
