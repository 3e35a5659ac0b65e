package goble

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/humitemp/internal/device"
	"github.com/srg/humitemp/internal/groutine"
)

// DefaultConnectTimeout bounds a single dial attempt
const DefaultConnectTimeout = 30 * time.Second

const scanStopTimeout = 2 * time.Second

// DeviceFactory creates the ble.Device backing an Adapter (can be overridden in tests)
//
//nolint:revive // DeviceFactory name is intentional for test mocking
var DeviceFactory = newPlatformDevice

// AdapterOptions configures an Adapter
type AdapterOptions struct {
	ConnectTimeout time.Duration
	// OpQueueSize bounds pending requests per connection handle
	OpQueueSize int
}

// Adapter implements device.Adapter on top of go-ble.
// The ble.Device is created lazily on first use and shared by scans and dials.
type Adapter struct {
	opts   AdapterOptions
	logger *logrus.Logger

	mu         sync.Mutex
	dev        ble.Device
	scanCancel context.CancelFunc
	scanDone   chan struct{}
}

// NewAdapter creates a go-ble backed adapter
func NewAdapter(opts AdapterOptions, logger *logrus.Logger) *Adapter {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.OpQueueSize <= 0 {
		opts.OpQueueSize = 16
	}
	return &Adapter{opts: opts, logger: logger}
}

// device returns the shared ble.Device, creating it on first use
func (a *Adapter) device() (ble.Device, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.dev != nil {
		return a.dev, nil
	}
	dev, err := DeviceFactory()
	if err != nil {
		return nil, fmt.Errorf("failed to create BLE device: %w", NormalizeError(err))
	}
	a.dev = dev
	return dev, nil
}

// StartScan begins scanning in the background. A scan already in progress is stopped first.
// Low-latency mode reports every advertisement, other modes filter duplicates.
func (a *Adapter) StartScan(settings device.ScanSettings, cb device.ScanCallback) error {
	dev, err := a.device()
	if err != nil {
		return err
	}

	a.StopScan()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	a.mu.Lock()
	a.scanCancel = cancel
	a.scanDone = done
	a.mu.Unlock()

	allowDup := settings.Mode == device.ScanModeLowLatency
	a.logger.WithField("allow_dup", allowDup).Info("Starting BLE scan...")

	groutine.Go(ctx, "ble-scan", func(ctx context.Context) {
		defer close(done)
		err := dev.Scan(ctx, allowDup, func(adv ble.Advertisement) {
			cb.OnScanResult(NewBLEAdvertisement(adv))
		})
		if err != nil && ctx.Err() == nil && !isCancellation(err) {
			a.logger.WithField("error", err).Error("BLE scan failed")
			cb.OnScanFailed(NormalizeError(err))
			return
		}
		a.logger.Debug("BLE scan stopped")
	})
	return nil
}

// StopScan cancels the running scan, if any, and waits for it to wind down
func (a *Adapter) StopScan() {
	a.mu.Lock()
	cancel, done := a.scanCancel, a.scanDone
	a.scanCancel, a.scanDone = nil, nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	select {
	case <-done:
	case <-time.After(scanStopTimeout):
		a.logger.Warn("BLE scan did not stop in time")
	}
}

// Connect creates a handle for the advertiser and starts dialing it
func (a *Adapter) Connect(adv device.Advertisement, cb device.GattCallback) (device.Gatt, error) {
	if adv == nil || adv.Addr() == "" {
		return nil, fmt.Errorf("device address is empty")
	}
	dev, err := a.device()
	if err != nil {
		return nil, err
	}

	// keep the advertised address type (public/random) when the report came from go-ble
	addr := ble.NewAddr(adv.Addr())
	if raw, ok := adv.(*BLEAdvertisement); ok {
		addr = raw.Unwrap().Addr()
	}

	g := newGattConn(dev, addr, cb, a.opts, a.logger)
	g.start()
	if !g.Connect() {
		g.Close()
		return nil, fmt.Errorf("failed to queue connection to %s", adv.Addr())
	}
	return g, nil
}
