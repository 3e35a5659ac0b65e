package receiver

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/humitemp/internal/device"
	"github.com/srg/humitemp/internal/groutine"
	"github.com/srg/humitemp/internal/sensor"
	"github.com/srg/humitemp/internal/stream"
	"github.com/srg/humitemp/pkg/config"
	"github.com/srg/humitemp/pkg/resource"
)

// Reading is the value published on the data stream
type Reading = resource.Resource[sensor.TempHumidityResult]

// Manager receives temperature and humidity readings from one peripheral.
//
// All public methods are safe for concurrent use and return immediately;
// their effects are observed on Data().
type Manager struct {
	adapter device.Adapter
	cfg     *config.Config
	logger  *logrus.Logger

	out  *stream.Stream[Reading]
	mbox *mailbox
	cb   callbacks

	epoch atomic.Uint64
	state atomic.Int32
	slot  handleSlot

	sess session

	ctx          context.Context
	cancel       context.CancelFunc
	done         chan struct{}
	shutdownOnce sync.Once
}

// NewManager creates a manager and starts its session goroutine.
// A nil cfg uses config.DefaultConfig(); a nil logger uses logrus.New().
func NewManager(adapter device.Adapter, cfg *config.Config, logger *logrus.Logger) (*Manager, error) {
	if adapter == nil {
		return nil, fmt.Errorf("adapter cannot be nil")
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid receiver config: %w", err)
	}
	if logger == nil {
		logger = logrus.New()
	}

	out, err := stream.New[Reading]("readings", cfg.EventBufferSize, logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		adapter: adapter,
		cfg:     cfg,
		logger:  logger,
		out:     out,
		mbox:    newMailbox(),
		sess:    newSession(),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	m.cb = callbacks{m: m}
	m.state.Store(int32(sensor.Uninitialized))

	groutine.Go(ctx, "receiver-session", m.run)
	return m, nil
}

// Data returns the stream of progress, readings and errors.
// The channel is closed by Shutdown.
func (m *Manager) Data() <-chan Reading {
	return m.out.C()
}

// ConnectionState returns the last link state set by the session
func (m *Manager) ConnectionState() sensor.ConnectionState {
	return sensor.ConnectionState(m.state.Load())
}

// StartReceiving begins or restarts the scan and connect cycle and resets the retry counter
func (m *Manager) StartReceiving() {
	m.post(startCmd{epoch: m.epoch.Load(), caller: true})
}

// Reconnect asks the adapter to re-establish the link of the current handle
func (m *Manager) Reconnect() {
	m.post(reconnectCmd{})
}

// Disconnect terminates the link; the disconnect callback publishes the Disconnected result
func (m *Manager) Disconnect() {
	m.post(disconnectCmd{})
}

// RediscoverServices requests service discovery on the live handle
func (m *Manager) RediscoverServices() {
	m.post(rediscoverCmd{})
}

// CloseConnection tears the session down: scan stopped, notifications
// disabled, handle released. Nothing is published by it or by work queued
// before it. Safe to call in any state and more than once.
func (m *Manager) CloseConnection() {
	m.epoch.Add(1)
	m.post(closeCmd{})
}

// Shutdown closes the connection, stops the session goroutine and closes Data()
func (m *Manager) Shutdown() {
	m.shutdownOnce.Do(func() {
		m.CloseConnection()
		m.flush()
		m.cancel()
		<-m.done
		m.mbox.close()
		m.out.Close()

		metrics := m.out.Metrics()
		m.logger.WithFields(logrus.Fields{
			"published":   metrics.Published,
			"delivered":   metrics.Delivered,
			"overwritten": metrics.Overwritten,
		}).Debug("Reading stream closed")
	})
}

func (m *Manager) post(e event) {
	if !m.mbox.put(e) {
		m.logger.WithField("event", fmt.Sprintf("%T", e)).Debug("Manager is shut down, event dropped")
	}
}

// flush blocks until every event posted before it has been handled
func (m *Manager) flush() {
	done := make(chan struct{})
	m.post(flushCmd{done: done})
	select {
	case <-done:
	case <-m.done:
	}
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.mbox.ready:
		}

		for _, e := range m.mbox.take() {
			m.handle(e)
		}
	}
}

func (m *Manager) handle(e event) {
	switch ev := e.(type) {
	case startCmd:
		m.onStart(ev)
	case retryEvt:
		m.onRetry(ev)
	case reconnectCmd:
		m.onReconnect()
	case disconnectCmd:
		m.onDisconnect()
	case rediscoverCmd:
		m.onRediscover()
	case closeCmd:
		m.onClose()
	case flushCmd:
		close(ev.done)
	case scanResultEvt:
		m.onScanResult(ev)
	case scanFailedEvt:
		m.onScanFailed(ev)
	case connStateEvt:
		m.onConnectionStateChange(ev)
	case servicesEvt:
		m.onServicesDiscovered(ev)
	case mtuEvt:
		m.onMtuChanged(ev)
	case descriptorWriteEvt:
		m.onDescriptorWrite(ev)
	case charChangedEvt:
		m.onCharacteristicChanged(ev)
	default:
		m.logger.WithField("event", fmt.Sprintf("%T", e)).Warn("Unhandled session event")
	}
}

// live reports whether the session may act and publish
func (m *Manager) live() bool {
	return m.sess.active && m.sess.epoch == m.epoch.Load()
}

// accepts filters adapter callbacks down to the live handle of a live session
func (m *Manager) accepts(g device.Gatt, what string) bool {
	if !m.live() {
		m.logger.WithField("callback", what).Debug("Session inactive, callback ignored")
		return false
	}
	if !m.slot.is(g) {
		m.logger.WithFields(logrus.Fields{
			"callback": what,
			"address":  addressOf(g),
		}).Warn("Callback from a stale connection handle ignored")
		return false
	}
	return true
}

func (m *Manager) emit(r Reading) {
	m.logger.WithField("resource", r.String()).Debug("Publishing")
	m.out.Publish(r)
}

func (m *Manager) setState(s sensor.ConnectionState) {
	m.state.Store(int32(s))
}

func (m *Manager) onStart(cmd startCmd) {
	if cmd.epoch != m.epoch.Load() {
		m.logger.Debug("Start superseded by CloseConnection, ignored")
		return
	}
	if cmd.caller {
		m.sess.attempt = 1
	}
	m.sess.active = true
	m.sess.epoch = cmd.epoch
	m.beginScan()
}

func (m *Manager) onRetry(ev retryEvt) {
	if !m.live() || ev.epoch != m.sess.epoch {
		m.logger.Debug("Retry fired for an inactive session, ignored")
		return
	}
	m.beginScan()
}

func (m *Manager) onReconnect() {
	g := m.slot.current()
	if g == nil {
		m.logger.Warn("Reconnect requested without a connection handle")
		return
	}
	if !g.Connect() {
		m.logger.WithField("address", g.Address()).Warn("Reconnect request rejected by adapter")
	}
}

func (m *Manager) onDisconnect() {
	g := m.slot.current()
	if g == nil {
		m.logger.Debug("Disconnect requested without a connection handle")
		return
	}
	m.logger.WithField("address", g.Address()).Info("Disconnecting from device...")
	g.Disconnect()
}

func (m *Manager) onRediscover() {
	g := m.slot.current()
	if g == nil {
		m.logger.Warn("Service discovery requested without a connection handle")
		return
	}
	if !g.DiscoverServices() {
		m.logger.WithField("address", g.Address()).Warn("Service discovery request rejected by adapter")
	}
}

func (m *Manager) onClose() {
	if m.sess.scanning {
		m.adapter.StopScan()
	}

	if g := m.slot.current(); g != nil {
		if m.sess.phase >= phaseSubscribing {
			m.disableNotifications(g)
		}
		m.slot.release()
		m.logger.WithField("address", g.Address()).Info("Connection closed")
	}

	m.sess = newSession()
	m.setState(sensor.Uninitialized)
}

func (m *Manager) onConnectionStateChange(ev connStateEvt) {
	if !m.accepts(ev.gatt, "connection-state") {
		return
	}

	log := m.logger.WithFields(logrus.Fields{
		"address": ev.gatt.Address(),
		"status":  fmt.Sprintf("0x%x", int(ev.status)),
		"state":   ev.state.String(),
	})

	if !ev.status.IsSuccess() {
		log.Warn("Connection attempt failed")
		m.slot.release()
		m.sess.resetLink()
		m.connectFailed()
		return
	}

	switch ev.state {
	case device.StateConnected:
		log.Info("Connected to device")
		m.setState(sensor.Connected)
		m.sess.phase = phaseDiscovering
		m.emit(resource.Loading[sensor.TempHumidityResult](MsgDiscovering))
		if !ev.gatt.DiscoverServices() {
			log.Warn("Service discovery request rejected by adapter")
		}
	case device.StateDisconnected:
		log.Info("Disconnected from device")
		m.setState(sensor.Disconnected)
		m.emit(resource.Success(sensor.DisconnectedResult()))
		m.slot.release()
		m.sess.resetLink()
	default:
		log.Debug("Transitional connection state ignored")
	}
}

// connectFailed counts a failed attempt and either schedules a restart or gives up
func (m *Manager) connectFailed() {
	m.sess.attempt++
	limit := m.cfg.MaxConnectionAttempts
	m.emit(resource.Loading[sensor.TempHumidityResult](fmt.Sprintf(MsgAttemptFmt, m.sess.attempt, limit)))

	if m.sess.attempt <= limit {
		m.setState(sensor.Uninitialized)
		m.scheduleRetry()
		return
	}

	m.logger.WithField("attempts", limit).Error("Giving up connecting to device")
	m.emit(resource.Error[sensor.TempHumidityResult](MsgConnectFailed))
	m.sess = newSession()
	m.setState(sensor.Uninitialized)
}

func (m *Manager) scheduleRetry() {
	evt := retryEvt{epoch: m.sess.epoch}
	if m.cfg.RetryDelay <= 0 {
		m.post(evt)
		return
	}
	m.logger.WithField("delay", m.cfg.RetryDelay).Debug("Retry scheduled")
	time.AfterFunc(m.cfg.RetryDelay, func() { m.post(evt) })
}

func (m *Manager) onServicesDiscovered(ev servicesEvt) {
	if !m.accepts(ev.gatt, "services-discovered") {
		return
	}

	services := ev.gatt.Services()
	if !ev.status.IsSuccess() {
		m.logger.WithField("status", fmt.Sprintf("0x%x", int(ev.status))).Warn("Service discovery reported failure")
	}
	if m.logger.IsLevelEnabled(logrus.DebugLevel) {
		m.logger.WithField("address", ev.gatt.Address()).Debug("GATT table:\n" + describeServices(services))
	}

	m.sess.phase = phaseNegotiatingMTU
	m.emit(resource.Loading[sensor.TempHumidityResult](MsgAdjustingMTU))
	if !ev.gatt.RequestMTU(m.cfg.MTU) {
		m.logger.WithField("mtu", m.cfg.MTU).Warn("MTU request rejected by adapter")
	}
}

func (m *Manager) onMtuChanged(ev mtuEvt) {
	if !m.accepts(ev.gatt, "mtu-changed") {
		return
	}

	log := m.logger.WithField("mtu", ev.mtu)
	if !ev.status.IsSuccess() {
		log.Warn("MTU negotiation reported failure")
	} else {
		log.Debug("MTU negotiated")
	}

	target := m.sess.target
	if target == nil {
		var err error
		target, err = device.FindCharacteristic(ev.gatt.Services(), m.cfg.ServiceUUID, m.cfg.CharacteristicUUID)
		if err != nil {
			m.logger.WithField("error", err).Error("Temperature and humidity characteristic not found")
			m.sess.phase = phaseIdle
			m.emit(resource.Error[sensor.TempHumidityResult](MsgPublisherNotFound))
			return
		}
		m.sess.target = target
	}

	m.enableNotifications(ev.gatt, target)
}

// enableNotifications arms local delivery and then writes the CCCD.
// Failures are logged and abort the subscription.
func (m *Manager) enableNotifications(g device.Gatt, c device.Characteristic) {
	log := m.logger.WithField("char_uuid", c.UUID())

	payload := device.EnablePayload(c.Properties())
	if payload == nil {
		log.WithField("properties", c.Properties().String()).Warn("Characteristic supports neither notify nor indicate")
		return
	}
	cccd := device.FindDescriptor(c, device.ClientConfigUUID)
	if cccd == nil {
		log.Warn("Characteristic has no client config descriptor")
		return
	}
	if !g.SetCharacteristicNotification(c, true) {
		log.Warn("Failed to arm characteristic notifications")
		return
	}
	if !g.WriteDescriptor(cccd, payload) {
		log.Warn("Client config write rejected by adapter")
		return
	}
	m.sess.phase = phaseSubscribing
}

// disableNotifications mirrors enableNotifications and is silent when nothing can be found
func (m *Manager) disableNotifications(g device.Gatt) {
	c := m.sess.target
	if c == nil {
		return
	}
	cccd := device.FindDescriptor(c, device.ClientConfigUUID)
	if cccd == nil {
		return
	}
	g.SetCharacteristicNotification(c, false)
	g.WriteDescriptor(cccd, device.DisableNotificationValue)
}

func (m *Manager) onDescriptorWrite(ev descriptorWriteEvt) {
	if !m.accepts(ev.gatt, "descriptor-write") {
		return
	}

	log := m.logger.WithField("desc_uuid", ev.desc.UUID())
	if !ev.status.IsSuccess() {
		log.WithField("status", fmt.Sprintf("0x%x", int(ev.status))).Error("Descriptor write failed")
		return
	}
	if device.EqualUUID(ev.desc.UUID(), device.ClientConfigUUID) && m.sess.phase == phaseSubscribing {
		m.sess.phase = phaseSubscribed
		log.Info("Subscribed to temperature and humidity notifications")
		return
	}
	log.Debug("Descriptor written")
}

func (m *Manager) onCharacteristicChanged(ev charChangedEvt) {
	if !m.accepts(ev.gatt, "characteristic-changed") {
		return
	}
	if m.sess.target == nil || !device.EqualUUID(ev.char.UUID(), m.sess.target.UUID()) {
		m.logger.WithField("char_uuid", ev.char.UUID()).Debug("Notification from another characteristic ignored")
		return
	}

	result, err := sensor.Decode(ev.value)
	if err != nil {
		m.logger.WithFields(logrus.Fields{
			"payload": fmt.Sprintf("% x", ev.value),
			"error":   err,
		}).Warn("Malformed temperature and humidity payload")
		m.emit(resource.Error[sensor.TempHumidityResult](MsgDecodeFailed))
		return
	}
	m.emit(resource.Success(result))
}

func addressOf(g device.Gatt) string {
	if g == nil {
		return ""
	}
	return g.Address()
}

func describeServices(services []device.Service) string {
	var sb strings.Builder
	for _, svc := range services {
		fmt.Fprintf(&sb, "service %s\n", svc.UUID())
		for _, c := range svc.Characteristics() {
			fmt.Fprintf(&sb, "  characteristic %s [%s]\n", c.UUID(), c.Properties())
			for _, d := range c.Descriptors() {
				fmt.Fprintf(&sb, "    descriptor %s\n", d.UUID())
			}
		}
	}
	return sb.String()
}
