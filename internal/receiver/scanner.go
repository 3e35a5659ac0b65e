package receiver

import (
	"github.com/sirupsen/logrus"

	"github.com/srg/humitemp/internal/device"
	"github.com/srg/humitemp/internal/sensor"
	"github.com/srg/humitemp/pkg/resource"
)

var scanSettings = device.ScanSettings{Mode: device.ScanModeLowLatency}

// beginScan starts a fresh scan for the target device, dropping any current link
func (m *Manager) beginScan() {
	if g := m.slot.current(); g != nil {
		m.logger.WithField("address", g.Address()).Info("Restarting receive cycle, releasing current connection")
		m.slot.release()
		m.sess.resetLink()
		m.setState(sensor.Uninitialized)
	}
	if m.sess.scanning {
		m.adapter.StopScan()
	}

	m.emit(resource.Loading[sensor.TempHumidityResult](MsgScanning))
	m.sess.scanning = true
	m.sess.phase = phaseScanning

	m.logger.WithFields(logrus.Fields{
		"device_name": m.cfg.DeviceName,
		"attempt":     m.sess.attempt,
	}).Info("Scanning for device...")

	if err := m.adapter.StartScan(scanSettings, m.cb); err != nil {
		m.scanFailed(err)
	}
}

func (m *Manager) onScanResult(ev scanResultEvt) {
	// late advertisements after a match are dropped here
	if !m.live() || !m.sess.scanning {
		return
	}
	if ev.adv.LocalName() != m.cfg.DeviceName {
		return
	}

	log := m.logger.WithFields(logrus.Fields{
		"address": ev.adv.Addr(),
		"rssi":    ev.adv.RSSI(),
	})
	log.Info("Target device found")

	m.emit(resource.Loading[sensor.TempHumidityResult](MsgConnecting))
	m.sess.scanning = false
	m.adapter.StopScan()

	m.setState(sensor.CurrentlyInitializing)
	m.sess.phase = phaseConnecting

	g, err := m.adapter.Connect(ev.adv, m.cb)
	if err != nil {
		log.WithField("error", err).Warn("Adapter refused the connection")
		m.slot.release()
		m.sess.resetLink()
		m.connectFailed()
		return
	}
	m.slot.swap(g)
}

func (m *Manager) onScanFailed(ev scanFailedEvt) {
	if !m.live() || !m.sess.scanning {
		return
	}
	m.scanFailed(ev.err)
}

func (m *Manager) scanFailed(err error) {
	m.logger.WithField("error", err).Error("BLE scan failed")
	m.adapter.StopScan()
	m.emit(resource.Error[sensor.TempHumidityResult](MsgScanFailed))
	m.sess = newSession()
	m.setState(sensor.Uninitialized)
}
