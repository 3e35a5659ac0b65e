package receiver

import "github.com/srg/humitemp/internal/device"

// event is anything the session goroutine handles
type event interface {
	isEvent()
}

// caller commands

type startCmd struct {
	epoch uint64
	// caller starts reset the retry counter, retry restarts do not
	caller bool
}

type retryEvt struct {
	epoch uint64
}

type reconnectCmd struct{}
type disconnectCmd struct{}
type rediscoverCmd struct{}
type closeCmd struct{}

// flushCmd is acknowledged once every event posted before it was handled
type flushCmd struct {
	done chan struct{}
}

// adapter callbacks

type scanResultEvt struct {
	adv device.Advertisement
}

type scanFailedEvt struct {
	err error
}

type connStateEvt struct {
	gatt   device.Gatt
	status device.Status
	state  device.ProfileState
}

type servicesEvt struct {
	gatt   device.Gatt
	status device.Status
}

type mtuEvt struct {
	gatt   device.Gatt
	mtu    int
	status device.Status
}

type descriptorWriteEvt struct {
	gatt   device.Gatt
	desc   device.Descriptor
	status device.Status
}

type charChangedEvt struct {
	gatt  device.Gatt
	char  device.Characteristic
	value []byte
}

func (startCmd) isEvent()           {}
func (retryEvt) isEvent()           {}
func (reconnectCmd) isEvent()       {}
func (disconnectCmd) isEvent()      {}
func (rediscoverCmd) isEvent()      {}
func (closeCmd) isEvent()           {}
func (flushCmd) isEvent()           {}
func (scanResultEvt) isEvent()      {}
func (scanFailedEvt) isEvent()      {}
func (connStateEvt) isEvent()       {}
func (servicesEvt) isEvent()        {}
func (mtuEvt) isEvent()             {}
func (descriptorWriteEvt) isEvent() {}
func (charChangedEvt) isEvent()     {}

// callbacks turns adapter callbacks into mailbox events
type callbacks struct {
	m *Manager
}

func (c callbacks) OnScanResult(adv device.Advertisement) {
	c.m.post(scanResultEvt{adv: adv})
}

func (c callbacks) OnScanFailed(err error) {
	c.m.post(scanFailedEvt{err: err})
}

func (c callbacks) OnConnectionStateChange(g device.Gatt, status device.Status, state device.ProfileState) {
	c.m.post(connStateEvt{gatt: g, status: status, state: state})
}

func (c callbacks) OnServicesDiscovered(g device.Gatt, status device.Status) {
	c.m.post(servicesEvt{gatt: g, status: status})
}

func (c callbacks) OnMtuChanged(g device.Gatt, mtu int, status device.Status) {
	c.m.post(mtuEvt{gatt: g, mtu: mtu, status: status})
}

func (c callbacks) OnDescriptorWrite(g device.Gatt, d device.Descriptor, status device.Status) {
	c.m.post(descriptorWriteEvt{gatt: g, desc: d, status: status})
}

func (c callbacks) OnCharacteristicChanged(g device.Gatt, ch device.Characteristic, value []byte) {
	c.m.post(charChangedEvt{gatt: g, char: ch, value: value})
}
