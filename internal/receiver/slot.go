package receiver

import (
	"sync/atomic"

	"github.com/srg/humitemp/internal/device"
)

type gattRef struct {
	gatt device.Gatt
}

// handleSlot holds the one live connection handle
type handleSlot struct {
	p atomic.Pointer[gattRef]
}

func (s *handleSlot) current() device.Gatt {
	if ref := s.p.Load(); ref != nil {
		return ref.gatt
	}
	return nil
}

// is reports whether g is the live handle
func (s *handleSlot) is(g device.Gatt) bool {
	cur := s.current()
	return cur != nil && g == cur
}

// swap installs g and closes the handle it replaces
func (s *handleSlot) swap(g device.Gatt) {
	var ref *gattRef
	if g != nil {
		ref = &gattRef{gatt: g}
	}
	if old := s.p.Swap(ref); old != nil && old.gatt != g {
		old.gatt.Close()
	}
}

// release closes and clears the live handle
func (s *handleSlot) release() {
	s.swap(nil)
}
