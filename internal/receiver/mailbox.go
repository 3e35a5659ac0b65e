package receiver

import "sync"

// mailbox is an unbounded FIFO queue. put never blocks; the single consumer
// waits on ready() and drains with take().
type mailbox struct {
	mu     sync.Mutex
	queue  []event
	ready  chan struct{}
	closed bool
}

func newMailbox() *mailbox {
	return &mailbox{ready: make(chan struct{}, 1)}
}

// put appends e; false once the mailbox is closed
func (mb *mailbox) put(e event) bool {
	mb.mu.Lock()
	if mb.closed {
		mb.mu.Unlock()
		return false
	}
	mb.queue = append(mb.queue, e)
	mb.mu.Unlock()

	select {
	case mb.ready <- struct{}{}:
	default:
	}
	return true
}

// take removes and returns every queued event in order
func (mb *mailbox) take() []event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	batch := mb.queue
	mb.queue = nil
	return batch
}

func (mb *mailbox) close() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.closed = true
	mb.queue = nil
}
