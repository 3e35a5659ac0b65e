// Package stream delivers values from a single producer to a consumer channel
// through a bounded overlapped ring buffer. A slow consumer never blocks the
// producer; once the buffer is full the oldest pending values are overwritten.
package stream

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/hedzr/go-ringbuf/v2/mpmc"
	"github.com/sirupsen/logrus"

	"github.com/srg/humitemp/internal/groutine"
)

// MaxBufferSize guards against accidental misconfiguration
const MaxBufferSize uint32 = 1024 * 1024

// Metrics tracks stream throughput. All fields use atomic operations.
type Metrics struct {
	Published   int64
	Delivered   int64
	Overwritten int64
}

func (m *Metrics) addPublished()           { atomic.AddInt64(&m.Published, 1) }
func (m *Metrics) addDelivered()           { atomic.AddInt64(&m.Delivered, 1) }
func (m *Metrics) addOverwritten(n uint32) { atomic.AddInt64(&m.Overwritten, int64(n)) }
func (m *Metrics) snapshot() Metrics {
	return Metrics{
		Published:   atomic.LoadInt64(&m.Published),
		Delivered:   atomic.LoadInt64(&m.Delivered),
		Overwritten: atomic.LoadInt64(&m.Overwritten),
	}
}

// Stream is a best-effort, order-preserving value pipe.
//
// Publish must be called from one goroutine at a time. The consumer reads C()
// until it is closed by Close.
type Stream[T any] struct {
	name    string
	buffer  mpmc.RichOverlappedRingBuffer[T]
	notify  chan struct{}
	out     chan T
	stop    chan struct{}
	done    chan struct{}
	closed  atomic.Bool
	metrics Metrics
	logger  *logrus.Logger
}

// New creates a stream and starts its delivery goroutine
func New[T any](name string, bufferSize uint32, logger *logrus.Logger) (*Stream[T], error) {
	if bufferSize == 0 {
		return nil, fmt.Errorf("buffer size must be > 0")
	}
	if bufferSize > MaxBufferSize {
		return nil, fmt.Errorf("buffer size %d exceeds maximum %d", bufferSize, MaxBufferSize)
	}
	if logger == nil {
		logger = logrus.New()
	}

	s := &Stream[T]{
		name:   name,
		buffer: mpmc.NewOverlappedRingBuffer[T](bufferSize),
		notify: make(chan struct{}, 1),
		out:    make(chan T),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger,
	}
	groutine.Go(context.Background(), "stream-"+name, s.pump)
	return s, nil
}

// C returns the consumer side of the stream
func (s *Stream[T]) C() <-chan T {
	return s.out
}

// Publish queues v for delivery. Returns false once the stream is closed.
func (s *Stream[T]) Publish(v T) bool {
	if s.closed.Load() {
		return false
	}

	overwrites, err := s.buffer.EnqueueM(v)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"stream": s.name,
			"error":  err,
		}).Error("Failed to enqueue stream value")
		return false
	}
	s.metrics.addPublished()
	if overwrites > 0 {
		s.metrics.addOverwritten(overwrites)
		s.logger.WithFields(logrus.Fields{
			"stream":      s.name,
			"overwritten": overwrites,
		}).Warn("Consumer is too slow, dropped oldest values")
	}

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return true
}

// Close stops delivery and closes C(). Values not yet delivered are discarded.
func (s *Stream[T]) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		<-s.done
		return
	}
	close(s.stop)
	<-s.done
}

// Metrics returns a copy of the current counters
func (s *Stream[T]) Metrics() Metrics {
	return s.metrics.snapshot()
}

func (s *Stream[T]) pump(ctx context.Context) {
	defer close(s.done)
	defer close(s.out)

	for {
		select {
		case <-s.stop:
			return
		case <-s.notify:
		}

		for !s.buffer.IsEmpty() {
			v, err := s.buffer.Dequeue()
			if err != nil {
				break
			}
			select {
			case s.out <- v:
				s.metrics.addDelivered()
			case <-s.stop:
				return
			}
		}
	}
}
