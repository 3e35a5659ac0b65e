package stream

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestNewValidatesBufferSize(t *testing.T) {
	_, err := New[int]("zero", 0, nil)
	assert.Error(t, err)

	_, err = New[int]("huge", MaxBufferSize+1, nil)
	assert.Error(t, err)
}

func TestStreamPreservesOrder(t *testing.T) {
	s, err := New[int]("order", 64, quietLogger())
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < 10; i++ {
		require.True(t, s.Publish(i))
	}

	for i := 0; i < 10; i++ {
		select {
		case v := <-s.C():
			assert.Equal(t, i, v)
		case <-time.After(time.Second):
			t.Fatalf("value %d not delivered", i)
		}
	}

	assert.Eventually(t, func() bool {
		m := s.Metrics()
		return m.Published == 10 && m.Delivered == 10 && m.Overwritten == 0
	}, time.Second, 5*time.Millisecond)
}

func TestSlowConsumerDoesNotBlockProducer(t *testing.T) {
	s, err := New[int]("slow", 4, quietLogger())
	require.NoError(t, err)
	defer s.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			s.Publish(i)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("producer blocked on a stalled consumer")
	}

	assert.Positive(t, s.Metrics().Overwritten)

	// whatever survives must still be in publish order
	last := -1
	timeout := time.After(time.Second)
	for {
		select {
		case v := <-s.C():
			assert.Greater(t, v, last)
			last = v
			if v == 999 {
				return
			}
		case <-timeout:
			t.Fatalf("latest value was not delivered, last seen %d", last)
		}
	}
}

func TestCloseClosesChannel(t *testing.T) {
	s, err := New[string]("close", 8, quietLogger())
	require.NoError(t, err)

	s.Close()
	s.Close()

	_, ok := <-s.C()
	assert.False(t, ok)
	assert.False(t, s.Publish("late"))
}
