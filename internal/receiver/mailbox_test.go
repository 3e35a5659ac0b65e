package receiver

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/humitemp/internal/testutils"
)

func TestMailboxPreservesOrder(t *testing.T) {
	mb := newMailbox()
	for i := 0; i < 100; i++ {
		require.True(t, mb.put(retryEvt{epoch: uint64(i)}))
	}

	<-mb.ready
	batch := mb.take()
	require.Len(t, batch, 100)
	for i, e := range batch {
		assert.Equal(t, uint64(i), e.(retryEvt).epoch)
	}
	assert.Empty(t, mb.take())
}

func TestMailboxPutNeverBlocks(t *testing.T) {
	mb := newMailbox()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				mb.put(reconnectCmd{})
			}
		}()
	}
	wg.Wait()

	assert.Len(t, mb.take(), 8000)
}

func TestMailboxClose(t *testing.T) {
	mb := newMailbox()
	mb.put(closeCmd{})
	mb.close()

	assert.False(t, mb.put(closeCmd{}))
	assert.Empty(t, mb.take())
}

func TestHandleSlot(t *testing.T) {
	a := testutils.NewFakeAdapter()
	a.AutoRespond = false
	cb := callbacks{}

	g1, err := a.Connect(&testutils.FakeAdvertisement{Address: "01"}, cb)
	require.NoError(t, err)
	g2, err := a.Connect(&testutils.FakeAdvertisement{Address: "02"}, cb)
	require.NoError(t, err)

	var slot handleSlot
	assert.Nil(t, slot.current())
	assert.False(t, slot.is(nil))

	slot.swap(g1)
	assert.True(t, slot.is(g1))

	slot.swap(g1)
	assert.False(t, a.Gatts()[0].Closed(), "re-installing the same handle MUST NOT close it")

	slot.swap(g2)
	assert.True(t, a.Gatts()[0].Closed(), "replaced handle MUST be closed")
	assert.True(t, slot.is(g2))
	assert.False(t, slot.is(g1))

	slot.release()
	assert.True(t, a.Gatts()[1].Closed())
	assert.Nil(t, slot.current())
}
