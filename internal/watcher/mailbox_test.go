package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailbox_FIFO(t *testing.T) {
	mb := newMailbox()
	var order []int
	for i := 0; i < 5; i++ {
		require.True(t, mb.post(func() { order = append(order, i) }))
	}

	batch, ok := mb.wait()
	require.True(t, ok)
	for _, fn := range batch {
		fn()
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestMailbox_WaitBlocksUntilPost(t *testing.T) {
	mb := newMailbox()
	got := make(chan int, 1)
	go func() {
		batch, _ := mb.wait()
		got <- len(batch)
	}()

	select {
	case <-got:
		require.FailNow(t, "wait returned with nothing queued")
	case <-time.After(20 * time.Millisecond):
	}

	mb.post(func() {})
	select {
	case n := <-got:
		assert.Equal(t, 1, n)
	case <-time.After(time.Second):
		require.FailNow(t, "wait did not wake up")
	}
}

func TestMailbox_CloseDrainsThenStops(t *testing.T) {
	// Given: queued work
	mb := newMailbox()
	mb.post(func() {})
	mb.post(func() {})

	// When: closed
	mb.close()

	// Then: the queued work is still handed out, new work is refused
	assert.False(t, mb.post(func() {}))
	batch, ok := mb.wait()
	assert.True(t, ok)
	assert.Len(t, batch, 2)

	batch, ok = mb.wait()
	assert.False(t, ok)
	assert.Nil(t, batch)
}

func TestMailbox_CloseWakesWaiter(t *testing.T) {
	mb := newMailbox()
	done := make(chan bool, 1)
	go func() {
		_, ok := mb.wait()
		done <- ok
	}()

	mb.close()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		require.FailNow(t, "close did not wake the waiter")
	}
}
