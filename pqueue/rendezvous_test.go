package pqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/darragh-downey/goo-messaging/cmn/cos"
	"github.com/darragh-downey/goo-messaging/msg"
)

func TestRendezvousNonBlockingEnqueueWithoutReceiverFails(t *testing.T) {
	r := NewRendezvous()
	err := r.Enqueue(mustMsg(t, msg.Normal, "x"), false, 0)
	require.ErrorIs(t, err, cos.ErrQueueFull)
}

func TestRendezvousNonBlockingDequeueWithoutSenderFails(t *testing.T) {
	r := NewRendezvous()
	_, err := r.Dequeue(false, 0)
	require.ErrorIs(t, err, cos.ErrQueueEmpty)
}

func TestRendezvousHandsOffDirectly(t *testing.T) {
	r := NewRendezvous()
	done := make(chan *msg.Message, 1)
	go func() {
		m, err := r.Dequeue(true, time.Second)
		require.NoError(t, err)
		done <- m
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, r.Enqueue(mustMsg(t, msg.Normal, "v"), true, 0))

	select {
	case m := <-done:
		require.Equal(t, "v", string(m.Payload()))
	case <-time.After(time.Second):
		t.Fatal("rendezvous did not hand off")
	}
}

func TestRendezvousBlockingEnqueueTimesOutWithoutReceiver(t *testing.T) {
	r := NewRendezvous()
	err := r.Enqueue(mustMsg(t, msg.Normal, "x"), true, 30*time.Millisecond)
	require.ErrorIs(t, err, cos.ErrTimeout)
}

func TestRendezvousCloseWakesBlockedEnqueue(t *testing.T) {
	r := NewRendezvous()
	done := make(chan error, 1)
	go func() {
		done <- r.Enqueue(mustMsg(t, msg.Normal, "x"), true, 0)
	}()

	time.Sleep(20 * time.Millisecond)
	r.Close()

	select {
	case err := <-done:
		require.ErrorIs(t, err, cos.ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("close did not wake blocked enqueue")
	}
}

func TestRendezvousCloseWakesBlockedDequeue(t *testing.T) {
	r := NewRendezvous()
	done := make(chan error, 1)
	go func() {
		_, err := r.Dequeue(true, 0)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	r.Close()

	select {
	case err := <-done:
		require.ErrorIs(t, err, cos.ErrClosedAndEmpty)
	case <-time.After(time.Second):
		t.Fatal("close did not wake blocked dequeue")
	}
}

func TestRendezvousLenAlwaysZero(t *testing.T) {
	r := NewRendezvous()
	require.Equal(t, 0, r.Len())
}
