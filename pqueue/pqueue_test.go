package pqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/darragh-downey/goo-messaging/cmn/cos"
	"github.com/darragh-downey/goo-messaging/msg"
)

func mustMsg(t *testing.T, p msg.Priority, data string) *msg.Message {
	t.Helper()
	m, err := msg.Create(msg.String, []byte(data), 0)
	require.NoError(t, err)
	m.SetPriority(p)
	return m
}

func TestPriorityOrdering(t *testing.T) {
	q := New(4)
	require.NoError(t, q.Enqueue(mustMsg(t, msg.Low, "L"), false, 0))
	require.NoError(t, q.Enqueue(mustMsg(t, msg.Normal, "N"), false, 0))
	require.NoError(t, q.Enqueue(mustMsg(t, msg.High, "H"), false, 0))
	require.NoError(t, q.Enqueue(mustMsg(t, msg.Critical, "K"), false, 0))

	want := []string{"K", "H", "N", "L"}
	for _, w := range want {
		m, err := q.Dequeue(false, 0)
		require.NoError(t, err)
		require.Equal(t, w, string(m.Payload()))
	}
}

func TestFIFOWithinBand(t *testing.T) {
	q := New(4)
	for _, s := range []string{"A", "B", "C", "D"} {
		require.NoError(t, q.Enqueue(mustMsg(t, msg.Normal, s), false, 0))
	}
	for _, w := range []string{"A", "B", "C", "D"} {
		m, err := q.Dequeue(false, 0)
		require.NoError(t, err)
		require.Equal(t, w, string(m.Payload()))
	}
}

func TestNonBlockingFullQueue(t *testing.T) {
	q := New(1)
	require.NoError(t, q.Enqueue(mustMsg(t, msg.Normal, "x"), false, 0))
	err := q.Enqueue(mustMsg(t, msg.Normal, "y"), false, 0)
	require.ErrorIs(t, err, cos.ErrQueueFull)
}

func TestNonBlockingEmptyQueue(t *testing.T) {
	q := New(1)
	_, err := q.Dequeue(false, 0)
	require.ErrorIs(t, err, cos.ErrQueueEmpty)
}

func TestCloseDrains(t *testing.T) {
	q := New(4)
	for _, s := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(mustMsg(t, msg.Normal, s), false, 0))
	}
	q.Close()

	for _, w := range []string{"a", "b", "c"} {
		m, err := q.Dequeue(false, 0)
		require.NoError(t, err)
		require.Equal(t, w, string(m.Payload()))
	}
	_, err := q.Dequeue(false, 0)
	require.ErrorIs(t, err, cos.ErrClosedAndEmpty)
}

func TestBlockingEnqueueWakesOnClose(t *testing.T) {
	q := New(1)
	require.NoError(t, q.Enqueue(mustMsg(t, msg.Normal, "full"), false, 0))

	done := make(chan error, 1)
	go func() {
		done <- q.Enqueue(mustMsg(t, msg.Normal, "blocked"), true, 0)
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case err := <-done:
		require.ErrorIs(t, err, cos.ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("blocking enqueue did not wake on close")
	}
}

func TestBlockingDequeueTimeout(t *testing.T) {
	q := New(1)
	_, err := q.Dequeue(true, 30*time.Millisecond)
	require.ErrorIs(t, err, cos.ErrTimeout)
}

func TestBlockingDequeueWakesOnEnqueue(t *testing.T) {
	q := New(1)
	done := make(chan *msg.Message, 1)
	go func() {
		m, err := q.Dequeue(true, time.Second)
		require.NoError(t, err)
		done <- m
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Enqueue(mustMsg(t, msg.Normal, "v"), false, 0))

	select {
	case m := <-done:
		require.Equal(t, "v", string(m.Payload()))
	case <-time.After(time.Second):
		t.Fatal("blocking dequeue did not wake on enqueue")
	}
}

func TestPeekCountPerBand(t *testing.T) {
	q := New(8)
	require.NoError(t, q.Enqueue(mustMsg(t, msg.Low, "l"), false, 0))
	require.NoError(t, q.Enqueue(mustMsg(t, msg.Normal, "n"), false, 0))
	require.NoError(t, q.Enqueue(mustMsg(t, msg.High, "h"), false, 0))
	require.Equal(t, [3]int{1, 1, 1}, q.PeekCountPerBand())
	require.Equal(t, 3, q.Len())
}
