package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/darragh-downey/goo-messaging/cmn/cos"
)

func TestGetOrCreateServerOwnership(t *testing.T) {
	r := New()
	q1, err := r.GetOrCreate("inproc://a", true, 4)
	require.NoError(t, err)
	require.NotNil(t, q1)

	_, err = r.GetOrCreate("inproc://a", true, 4)
	require.ErrorIs(t, err, cos.ErrAlreadyExists)

	q2, err := r.GetOrCreate("inproc://a", false, 4)
	require.NoError(t, err)
	require.Same(t, q1, q2)
}

func TestGetNotFound(t *testing.T) {
	r := New()
	_, err := r.Get("inproc://missing", false)
	require.ErrorIs(t, err, cos.ErrNotFound)
}

func TestRemoveClosesQueue(t *testing.T) {
	r := New()
	q, err := r.GetOrCreate("inproc://b", true, 4)
	require.NoError(t, err)

	r.Remove("inproc://b")
	require.True(t, q.IsClosed())

	_, err = r.Get("inproc://b", false)
	require.ErrorIs(t, err, cos.ErrNotFound)
}

func TestShutdownClosesAll(t *testing.T) {
	r := New()
	q1, _ := r.GetOrCreate("inproc://c1", true, 4)
	q2, _ := r.GetOrCreate("inproc://c2", true, 4)

	r.Shutdown()
	require.True(t, q1.IsClosed())
	require.True(t, q2.IsClosed())
	require.Equal(t, 0, r.Len())
}
