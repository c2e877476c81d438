package supervisor

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.Fail(t, "condition never became true")
}

func TestOneForOneRestartsOnlyFailedWorker(t *testing.T) {
	s := New(OneForOne, 5, time.Minute)

	var runsA, runsB atomic.Int32
	s.Spawn("a", func(stop <-chan struct{}) error {
		n := runsA.Add(1)
		if n == 1 {
			return errors.New("boom")
		}
		<-stop
		return nil
	})
	s.Spawn("b", func(stop <-chan struct{}) error {
		runsB.Add(1)
		<-stop
		return nil
	})

	waitFor(t, time.Second, func() bool { return runsA.Load() >= 2 })
	time.Sleep(20 * time.Millisecond)
	require.EqualValues(t, 1, runsB.Load(), "OneForOne must not restart siblings")

	s.Stop()
}

func TestOneForAllRestartsSiblingsOnFailure(t *testing.T) {
	s := New(OneForAll, 5, time.Minute)

	var runsA, runsB atomic.Int32
	failedOnce := make(chan struct{})
	s.Spawn("a", func(stop <-chan struct{}) error {
		n := runsA.Add(1)
		if n == 1 {
			close(failedOnce)
			return errors.New("boom")
		}
		<-stop
		return nil
	})
	s.Spawn("b", func(stop <-chan struct{}) error {
		runsB.Add(1)
		<-stop
		return nil
	})

	<-failedOnce
	waitFor(t, time.Second, func() bool { return runsB.Load() >= 2 })
	waitFor(t, time.Second, func() bool { return runsA.Load() >= 2 })

	s.Stop()
}

func TestRestForOneRestartsOnlyLaterWorkers(t *testing.T) {
	s := New(RestForOne, 5, time.Minute)

	var runsEarly, runsFailed, runsLater atomic.Int32
	failedOnce := make(chan struct{})

	s.Spawn("early", func(stop <-chan struct{}) error {
		runsEarly.Add(1)
		<-stop
		return nil
	})
	s.Spawn("failed", func(stop <-chan struct{}) error {
		n := runsFailed.Add(1)
		if n == 1 {
			close(failedOnce)
			return errors.New("boom")
		}
		<-stop
		return nil
	})
	s.Spawn("later", func(stop <-chan struct{}) error {
		runsLater.Add(1)
		<-stop
		return nil
	})

	<-failedOnce
	waitFor(t, time.Second, func() bool { return runsFailed.Load() >= 2 })
	waitFor(t, time.Second, func() bool { return runsLater.Load() >= 2 })

	time.Sleep(20 * time.Millisecond)
	require.EqualValues(t, 1, runsEarly.Load(), "RestForOne must not restart workers started before the failed one")

	s.Stop()
}

func TestExhaustedRestartBudgetReportsDead(t *testing.T) {
	s := New(OneForOne, 2, time.Minute)

	s.Spawn("flaky", func(stop <-chan struct{}) error {
		return errors.New("always fails")
	})

	select {
	case name := <-s.Dead():
		require.Equal(t, "flaky", name)
	case <-time.After(time.Second):
		require.Fail(t, "expected worker to be reported dead")
	}

	s.Stop()
}

func TestPanicIsRecoveredAsPanicPayload(t *testing.T) {
	s := New(OneForOne, 0, time.Minute)

	var runs atomic.Int32
	s.Spawn("panicker", func(stop <-chan struct{}) error {
		n := runs.Add(1)
		if n == 1 {
			panic("kaboom")
		}
		<-stop
		return nil
	})

	waitFor(t, time.Second, func() bool { return runs.Load() >= 2 })
	s.Stop()
}

func TestStopIsIdempotentAndWaitsForWorkers(t *testing.T) {
	s := New(OneForOne, 0, time.Minute)
	done := make(chan struct{})
	s.Spawn("worker", func(stop <-chan struct{}) error {
		<-stop
		close(done)
		return nil
	})
	s.Stop()
	s.Stop() // must not panic or block
	select {
	case <-done:
	default:
		require.Fail(t, "worker should have observed stop before Stop() returned")
	}
}
