// Package runtime owns process-lifecycle-scoped state for the messaging
// core: the endpoint registry, the message payload arena, the housekeeper,
// and a root supervisor — wired together once by Init and torn down by
// Shutdown, rather than held in ambient package-level statics (§9's design
// note).
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package runtime

import (
	"sync"
	"time"

	"github.com/darragh-downey/goo-messaging/cmn/cos"
	"github.com/darragh-downey/goo-messaging/hk"
	"github.com/darragh-downey/goo-messaging/mem"
	"github.com/darragh-downey/goo-messaging/registry"
	"github.com/darragh-downey/goo-messaging/supervisor"
)

// Config configures a Runtime instance.
type Config struct {
	MaxAllocBytes int64 // 0 == unbounded
	RestartPolicy supervisor.Policy
	MaxRestarts   int
	RestartWindow time.Duration
}

func defaultConfig() Config {
	return Config{
		RestartPolicy: supervisor.OneForOne,
		MaxRestarts:   5,
		RestartWindow: time.Minute,
	}
}

// Runtime is a single process's messaging-core instance. Nothing here is a
// package-level global; callers construct and own a *Runtime explicitly
// (typically one per process, but nothing prevents more, e.g. in tests).
type Runtime struct {
	mu          sync.Mutex
	initialized bool
	shutdown    bool

	Registry   *registry.Registry
	Arena      *mem.Arena
	Housekeeper *hk.Housekeeper
	Supervisor *supervisor.Supervisor
}

// New constructs an uninitialized Runtime; call Init before use.
func New() *Runtime { return &Runtime{} }

// Init wires Registry, Arena, Housekeeper, and Supervisor together and
// starts the housekeeper and supervisor under supervision. Calling Init
// twice returns ErrAlreadyExists.
func (r *Runtime) Init(cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.initialized {
		return cos.ErrAlreadyExists
	}
	if cfg.RestartWindow == 0 {
		cfg = defaultConfig()
	}

	r.Registry = registry.New()
	r.Arena = mem.NewArena(cfg.MaxAllocBytes)
	r.Housekeeper = hk.New()
	r.Supervisor = supervisor.New(cfg.RestartPolicy, cfg.MaxRestarts, cfg.RestartWindow)

	r.Supervisor.Spawn("housekeeper", func(stop <-chan struct{}) error {
		done := make(chan error, 1)
		go func() { done <- r.Housekeeper.Run() }()
		select {
		case <-stop:
			r.Housekeeper.Stop(nil)
			<-done
			return nil
		case err := <-done:
			return err
		}
	})

	r.initialized = true
	return nil
}

// Shutdown tears down the housekeeper/supervisor and closes every registry
// entry. Idempotent.
func (r *Runtime) Shutdown() {
	r.mu.Lock()
	if r.shutdown || !r.initialized {
		r.mu.Unlock()
		return
	}
	r.shutdown = true
	r.mu.Unlock()

	r.Supervisor.Stop()
	r.Registry.Shutdown()
}

func (r *Runtime) IsInitialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initialized
}
