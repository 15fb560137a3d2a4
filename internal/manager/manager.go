package manager

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"whisperd/internal/catalog"
	"whisperd/internal/engine"
	"whisperd/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultRetainFinishedFor = time.Hour
	sweepInterval            = time.Minute
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Catalog *catalog.Catalog
	Engine  engine.Engine
	// Server-default transcription option layer.
	Defaults types.Options
	// Terminal records older than this are evicted; 0 applies the
	// package default, negative disables eviction entirely.
	RetainFinishedFor time.Duration
	Logger            *zerolog.Logger
	Publisher         EventPublisher
}

// Manager is the single owned orchestration object created at startup
// and passed explicitly to every request handler. There is no ambient
// global state: the model slot and job registry live here.
type Manager struct {
	catalog   *catalog.Catalog
	engine    engine.Engine
	defaults  types.Options
	slot      *modelSlot
	jobs      *jobStore
	log       zerolog.Logger
	publisher EventPublisher

	retainFor time.Duration
	sweepStop chan struct{}
	sweepDone chan struct{}

	wg        sync.WaitGroup
	startTime time.Time
	closeOnce sync.Once
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		catalog:   cfg.Catalog,
		engine:    cfg.Engine,
		defaults:  cfg.Defaults,
		slot:      newModelSlot(),
		jobs:      newJobStore(),
		publisher: cfg.Publisher,
		startTime: time.Now(),
	}
	if cfg.Logger != nil {
		m.log = *cfg.Logger
	} else {
		m.log = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	switch {
	case cfg.RetainFinishedFor == 0:
		m.retainFor = defaultRetainFinishedFor
	case cfg.RetainFinishedFor < 0:
		m.retainFor = 0
	default:
		m.retainFor = cfg.RetainFinishedFor
	}
	if m.retainFor > 0 {
		m.sweepStop = make(chan struct{})
		m.sweepDone = make(chan struct{})
		go m.sweepLoop()
	}
	return m
}

// sweepLoop periodically evicts old terminal job records.
func (m *Manager) sweepLoop() {
	defer close(m.sweepDone)
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if n := m.jobs.sweep(time.Now().Add(-m.retainFor)); n > 0 {
				m.log.Debug().Int("evicted", n).Msg("job registry sweep")
			}
		case <-m.sweepStop:
			return
		}
	}
}

// Job returns a snapshot of the job record for id.
func (m *Manager) Job(id string) (Job, bool) {
	return m.jobs.get(id)
}

// Available lists catalog entries whose backing file exists on disk,
// plus the configured default model name.
func (m *Manager) Available() ([]types.Model, string) {
	return m.catalog.Available(), m.catalog.DefaultName()
}

// Ready reports whether at least one catalog model is present on disk.
func (m *Manager) Ready() bool {
	return len(m.catalog.Available()) > 0
}

// Load eagerly loads the named model into the slot outside of a
// transcription job, so a later submission skips the load cost.
func (m *Manager) Load(ctx context.Context, modelName string) error {
	mdl, ok := m.catalog.Resolve(modelName)
	if !ok {
		return ErrModelNotFound(displayName(modelName))
	}
	if _, err := os.Stat(mdl.Path); err != nil {
		return ErrModelNotFound(mdl.Name + " (file missing: " + mdl.Path + ")")
	}
	h, err := m.slot.acquire(ctx)
	if err != nil {
		return err
	}
	defer h.Release()
	return m.ensureLoaded(h, mdl.Path)
}

// Close stops the sweeper, waits for in-flight jobs to reach a terminal
// state, and frees the loaded engine context.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		if m.sweepStop != nil {
			close(m.sweepStop)
			<-m.sweepDone
		}
		m.wg.Wait()
		err = m.slot.close()
	})
	return err
}

func displayName(name string) string {
	if name == "" {
		return "(default)"
	}
	return name
}
