package manager

import (
	"context"

	"whisperd/internal/engine"
)

// modelSlot holds the single loaded engine context and the path it was
// loaded from. The gate channel is the exclusive-access token: whoever
// holds it owns the slot for the full duration of its use, including
// the inference call itself. The engine context is not reentrant and
// reloading it is far more expensive than queueing requests, so this
// serialization is deliberate.
//
// Invariant: ctx, when non-nil, was created from exactly path. Both
// fields are only touched while holding the gate token.
type modelSlot struct {
	gate chan struct{}
	ctx  engine.ModelContext
	path string
}

func newModelSlot() *modelSlot {
	return &modelSlot{gate: make(chan struct{}, 1)}
}

// acquire blocks until the slot is free or ctx is done, then returns an
// exclusive handle. The handle must be released on every exit path.
func (s *modelSlot) acquire(ctx context.Context) (*slotHandle, error) {
	select {
	case s.gate <- struct{}{}:
		return &slotHandle{slot: s}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// slotHandle is a scoped exclusive reference to the slot. Release is
// idempotent.
type slotHandle struct {
	slot     *modelSlot
	released bool
}

func (h *slotHandle) Release() {
	if h.released {
		return
	}
	h.released = true
	<-h.slot.gate
}

// ensureLoaded makes the slot's context match modelPath. A matching
// loaded context is reused as-is. On a path change the new context is
// created first; only on success is the old one closed and the
// path/context pair swapped atomically, so a failed load leaves the
// slot exactly as it was.
func (m *Manager) ensureLoaded(h *slotHandle, modelPath string) error {
	s := h.slot
	if s.ctx != nil && s.path == modelPath {
		return nil
	}
	m.log.Info().Str("model_path", modelPath).Msg("model load start")
	m.publisher.Publish(Event{Name: "model_load_start", ModelID: modelPath})

	ctx, err := m.engine.NewContext(modelPath)
	if err != nil {
		modelLoadFailuresTotal.Inc()
		m.log.Error().Err(err).Str("model_path", modelPath).Msg("model load failed")
		m.publisher.Publish(Event{Name: "model_load_failed", ModelID: modelPath, Fields: map[string]any{"error": err.Error()}})
		return ErrModelLoadFailed(modelPath, err)
	}
	if s.ctx != nil {
		if cerr := s.ctx.Close(); cerr != nil {
			m.log.Warn().Err(cerr).Str("model_path", s.path).Msg("close previous model context")
		}
	}
	s.ctx = ctx
	s.path = modelPath
	modelLoadsTotal.Inc()
	m.log.Info().Str("model_path", modelPath).Msg("model load ready")
	m.publisher.Publish(Event{Name: "model_load_ready", ModelID: modelPath})
	return nil
}

// closeSlot frees the loaded context, waiting for any holder first.
func (s *modelSlot) close() error {
	s.gate <- struct{}{}
	defer func() { <-s.gate }()
	if s.ctx == nil {
		return nil
	}
	err := s.ctx.Close()
	s.ctx = nil
	s.path = ""
	return err
}
