package manager

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSlotAcquireIsExclusive(t *testing.T) {
	s := newModelSlot()
	h, err := s.acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := s.acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second acquire should block until timeout, got %v", err)
	}
	h.Release()
	h2, err := s.acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	h2.Release()
}

func TestSlotReleaseIdempotent(t *testing.T) {
	s := newModelSlot()
	h, _ := s.acquire(context.Background())
	h.Release()
	h.Release() // must not free the token twice
	h2, _ := s.acquire(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := s.acquire(ctx); err == nil {
		t.Fatal("token double-freed: two holders at once")
	}
	h2.Release()
}

func TestEnsureLoadedReusesMatchingContext(t *testing.T) {
	eng := &fakeEngine{}
	m, _ := newTestManager(t, eng)
	mdl, _ := m.catalog.Resolve("base")

	h, _ := m.slot.acquire(context.Background())
	if err := m.ensureLoaded(h, mdl.Path); err != nil {
		t.Fatalf("first load: %v", err)
	}
	if err := m.ensureLoaded(h, mdl.Path); err != nil {
		t.Fatalf("second load: %v", err)
	}
	h.Release()
	if n := eng.loadCount(); n != 1 {
		t.Fatalf("loads=%d want 1 (same path must skip reinit)", n)
	}
}

func TestEnsureLoadedSwapsOnPathChange(t *testing.T) {
	eng := &fakeEngine{}
	m, dir := newTestManager(t, eng)
	other := createFile(t, dir, "ggml-small.bin")
	mdl, _ := m.catalog.Resolve("base")

	h, _ := m.slot.acquire(context.Background())
	defer h.Release()
	if err := m.ensureLoaded(h, mdl.Path); err != nil {
		t.Fatalf("load base: %v", err)
	}
	first := m.slot.ctx.(*fakeContext)
	if err := m.ensureLoaded(h, other); err != nil {
		t.Fatalf("load other: %v", err)
	}
	if !first.closed {
		t.Fatal("previous context not closed on swap")
	}
	if m.slot.path != other {
		t.Fatalf("slot path=%q want %q", m.slot.path, other)
	}
	if eng.loadCount() != 2 {
		t.Fatalf("loads=%d want 2", eng.loadCount())
	}
}

func TestEnsureLoadedFailureKeepsPriorState(t *testing.T) {
	eng := &fakeEngine{}
	m, dir := newTestManager(t, eng)
	other := createFile(t, dir, "ggml-broken.bin")
	mdl, _ := m.catalog.Resolve("base")

	h, _ := m.slot.acquire(context.Background())
	defer h.Release()
	if err := m.ensureLoaded(h, mdl.Path); err != nil {
		t.Fatalf("load base: %v", err)
	}
	prior := m.slot.ctx

	eng.mu.Lock()
	eng.newCtxErr = errors.New("init rejected")
	eng.mu.Unlock()

	err := m.ensureLoaded(h, other)
	if err == nil || !IsModelLoadFailed(err) {
		t.Fatalf("expected model load failed, got %v", err)
	}
	if m.slot.ctx != prior || m.slot.path != mdl.Path {
		t.Fatal("slot state changed after failed load")
	}
	if prior.(*fakeContext).closed {
		t.Fatal("prior context closed despite failed load")
	}
}

func TestSingleLoadPerPathUnderContention(t *testing.T) {
	eng := &fakeEngine{delay: 5 * time.Millisecond}
	m, _ := newTestManager(t, eng)
	mdl, _ := m.catalog.Resolve("base")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := m.slot.acquire(context.Background())
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			defer h.Release()
			if err := m.ensureLoaded(h, mdl.Path); err != nil {
				t.Errorf("ensure: %v", err)
			}
		}()
	}
	wg.Wait()
	if n := eng.loadCount(); n != 1 {
		t.Fatalf("loads=%d want exactly 1 for one path", n)
	}
}
