package manager

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"whisperd/internal/catalog"
	"whisperd/internal/engine"
	"whisperd/pkg/types"
)

// fakeEngine records loads and serves canned transcripts.
type fakeEngine struct {
	mu            sync.Mutex
	loads         []string
	newCtxErr     error
	transcribeErr error
	result        types.Transcript
	delay         time.Duration

	active     int32
	overlapped int32
}

func (e *fakeEngine) NewContext(path string) (engine.ModelContext, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.newCtxErr != nil {
		return nil, e.newCtxErr
	}
	e.loads = append(e.loads, path)
	return &fakeContext{e: e, path: path}, nil
}

func (e *fakeEngine) loadCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.loads)
}

type fakeContext struct {
	e      *fakeEngine
	path   string
	closed bool
}

func (c *fakeContext) Transcribe(ctx context.Context, params engine.Params, progress chan<- int) (types.Transcript, error) {
	// Detect concurrent invocations: the engine contract forbids them.
	if atomic.AddInt32(&c.e.active, 1) > 1 {
		atomic.StoreInt32(&c.e.overlapped, 1)
	}
	defer atomic.AddInt32(&c.e.active, -1)

	engine.ReportProgress(progress, 50)
	if c.e.delay > 0 {
		time.Sleep(c.e.delay)
	}
	engine.ReportProgress(progress, 100)

	c.e.mu.Lock()
	defer c.e.mu.Unlock()
	if c.e.transcribeErr != nil {
		return types.Transcript{}, c.e.transcribeErr
	}
	return c.e.result, nil
}

func (c *fakeContext) Close() error {
	c.closed = true
	return nil
}

// helper: create a file of a few bytes standing in for a model or audio payload
func createFile(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("stub"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func mustCatalog(t *testing.T, dir string) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(dir, map[string]string{"base": "ggml-base.bin"}, "base")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return cat
}

func mustCatalogNoDefault(t *testing.T, dir string) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(dir, map[string]string{"base": "ggml-base.bin"}, "")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return cat
}

// newTestManager wires a manager over a temp catalog with model "base".
func newTestManager(t *testing.T, eng engine.Engine) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	createFile(t, dir, "ggml-base.bin")
	cat, err := catalog.New(dir, map[string]string{"base": "ggml-base.bin"}, "base")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	log := zerolog.Nop()
	m := NewWithConfig(ManagerConfig{Catalog: cat, Engine: eng, Logger: &log})
	t.Cleanup(func() { _ = m.Close() })
	return m, dir
}

// waitTerminal polls until the job leaves processing or the deadline hits.
func waitTerminal(t *testing.T, m *Manager, id string) Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := m.Job(id)
		if !ok {
			t.Fatalf("job %s disappeared", id)
		}
		if job.State != types.JobProcessing {
			return job
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("job %s still processing after deadline", id)
	return Job{}
}

func strPtr(s string) *string    { return &s }
func intPtr(i int) *int          { return &i }
func boolPtr(b bool) *bool       { return &b }
func f64Ptr(f float64) *float64  { return &f }
