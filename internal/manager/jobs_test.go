package manager

import (
	"sync"
	"testing"
	"time"

	"whisperd/pkg/types"
)

func TestJobStoreCreateStartsProcessing(t *testing.T) {
	s := newJobStore()
	id := s.create()
	if id == "" {
		t.Fatal("empty job id")
	}
	job, ok := s.get(id)
	if !ok {
		t.Fatal("job not found after create")
	}
	if job.State != types.JobProcessing {
		t.Fatalf("state=%s want processing", job.State)
	}
	if job.Created.IsZero() {
		t.Fatal("created timestamp not set")
	}
}

func TestJobStoreUniqueIDs(t *testing.T) {
	s := newJobStore()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := s.create()
		if seen[id] {
			t.Fatalf("duplicate id issued: %s", id)
		}
		seen[id] = true
	}
}

func TestJobStoreCompleteIsTerminal(t *testing.T) {
	s := newJobStore()
	id := s.create()
	tr := types.Transcript{Text: "hello", Segments: []types.Segment{{Start: 0, Stop: 1, Text: "hello"}}}
	if !s.complete(id, tr) {
		t.Fatal("complete returned false")
	}
	job, _ := s.get(id)
	if job.State != types.JobCompleted {
		t.Fatalf("state=%s", job.State)
	}
	if job.Result == nil || job.Result.Text != "hello" {
		t.Fatalf("result=%+v", job.Result)
	}
	if job.Finished.IsZero() {
		t.Fatal("finished timestamp not set")
	}
}

func TestJobStoreFailRecordsKind(t *testing.T) {
	s := newJobStore()
	id := s.create()
	s.fail(id, types.ErrKindEngineFailure, "boom")
	job, _ := s.get(id)
	if job.State != types.JobFailed || job.ErrorKind != types.ErrKindEngineFailure || job.Error != "boom" {
		t.Fatalf("unexpected record: %+v", job)
	}
}

func TestJobStoreLastTerminalWriteWins(t *testing.T) {
	s := newJobStore()
	id := s.create()
	s.complete(id, types.Transcript{Text: "first"})
	// A second terminal write is unsupported but must not corrupt state.
	s.fail(id, types.ErrKindEngineFailure, "late failure")
	job, _ := s.get(id)
	if job.State != types.JobFailed {
		t.Fatalf("state=%s want failed (last write)", job.State)
	}
	if job.Result != nil {
		t.Fatal("stale result left on failed record")
	}
}

func TestJobStoreGetUnknown(t *testing.T) {
	s := newJobStore()
	if _, ok := s.get("nope"); ok {
		t.Fatal("expected not found")
	}
	if s.complete("nope", types.Transcript{}) {
		t.Fatal("complete on unknown id should be a no-op")
	}
}

func TestJobStoreSnapshotIsolation(t *testing.T) {
	s := newJobStore()
	id := s.create()
	s.complete(id, types.Transcript{Text: "x", Segments: []types.Segment{{Text: "x"}}})
	snap, _ := s.get(id)
	snap.Result.Segments[0].Text = "mutated"
	again, _ := s.get(id)
	if again.Result.Segments[0].Text != "x" {
		t.Fatal("stored transcript mutated through snapshot")
	}
}

func TestJobStoreConcurrentReadersAndWriter(t *testing.T) {
	s := newJobStore()
	id := s.create()
	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				job, ok := s.get(id)
				if !ok {
					t.Error("job vanished")
					return
				}
				// readers must never observe a mixed record
				if job.State == types.JobCompleted && job.Result == nil {
					t.Error("completed without result")
					return
				}
			}
		}()
	}
	time.Sleep(5 * time.Millisecond)
	s.complete(id, types.Transcript{Text: "done"})
	close(stop)
	wg.Wait()
}

func TestJobStoreSweepKeepsProcessing(t *testing.T) {
	s := newJobStore()
	running := s.create()
	finished := s.create()
	s.complete(finished, types.Transcript{})

	n := s.sweep(time.Now().Add(time.Second)) // cutoff in the future
	if n != 1 {
		t.Fatalf("swept %d want 1", n)
	}
	if _, ok := s.get(running); !ok {
		t.Fatal("processing record must never be swept")
	}
	if _, ok := s.get(finished); ok {
		t.Fatal("terminal record past cutoff should be gone")
	}
}

func TestJobStoreSweepHonorsRetention(t *testing.T) {
	s := newJobStore()
	id := s.create()
	s.complete(id, types.Transcript{})
	if n := s.sweep(time.Now().Add(-time.Hour)); n != 0 {
		t.Fatalf("swept %d inside retention window", n)
	}
	if _, ok := s.get(id); !ok {
		t.Fatal("record evicted inside retention window")
	}
}
