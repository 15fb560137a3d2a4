package manager

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"whisperd/pkg/types"
)

// Job is a read-only snapshot of one job record.
type Job struct {
	ID        string
	State     types.JobState
	Result    *types.Transcript
	ErrorKind types.ErrorKind
	Error     string
	Created   time.Time
	Finished  time.Time
}

// jobRecord is the registry-owned mutable record. State moves at most
// once from processing to a terminal value; once terminal the record is
// never modified again (the sweep may delete it).
type jobRecord struct {
	id        string
	state     types.JobState
	result    *types.Transcript
	errorKind types.ErrorKind
	errorMsg  string
	created   time.Time
	finished  time.Time
}

// jobStore is the concurrent job registry. Creation is append-only and
// the single terminal write per job happens under the write lock, so
// readers observe either the prior or the new state, never a mixture.
type jobStore struct {
	mu   sync.RWMutex
	jobs map[string]*jobRecord
}

func newJobStore() *jobStore {
	return &jobStore{jobs: make(map[string]*jobRecord)}
}

// create inserts a fresh processing record and returns its identifier.
// Identifiers are random UUIDs; the loop guards the (vanishingly
// unlikely) collision so an issued id is never reused in-process.
func (s *jobStore) create() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var id string
	for {
		id = uuid.NewString()
		if _, exists := s.jobs[id]; !exists {
			break
		}
	}
	s.jobs[id] = &jobRecord{
		id:      id,
		state:   types.JobProcessing,
		created: time.Now(),
	}
	return id
}

// complete writes the completed terminal state. Returns false when the
// id is unknown (evicted or never created).
func (s *jobStore) complete(id string, result types.Transcript) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[id]
	if !ok {
		return false
	}
	// Double terminal writes are not a supported caller pattern; if one
	// happens anyway the last write wins, still atomic under the lock.
	rec.state = types.JobCompleted
	rec.result = &result
	rec.errorKind = ""
	rec.errorMsg = ""
	rec.finished = time.Now()
	return true
}

// fail writes the failed terminal state.
func (s *jobStore) fail(id string, kind types.ErrorKind, msg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[id]
	if !ok {
		return false
	}
	rec.state = types.JobFailed
	rec.result = nil
	rec.errorKind = kind
	rec.errorMsg = msg
	rec.finished = time.Now()
	return true
}

// get returns a snapshot copy of the record.
func (s *jobStore) get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	snap := Job{
		ID:        rec.id,
		State:     rec.state,
		ErrorKind: rec.errorKind,
		Error:     rec.errorMsg,
		Created:   rec.created,
		Finished:  rec.finished,
	}
	if rec.result != nil {
		// copy so callers cannot mutate the stored transcript
		tr := types.Transcript{Text: rec.result.Text, Segments: append([]types.Segment(nil), rec.result.Segments...)}
		snap.Result = &tr
	}
	return snap, true
}

// len reports the number of retained records.
func (s *jobStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// sweep deletes terminal records finished before cutoff and returns how
// many were removed. Processing records are never swept, so a running
// job always reaches an observable terminal state.
func (s *jobStore) sweep(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, rec := range s.jobs {
		if rec.state == types.JobProcessing {
			continue
		}
		if rec.finished.Before(cutoff) {
			delete(s.jobs, id)
			n++
		}
	}
	return n
}
