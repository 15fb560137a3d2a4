package manager

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"whisperd/pkg/types"
)

// progressBuffer bounds the per-job progress channel. A full channel
// drops updates instead of blocking the engine.
const progressBuffer = 16

// SubmitRequest carries one validated upload into the executor.
type SubmitRequest struct {
	// Logical model name; empty selects the catalog default.
	ModelName string
	// Path of the audio file on local disk (usually a temp upload).
	AudioPath string
	// Remove AudioPath once the job reaches a terminal state.
	RemoveAudio bool
	// Server-level override layer from the request.
	ModuleOptions types.Options
	// Highest-precedence per-task override layer.
	TaskOptions types.Options
}

// Submit validates the request synchronously, creates a processing
// record, and dispatches the rest of the work to a background
// goroutine. It returns the job identifier without waiting: callers
// poll for the terminal state. Validation failures are returned
// directly and no job record is created.
func (m *Manager) Submit(req SubmitRequest) (string, error) {
	if strings.TrimSpace(req.AudioPath) == "" {
		return "", ErrInvalidRequest("audio file is required")
	}
	mdl, ok := m.catalog.Resolve(req.ModelName)
	if !ok {
		return "", ErrModelNotFound(displayName(req.ModelName))
	}
	if _, err := os.Stat(mdl.Path); err != nil {
		return "", ErrModelNotFound(mdl.Name + " (file missing: " + mdl.Path + ")")
	}

	id := m.jobs.create()
	jobsInflight.Inc()
	m.log.Info().Str("job_id", id).Str("model", mdl.Name).Msg("job submitted")
	m.publisher.Publish(Event{Name: "job_submitted", JobID: id, ModelID: mdl.Name})

	m.wg.Add(1)
	go m.runJob(id, mdl, req)
	return id, nil
}

// runJob drives one job through its strictly linear state machine:
// resolve options, acquire the model slot, ensure the model is loaded,
// invoke the engine, translate the outcome into the one terminal write.
// Every error path ends in a failed record; nothing here may take down
// the process or leave the job in processing forever.
func (m *Manager) runJob(id string, mdl types.Model, req SubmitRequest) {
	start := time.Now()
	defer m.wg.Done()
	defer jobsInflight.Dec()
	defer func() {
		if req.RemoveAudio {
			if err := os.Remove(req.AudioPath); err != nil && !os.IsNotExist(err) {
				m.log.Warn().Err(err).Str("job_id", id).Msg("remove temp upload")
			}
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			m.failJob(id, start, types.ErrKindEngineFailure, fmt.Sprintf("panic during transcription: %v", r))
		}
	}()

	params, err := resolveOptions(m.defaults, req.ModuleOptions, req.TaskOptions, req.AudioPath)
	if err != nil {
		m.failJob(id, start, errorKind(err), err.Error())
		return
	}

	// Jobs have no cancellation API: once dispatched they run to a
	// terminal state, so the slot wait uses the background context.
	h, err := m.slot.acquire(context.Background())
	if err != nil {
		m.failJob(id, start, types.ErrKindEngineFailure, err.Error())
		return
	}
	defer h.Release()

	if err := m.ensureLoaded(h, mdl.Path); err != nil {
		m.failJob(id, start, errorKind(err), err.Error())
		return
	}

	// Diarization needs the two auxiliary models on disk; their absence
	// fails the job rather than crashing the engine mid-call.
	if params.Diarize != nil {
		segPath, embPath := m.catalog.AuxModelPaths()
		for _, p := range []string{segPath, embPath} {
			if _, err := os.Stat(p); err != nil {
				m.failJob(id, start, types.ErrKindModelNotFound, "diarization model missing: "+p)
				return
			}
		}
		params.Diarize.SegmentModelPath = segPath
		params.Diarize.EmbeddingModelPath = embPath
	}

	progress := make(chan int, progressBuffer)
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		for pct := range progress {
			m.log.Debug().Str("job_id", id).Int("pct", pct).Msg("transcribe progress")
			m.publisher.Publish(Event{Name: "job_progress", JobID: id, Fields: map[string]any{"pct": pct}})
		}
	}()

	transcript, err := h.slot.ctx.Transcribe(context.Background(), params, progress)
	close(progress)
	<-progressDone
	if err != nil {
		m.failJob(id, start, types.ErrKindEngineFailure, err.Error())
		return
	}

	transcript.Text = joinSegmentTexts(transcript.Segments)
	m.jobs.complete(id, transcript)
	jobsTotal.WithLabelValues(string(types.JobCompleted)).Inc()
	jobDuration.Observe(time.Since(start).Seconds())
	m.log.Info().Str("job_id", id).Int("segments", len(transcript.Segments)).
		Dur("dur", time.Since(start)).Msg("job completed")
	m.publisher.Publish(Event{Name: "job_completed", JobID: id, Fields: map[string]any{"segments": len(transcript.Segments)}})
}

// failJob writes the failed terminal record and accounts for it.
func (m *Manager) failJob(id string, start time.Time, kind types.ErrorKind, msg string) {
	m.jobs.fail(id, kind, msg)
	jobsTotal.WithLabelValues(string(types.JobFailed)).Inc()
	jobDuration.Observe(time.Since(start).Seconds())
	m.log.Error().Str("job_id", id).Str("kind", string(kind)).Str("error", msg).Msg("job failed")
	m.publisher.Publish(Event{Name: "job_failed", JobID: id, Fields: map[string]any{"kind": string(kind), "error": msg}})
}

// joinSegmentTexts builds the convenience full-text field by joining
// non-empty segment texts with single spaces.
func joinSegmentTexts(segs []types.Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
