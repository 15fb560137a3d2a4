// Package manager owns the transcription job lifecycle and the single
// shared model slot. It is structured into small files by concern:
//
//   - manager.go: core Manager type, ManagerConfig, constructor, getters.
//   - options.go: layered option merge and engine parameter resolution.
//   - slot.go: exclusive model slot acquisition and conditional reload.
//   - jobs.go: in-memory job registry and terminal-state writes.
//   - executor.go: submission validation and the background job run.
//   - errors.go: error types and helpers (IsInvalidRequest, IsModelNotFound, ...).
//   - events.go: lifecycle event publisher interface.
//   - metrics.go: prometheus counters and histograms.
//
// Concurrency model: every submitted job runs in its own goroutine and
// queues on the model slot, which is a full mutual-exclusion token held
// across the entire engine call. The engine context is not safe for
// concurrent use and is expensive to reload, so transcription
// throughput is deliberately serialized: at most one inference runs at
// any instant. The job registry is safe for concurrent readers and
// writers; terminal writes are atomic per job.
//
// External packages should treat this package as the orchestration
// layer and use public methods only (NewWithConfig, Submit, Job, Load,
// Available, Ready, Close).
package manager
