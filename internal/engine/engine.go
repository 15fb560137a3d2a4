package engine

import (
	"context"

	"whisperd/pkg/types"
)

// Engine abstracts the speech-to-text runtime. Concrete implementations
// (whisper.cpp) satisfy this interface; orchestration code never touches
// the runtime directly.
type Engine interface {
	// NewContext loads a model file and returns a context bound to it.
	// Loading is expensive; callers are expected to cache the context
	// and reuse it until a different model path is requested.
	NewContext(modelPath string) (ModelContext, error)
}

// ModelContext is a loaded model. It is NOT safe for concurrent use:
// callers must guarantee at most one Transcribe call at a time.
type ModelContext interface {
	// Transcribe runs inference over the audio file named in params and
	// returns the full transcript. Progress updates in percent are sent
	// to progress if non-nil; sends must never block (see ReportProgress).
	// Implementations must return promptly after ctx is canceled.
	Transcribe(ctx context.Context, params Params, progress chan<- int) (types.Transcript, error)
	// Close releases the loaded model.
	Close() error
}

// Params is the fully resolved option set for one transcription call.
// Built fresh per job by the option merge; never shared between jobs.
type Params struct {
	// Absolute path of the audio file.
	Path string
	// Language hint, e.g. "en". Empty lets the engine auto-detect.
	Lang string
	// Initial decoder prompt.
	InitPrompt string
	// Translate to English instead of transcribing.
	Translate bool
	// Engine threads.
	NThreads int32
	// Sampling temperature.
	Temperature float32
	// Word-level timestamps.
	WordTimestamps bool
	// Decoder text context limit; 0 means engine default.
	MaxTextCtx int32
	// Max characters per segment; 0 means engine default.
	MaxSentenceLen int32
	// Diarization, nil when not requested.
	Diarize *DiarizeParams
	// Voice activity detection, nil when not requested.
	Vad *VadParams
}

// DiarizeParams configures speaker attribution. Both auxiliary model
// files must exist on disk before the engine is invoked.
type DiarizeParams struct {
	Threshold          float32
	MaxSpeakers        int32
	SegmentModelPath   string
	EmbeddingModelPath string
}

// VadParams configures voice activity detection.
type VadParams struct {
	Threshold    float32
	MinSpeechMs  int32
	MinSilenceMs int32
	PadMs        int32
}

// ReportProgress sends pct to ch without ever blocking: if ch is full
// (or nil) the update is dropped. Progress is best-effort telemetry and
// must never stall or fail a transcription.
func ReportProgress(ch chan<- int, pct int) {
	if ch == nil {
		return
	}
	select {
	case ch <- pct:
	default:
		progressDroppedTotal.Inc()
	}
}
