package types

// JobState is the lifecycle state of a transcription job as reported to
// clients. A job starts in processing and moves exactly once to either
// completed or failed.
type JobState string

const (
	JobProcessing JobState = "processing"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
)

// ErrorKind is a machine-readable classification carried next to the
// free-text error message of a failed job.
type ErrorKind string

const (
	ErrKindInvalidRequest  ErrorKind = "invalid_request"
	ErrKindModelNotFound   ErrorKind = "model_not_found"
	ErrKindModelLoadFailed ErrorKind = "model_load_failed"
	ErrKindEngineFailure   ErrorKind = "engine_failure"
)

// Options is one layer of transcription configuration. All fields are
// optional; a nil field means "unset at this layer" and never overrides
// a value set at a lower-precedence layer. The same shape is used for
// the server-default layer (config file), the request module_options
// layer, and the request task_options layer.
type Options struct {
	// BCP-47-ish language hint passed to the engine, e.g. "en".
	Lang *string `json:"lang,omitempty" toml:"lang" yaml:"lang" example:"en"`
	// Initial prompt to bias decoding.
	InitPrompt *string `json:"init_prompt,omitempty" toml:"init_prompt" yaml:"init_prompt"`
	// Translate to English instead of transcribing.
	Translate *bool `json:"translate,omitempty" toml:"translate" yaml:"translate"`
	// Number of engine threads. Expected range 1-256.
	NThreads *int `json:"n_threads,omitempty" toml:"n_threads" yaml:"n_threads" example:"4"`
	// Sampling temperature.
	Temperature *float64 `json:"temperature,omitempty" toml:"temperature" yaml:"temperature" example:"0.4"`
	// Emit word-level timestamps.
	WordTimestamps *bool `json:"word_timestamps,omitempty" toml:"word_timestamps" yaml:"word_timestamps"`
	// Maximum text context tokens kept by the decoder. Expected range 0-1000000.
	MaxTextCtx *int `json:"max_text_ctx,omitempty" toml:"max_text_ctx" yaml:"max_text_ctx"`
	// Maximum characters per sentence/segment. Expected range 0-1000000.
	MaxSentenceLen *int `json:"max_sentence_len,omitempty" toml:"max_sentence_len" yaml:"max_sentence_len"`

	// Speaker diarization. Requires the two auxiliary models to be
	// present in the models directory.
	Diarize          *bool    `json:"diarize,omitempty" toml:"diarize" yaml:"diarize"`
	DiarizeThreshold *float64 `json:"diarize_threshold,omitempty" toml:"diarize_threshold" yaml:"diarize_threshold"`
	MaxSpeakers      *int     `json:"max_speakers,omitempty" toml:"max_speakers" yaml:"max_speakers"`

	// Voice activity detection.
	VadEnabled      *bool    `json:"vad_enabled,omitempty" toml:"vad_enabled" yaml:"vad_enabled"`
	VadThreshold    *float64 `json:"vad_threshold,omitempty" toml:"vad_threshold" yaml:"vad_threshold"`
	VadMinSpeechMs  *int     `json:"vad_min_speech_ms,omitempty" toml:"vad_min_speech_ms" yaml:"vad_min_speech_ms"`
	VadMinSilenceMs *int     `json:"vad_min_silence_ms,omitempty" toml:"vad_min_silence_ms" yaml:"vad_min_silence_ms"`
	VadPadMs        *int     `json:"vad_pad_ms,omitempty" toml:"vad_pad_ms" yaml:"vad_pad_ms"`
}

// Segment is one timed span of transcribed text. Start and Stop are in
// seconds; Stop >= Start and starts are non-decreasing across a
// transcript. Speaker is set only when diarization ran.
type Segment struct {
	// Start time in seconds.
	// example: 0.0
	Start float64 `json:"start"`
	// End time in seconds.
	// example: 2.48
	Stop float64 `json:"stop"`
	// Transcribed text for the span.
	Text string `json:"text"`
	// Optional speaker label, e.g. "SPEAKER_00".
	Speaker string `json:"speaker,omitempty"`
}

// Transcript is the full result of one completed job.
type Transcript struct {
	// Segment texts joined with single spaces.
	Text string `json:"text"`
	// Ordered timed segments.
	Segments []Segment `json:"segments"`
}

// Model describes one catalog entry visible to clients.
type Model struct {
	// Logical name used in requests.
	// example: base
	Name string `json:"name" example:"base"`
	// Backing file name under the models directory.
	// example: ggml-base.bin
	FileName string `json:"file_name" example:"ggml-base.bin"`
	// Absolute path of the backing file.
	Path string `json:"path,omitempty"`
}

// SubmitResponse is returned by POST /transcribe on success.
type SubmitResponse struct {
	// Opaque job identifier to poll with.
	JobID string `json:"job_id"`
	// Always "processing" at submission time.
	Status JobState `json:"status" example:"processing"`
}

// StatusRequest is the body of POST /transcription_status and
// POST /transcription_result.
type StatusRequest struct {
	JobID string `json:"job_id"`
	// Result rendering for /transcription_result: json (default), text, srt, vtt.
	Format string `json:"format,omitempty" example:"json"`
}

// StatusResponse is returned by POST /transcription_status.
type StatusResponse struct {
	JobID  string   `json:"job_id"`
	Status JobState `json:"status"`
	// Set when Status is failed.
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Error     string    `json:"error,omitempty"`
	// Unix seconds.
	CreatedUnix  int64 `json:"created_unix,omitempty"`
	FinishedUnix int64 `json:"finished_unix,omitempty"`
}

// ResultResponse is returned by POST /transcription_result for a
// completed job when format is json.
type ResultResponse struct {
	JobID    string    `json:"job_id"`
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// LoadRequest is the body of POST /load.
type LoadRequest struct {
	ModelName string `json:"model_name"`
}

// ListResponse is returned by GET /list: catalog entries whose backing
// file exists on disk, plus the configured default.
type ListResponse struct {
	Models       []Model `json:"models"`
	DefaultModel string  `json:"default_model,omitempty"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: unknown model: tiny
	Error string `json:"error" example:"unknown model: tiny"`
	// Machine-readable kind when the failure maps to the job error taxonomy.
	Kind ErrorKind `json:"kind,omitempty"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}
