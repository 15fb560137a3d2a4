package manager

import (
	"strings"

	"whisperd/internal/engine"
	"whisperd/pkg/types"
)

// Hard fallbacks applied only when no layer sets the field.
const (
	fallbackLang        = "en"
	fallbackTemperature = 0.4
	fallbackNThreads    = 4
)

// Width-conversion bounds. Configured values arrive as int and are
// narrowed to the engine's int32; clamping keeps realistic ranges
// (threads 1-256, context/sentence length 0-1000000) overflow-free.
const (
	minThreads   = 1
	maxThreads   = 256
	maxLengthCap = 1_000_000
)

// Defaults for optional sub-features when enabled without tuning.
const (
	defaultDiarizeThreshold = 0.5
	defaultVadThreshold     = 0.5
	defaultVadMinSpeechMs   = 250
	defaultVadMinSilenceMs  = 100
	defaultVadPadMs         = 30
)

// mergeOptions overlays over onto base field by field. A nil field in
// over leaves the base value intact; only explicitly present values
// override. Neither input is mutated.
func mergeOptions(base, over types.Options) types.Options {
	out := base
	if over.Lang != nil {
		out.Lang = over.Lang
	}
	if over.InitPrompt != nil {
		out.InitPrompt = over.InitPrompt
	}
	if over.Translate != nil {
		out.Translate = over.Translate
	}
	if over.NThreads != nil {
		out.NThreads = over.NThreads
	}
	if over.Temperature != nil {
		out.Temperature = over.Temperature
	}
	if over.WordTimestamps != nil {
		out.WordTimestamps = over.WordTimestamps
	}
	if over.MaxTextCtx != nil {
		out.MaxTextCtx = over.MaxTextCtx
	}
	if over.MaxSentenceLen != nil {
		out.MaxSentenceLen = over.MaxSentenceLen
	}
	if over.Diarize != nil {
		out.Diarize = over.Diarize
	}
	if over.DiarizeThreshold != nil {
		out.DiarizeThreshold = over.DiarizeThreshold
	}
	if over.MaxSpeakers != nil {
		out.MaxSpeakers = over.MaxSpeakers
	}
	if over.VadEnabled != nil {
		out.VadEnabled = over.VadEnabled
	}
	if over.VadThreshold != nil {
		out.VadThreshold = over.VadThreshold
	}
	if over.VadMinSpeechMs != nil {
		out.VadMinSpeechMs = over.VadMinSpeechMs
	}
	if over.VadMinSilenceMs != nil {
		out.VadMinSilenceMs = over.VadMinSilenceMs
	}
	if over.VadPadMs != nil {
		out.VadPadMs = over.VadPadMs
	}
	return out
}

// resolveOptions merges the three configuration layers with field-level
// precedence taskOverrides > moduleOptions > serverDefaults, injects
// the audio path, and produces the flat parameter set handed to the
// engine. Pure: no side effects, fresh result per call. The only
// failure is an empty resolved audio path, which is a caller error.
func resolveOptions(serverDefaults, moduleOptions, taskOverrides types.Options, audioPath string) (engine.Params, error) {
	if strings.TrimSpace(audioPath) == "" {
		return engine.Params{}, ErrInvalidRequest("audio file path is required")
	}
	merged := mergeOptions(mergeOptions(serverDefaults, moduleOptions), taskOverrides)

	p := engine.Params{
		Path:           audioPath,
		Lang:           strVal(merged.Lang, fallbackLang),
		InitPrompt:     strVal(merged.InitPrompt, ""),
		Translate:      boolVal(merged.Translate, false),
		NThreads:       clampInt32(intVal(merged.NThreads, fallbackNThreads), minThreads, maxThreads),
		Temperature:    float32(floatVal(merged.Temperature, fallbackTemperature)),
		WordTimestamps: boolVal(merged.WordTimestamps, false),
		MaxTextCtx:     clampInt32(intVal(merged.MaxTextCtx, 0), 0, maxLengthCap),
		MaxSentenceLen: clampInt32(intVal(merged.MaxSentenceLen, 0), 0, maxLengthCap),
	}
	if boolVal(merged.VadEnabled, false) {
		p.Vad = &engine.VadParams{
			Threshold:    float32(floatVal(merged.VadThreshold, defaultVadThreshold)),
			MinSpeechMs:  clampInt32(intVal(merged.VadMinSpeechMs, defaultVadMinSpeechMs), 0, maxLengthCap),
			MinSilenceMs: clampInt32(intVal(merged.VadMinSilenceMs, defaultVadMinSilenceMs), 0, maxLengthCap),
			PadMs:        clampInt32(intVal(merged.VadPadMs, defaultVadPadMs), 0, maxLengthCap),
		}
	}
	// Diarization parameters are resolved here; the executor attaches
	// the auxiliary model paths after checking they exist on disk.
	if boolVal(merged.Diarize, false) {
		p.Diarize = &engine.DiarizeParams{
			Threshold:   float32(floatVal(merged.DiarizeThreshold, defaultDiarizeThreshold)),
			MaxSpeakers: clampInt32(intVal(merged.MaxSpeakers, 0), 0, maxLengthCap),
		}
	}
	return p, nil
}

func strVal(p *string, def string) string {
	if p != nil {
		return *p
	}
	return def
}

func boolVal(p *bool, def bool) bool {
	if p != nil {
		return *p
	}
	return def
}

func intVal(p *int, def int) int {
	if p != nil {
		return *p
	}
	return def
}

func floatVal(p *float64, def float64) float64 {
	if p != nil {
		return *p
	}
	return def
}

func clampInt32(v, lo, hi int) int32 {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return int32(v)
}
