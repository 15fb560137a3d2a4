package manager

import (
	"testing"

	"whisperd/pkg/types"
)

func TestResolveOptionsPrecedence(t *testing.T) {
	cases := []struct {
		name     string
		defaults types.Options
		module   types.Options
		task     types.Options
		want     int32 // resolved NThreads
	}{
		{"defaults only", types.Options{NThreads: intPtr(1)}, types.Options{}, types.Options{}, 1},
		{"module overrides defaults", types.Options{NThreads: intPtr(1)}, types.Options{NThreads: intPtr(2)}, types.Options{}, 2},
		{"task overrides defaults", types.Options{NThreads: intPtr(1)}, types.Options{}, types.Options{NThreads: intPtr(3)}, 3},
		{"task overrides module", types.Options{}, types.Options{NThreads: intPtr(2)}, types.Options{NThreads: intPtr(3)}, 3},
		{"absent layers keep lower value", types.Options{NThreads: intPtr(7)}, types.Options{Lang: strPtr("de")}, types.Options{Translate: boolPtr(true)}, 7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := resolveOptions(tc.defaults, tc.module, tc.task, "/tmp/a.wav")
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if p.NThreads != tc.want {
				t.Fatalf("n_threads=%d want %d", p.NThreads, tc.want)
			}
		})
	}
}

func TestResolveOptionsFieldIndependence(t *testing.T) {
	defaults := types.Options{Lang: strPtr("en"), NThreads: intPtr(8), Temperature: f64Ptr(0.2)}
	task := types.Options{Lang: strPtr("fr")} // only lang set at the top layer
	p, err := resolveOptions(defaults, types.Options{}, task, "/tmp/a.wav")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.Lang != "fr" {
		t.Fatalf("lang=%q want fr", p.Lang)
	}
	// fields the higher layer left unset must survive untouched
	if p.NThreads != 8 {
		t.Fatalf("n_threads=%d want 8", p.NThreads)
	}
	if p.Temperature != 0.2 {
		t.Fatalf("temperature=%v want 0.2", p.Temperature)
	}
}

func TestResolveOptionsIdempotent(t *testing.T) {
	defaults := types.Options{Lang: strPtr("en"), MaxTextCtx: intPtr(100)}
	a, err := resolveOptions(defaults, types.Options{}, types.Options{}, "/tmp/a.wav")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	b, err := resolveOptions(defaults, types.Options{}, types.Options{}, "/tmp/a.wav")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if a != b {
		t.Fatalf("resolve not deterministic: %+v vs %+v", a, b)
	}
	// inputs must not be mutated
	if *defaults.MaxTextCtx != 100 {
		t.Fatalf("defaults mutated: %d", *defaults.MaxTextCtx)
	}
}

func TestResolveOptionsEmptyPath(t *testing.T) {
	_, err := resolveOptions(types.Options{}, types.Options{}, types.Options{}, "  ")
	if err == nil || !IsInvalidRequest(err) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

func TestResolveOptionsFallbacks(t *testing.T) {
	p, err := resolveOptions(types.Options{}, types.Options{}, types.Options{}, "/tmp/a.wav")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.Lang != "en" || p.NThreads != 4 {
		t.Fatalf("fallbacks not applied: lang=%q threads=%d", p.Lang, p.NThreads)
	}
	if p.Temperature < 0.39 || p.Temperature > 0.41 {
		t.Fatalf("temperature fallback=%v", p.Temperature)
	}
	if p.Diarize != nil || p.Vad != nil {
		t.Fatalf("diarize/vad should be nil by default")
	}
}

func TestResolveOptionsClamping(t *testing.T) {
	task := types.Options{
		NThreads:       intPtr(100000),
		MaxTextCtx:     intPtr(5_000_000),
		MaxSentenceLen: intPtr(-3),
	}
	p, err := resolveOptions(types.Options{}, types.Options{}, task, "/tmp/a.wav")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.NThreads != maxThreads {
		t.Fatalf("threads=%d want clamp to %d", p.NThreads, maxThreads)
	}
	if p.MaxTextCtx != maxLengthCap {
		t.Fatalf("max_text_ctx=%d want clamp to %d", p.MaxTextCtx, maxLengthCap)
	}
	if p.MaxSentenceLen != 0 {
		t.Fatalf("max_sentence_len=%d want clamp to 0", p.MaxSentenceLen)
	}
}

func TestResolveOptionsVadAndDiarize(t *testing.T) {
	task := types.Options{
		VadEnabled:       boolPtr(true),
		VadThreshold:     f64Ptr(0.7),
		Diarize:          boolPtr(true),
		MaxSpeakers:      intPtr(3),
		DiarizeThreshold: f64Ptr(0.6),
	}
	p, err := resolveOptions(types.Options{}, types.Options{}, task, "/tmp/a.wav")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.Vad == nil || p.Vad.Threshold != 0.7 {
		t.Fatalf("vad not resolved: %+v", p.Vad)
	}
	if p.Vad.MinSpeechMs != defaultVadMinSpeechMs {
		t.Fatalf("vad min speech=%d want default %d", p.Vad.MinSpeechMs, defaultVadMinSpeechMs)
	}
	if p.Diarize == nil || p.Diarize.MaxSpeakers != 3 || p.Diarize.Threshold != 0.6 {
		t.Fatalf("diarize not resolved: %+v", p.Diarize)
	}
	// aux paths are attached later by the executor, never here
	if p.Diarize.SegmentModelPath != "" || p.Diarize.EmbeddingModelPath != "" {
		t.Fatalf("aux paths set too early: %+v", p.Diarize)
	}
}

func TestMergeOptionsDoesNotMutateInputs(t *testing.T) {
	base := types.Options{Lang: strPtr("en")}
	over := types.Options{Lang: strPtr("fr")}
	_ = mergeOptions(base, over)
	if *base.Lang != "en" || *over.Lang != "fr" {
		t.Fatalf("inputs mutated: base=%q over=%q", *base.Lang, *over.Lang)
	}
}
