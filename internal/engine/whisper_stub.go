//go:build !whisper

package engine

// This file provides a no-CGO stub for the whisper engine. It is
// compiled when the 'whisper' build tag is NOT set, keeping default
// builds and CI CGO-free. The real adapter lives in whisper_cgo.go
// (tagged 'whisper').

import "errors"

// ErrNotBuilt is returned by the stub engine so callers fail fast
// instead of getting mocked transcripts in production binaries.
var ErrNotBuilt = errors.New("whisper support not built (missing 'whisper' build tag)")

type whisperEngine struct{}

// NewWhisperEngine returns the stub engine. Every NewContext call fails
// with ErrNotBuilt.
func NewWhisperEngine() Engine { return whisperEngine{} }

func (whisperEngine) NewContext(modelPath string) (ModelContext, error) {
	return nil, ErrNotBuilt
}
