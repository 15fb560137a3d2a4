//go:build whisper

package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/go-audio/wav"

	"whisperd/pkg/types"
)

type whisperEngine struct{}

// NewWhisperEngine returns the in-process whisper.cpp engine.
func NewWhisperEngine() Engine { return whisperEngine{} }

// whisperContext owns one loaded whisper model.
type whisperContext struct {
	model whisper.Model
}

func (whisperEngine) NewContext(modelPath string) (ModelContext, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, err
	}
	return &whisperContext{model: m}, nil
}

func (c *whisperContext) Transcribe(ctx context.Context, params Params, progress chan<- int) (types.Transcript, error) {
	if c.model == nil {
		return types.Transcript{}, errors.New("whisper model not initialized")
	}
	if params.Diarize != nil {
		// Speaker attribution needs the external segmentation/embedding
		// pipeline; the in-process adapter only does transcription.
		return types.Transcript{}, errors.New("diarization not supported by the in-process whisper adapter")
	}

	samples, err := decodeWAV(params.Path)
	if err != nil {
		return types.Transcript{}, err
	}

	wctx, err := c.model.NewContext()
	if err != nil {
		return types.Transcript{}, err
	}
	if params.Lang != "" {
		if err := wctx.SetLanguage(params.Lang); err != nil {
			return types.Transcript{}, err
		}
	}
	wctx.SetTranslate(params.Translate)
	if params.NThreads > 0 {
		wctx.SetThreads(uint(params.NThreads))
	}
	if params.InitPrompt != "" {
		wctx.SetInitialPrompt(params.InitPrompt)
	}
	wctx.SetTokenTimestamps(params.WordTimestamps)
	if params.MaxSentenceLen > 0 {
		wctx.SetMaxSegmentLength(uint(params.MaxSentenceLen))
	}
	if params.MaxTextCtx > 0 {
		wctx.SetMaxContext(int(params.MaxTextCtx))
	}

	encoderBegin := func() bool { return ctx.Err() == nil }
	onProgress := func(pct int) { ReportProgress(progress, pct) }

	if err := wctx.Process(samples, encoderBegin, nil, onProgress); err != nil {
		if ctx.Err() != nil {
			return types.Transcript{}, ctx.Err()
		}
		return types.Transcript{}, err
	}

	var out types.Transcript
	var texts []string
	for {
		seg, err := wctx.NextSegment()
		if err != nil {
			break
		}
		text := strings.TrimSpace(seg.Text)
		out.Segments = append(out.Segments, types.Segment{
			Start: seg.Start.Seconds(),
			Stop:  seg.End.Seconds(),
			Text:  text,
		})
		if text != "" {
			texts = append(texts, text)
		}
	}
	out.Text = strings.Join(texts, " ")
	return out, nil
}

func (c *whisperContext) Close() error {
	if c.model != nil {
		err := c.model.Close()
		c.model = nil
		return err
	}
	return nil
}

// decodeWAV reads a PCM WAV file and converts it to the mono float32
// sample stream whisper.cpp expects (16 kHz input is assumed; callers
// are responsible for resampling upstream).
func decodeWAV(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	pcm := buf.AsFloat32Buffer()
	if dec.NumChans <= 1 {
		return pcm.Data, nil
	}
	// Downmix interleaved channels by averaging.
	ch := int(dec.NumChans)
	mono := make([]float32, 0, len(pcm.Data)/ch)
	for i := 0; i+ch <= len(pcm.Data); i += ch {
		var sum float32
		for j := 0; j < ch; j++ {
			sum += pcm.Data[i+j]
		}
		mono = append(mono, sum/float32(ch))
	}
	return mono, nil
}
