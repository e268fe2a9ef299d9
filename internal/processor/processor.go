package processor

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"still-go/internal/logger"
	"still-go/internal/types"
)

type Transcriber interface {
	Transcribe(ctx context.Context, a types.AudioArtifact) types.TranscriptionResult
}

type Reflector interface {
	Reflect(ctx context.Context, transcript string) types.ReflectionRecord
}

// Result is returned by Process. Only Reflection goes back to the web client.
type Result struct {
	Transcript string                 `json:"transcript"`
	Tier       types.Tier             `json:"tier"`
	Reflection types.ReflectionRecord `json:"reflection"`
	DurationMs int64                  `json:"duration_ms"`
}

// Processor runs transcription to completion, then generation, for one artifact.
type Processor struct {
	transcriber Transcriber
	reflector   Reflector
	log         *logrus.Entry
}

func New(t Transcriber, r Reflector, log *logger.Logger) *Processor {
	if log == nil {
		log = logger.Discard()
	}
	return &Processor{
		transcriber: t,
		reflector:   r,
		log:         log.Component("processor"),
	}
}

// Process never fails. The caller owns the artifact and deletes it afterwards.
func (p *Processor) Process(ctx context.Context, a types.AudioArtifact) Result {
	start := time.Now()

	tr := p.transcriber.Transcribe(ctx, a)
	rec := p.reflector.Reflect(ctx, tr.Text)

	res := Result{
		Transcript: tr.Text,
		Tier:       tr.Tier,
		Reflection: rec,
		DurationMs: time.Since(start).Milliseconds(),
	}
	p.log.WithFields(logrus.Fields{
		"tier":        res.Tier,
		"transcript":  len(res.Transcript),
		"fallback":    types.IsSilenceFallback(rec),
		"confidence":  rec.Confidence,
		"duration_ms": res.DurationMs,
	}).Info("processed audio")
	return res
}
