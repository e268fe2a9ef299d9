package transcription

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"still-go/internal/fallback"
	"still-go/internal/logger"
	"still-go/internal/types"
)

// Recognizer is the primary speech service.
type Recognizer interface {
	Recognize(ctx context.Context, path string) (string, error)
}

// Transcriber is the secondary, generative transcription service.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Reencoder normalizes audio before the primary tier. Failures are tolerated.
type Reencoder interface {
	ToPCM16kMono(ctx context.Context, input string) (string, error)
}

type Orchestrator struct {
	speech    Recognizer
	reencoder Reencoder
	secondary Transcriber
	timeout   time.Duration
	log       *logrus.Entry
}

type Option func(*Orchestrator)

// WithSpeech enables the primary tier. Pass only a configured client.
func WithSpeech(r Recognizer) Option { return func(o *Orchestrator) { o.speech = r } }

func WithReencoder(r Reencoder) Option { return func(o *Orchestrator) { o.reencoder = r } }

// WithSecondary enables the secondary tier.
func WithSecondary(t Transcriber) Option { return func(o *Orchestrator) { o.secondary = t } }

func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func NewOrchestrator(log *logger.Logger, opts ...Option) *Orchestrator {
	if log == nil {
		log = logger.Discard()
	}
	o := &Orchestrator{
		timeout: 100 * time.Second,
		log:     log.Component("transcription"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NewArtifact stats path and builds the metadata the fallback selector needs.
func NewArtifact(path string) (types.AudioArtifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return types.AudioArtifact{}, fmt.Errorf("stat artifact: %w", err)
	}
	return types.AudioArtifact{
		Path:       path,
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
		BaseName:   filepath.Base(path),
	}, nil
}

// Transcribe always returns non-empty text. Tiers run strictly in order, once each.
func (o *Orchestrator) Transcribe(ctx context.Context, a types.AudioArtifact) types.TranscriptionResult {
	res, _ := o.Trace(ctx, a)
	return res
}

// Trace is Transcribe plus the outcome of every tier that was attempted.
func (o *Orchestrator) Trace(ctx context.Context, a types.AudioArtifact) (types.TranscriptionResult, []Outcome) {
	log := o.log.WithFields(logrus.Fields{
		"base_name": a.BaseName,
		"size":      a.Size,
	})

	tiers := []struct {
		tier types.Tier
		run  func(context.Context, types.AudioArtifact) (string, error)
	}{
		{types.TierPrimary, o.primary},
		{types.TierSecondary, o.secondaryTier},
	}

	outcomes := make([]Outcome, 0, len(tiers)+1)
	for _, t := range tiers {
		out := o.attempt(ctx, t.tier, a, t.run)
		outcomes = append(outcomes, out)
		if out.OK() {
			log.WithField("tier", t.tier).Info("transcription succeeded")
			return types.TranscriptionResult{Text: out.Text, Tier: t.tier}, outcomes
		}
		log.WithFields(logrus.Fields{
			"tier": t.tier,
			"kind": out.Failure.Kind,
		}).WithError(out.Failure.Err).Warn("transcription tier failed")
	}

	text := fallback.Select(a.Size, a.ModifiedAt, a.BaseName)
	outcomes = append(outcomes, Outcome{Tier: types.TierFallback, Text: text})
	log.WithFields(logrus.Fields{
		"tier":   types.TierFallback,
		"bucket": fallback.BucketFor(a.Size),
	}).Info("using deterministic fallback text")
	return types.TranscriptionResult{Text: text, Tier: types.TierFallback}, outcomes
}

// attempt runs one tier and converts every way it can go wrong, panics included, into an Outcome.
func (o *Orchestrator) attempt(ctx context.Context, tier types.Tier, a types.AudioArtifact,
	run func(context.Context, types.AudioArtifact) (string, error)) (out Outcome) {
	out.Tier = tier
	defer func() {
		if r := recover(); r != nil {
			out.Text = ""
			out.Failure = &Failure{Tier: tier, Kind: ProviderError, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	text, err := run(ctx, a)
	if err != nil {
		out.Failure = classify(tier, err)
		return out
	}
	text = strings.TrimSpace(text)
	if text == "" {
		out.Failure = &Failure{Tier: tier, Kind: NoSignal, Err: ErrNoSpeech}
		return out
	}
	out.Text = text
	return out
}

func (o *Orchestrator) primary(ctx context.Context, a types.AudioArtifact) (string, error) {
	if o.speech == nil {
		return "", ErrNotConfigured
	}
	if err := usable(a); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	target := a.Path
	if o.reencoder != nil {
		wav, err := o.reencoder.ToPCM16kMono(ctx, a.Path)
		if err != nil {
			o.log.WithError(err).Warn("re-encode failed, sending original audio")
		} else {
			target = wav
			defer o.cleanup(wav)
		}
	}

	return o.speech.Recognize(ctx, target)
}

func (o *Orchestrator) secondaryTier(ctx context.Context, a types.AudioArtifact) (string, error) {
	if o.secondary == nil {
		return "", ErrNotConfigured
	}
	if err := usable(a); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return o.secondary.Transcribe(ctx, a.Path)
}

func (o *Orchestrator) cleanup(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		o.log.WithFields(logrus.Fields{
			"kind": ResourceCleanupFailure,
			"path": path,
		}).WithError(err).Error("could not delete re-encoded audio")
	}
}

// usable rejects artifacts with nothing on disk to send.
func usable(a types.AudioArtifact) error {
	if a.Path == "" || a.Size <= 0 {
		return ErrEmptyArtifact
	}
	info, err := os.Stat(a.Path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmptyArtifact, err)
	}
	if info.Size() == 0 {
		return ErrEmptyArtifact
	}
	return nil
}
