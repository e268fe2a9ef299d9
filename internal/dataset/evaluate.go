package dataset

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"still-go/internal/logger"
	"still-go/internal/reflection"
	"still-go/internal/types"
)

type Generator interface {
	Generate(ctx context.Context, transcript string) (types.ReflectionRecord, error)
}

// Evaluate generates a reflection for every entry, one at a time.
// It stops early only when ctx is canceled.
func Evaluate(ctx context.Context, gen Generator, entries []types.TranscriptEntry, log *logger.Logger) []types.EvalResult {
	if log == nil {
		log = logger.Discard()
	}
	elog := log.Component("dataset.eval")

	out := make([]types.EvalResult, 0, len(entries))
	for _, e := range entries {
		if ctx.Err() != nil {
			elog.WithError(ctx.Err()).Warn("evaluation interrupted")
			break
		}
		start := time.Now()
		rec, err := gen.Generate(ctx, e.Transcript)
		res := types.EvalResult{
			Entry:      e,
			Record:     rec,
			Fallback:   err != nil,
			Reason:     reflection.FailureReason(err),
			DurationMs: time.Since(start).Milliseconds(),
		}
		elog.WithFields(logrus.Fields{
			"row":         e.Row,
			"id":          e.ID,
			"fallback":    res.Fallback,
			"reason":      res.Reason,
			"confidence":  rec.Confidence,
			"duration_ms": res.DurationMs,
		}).Info("row evaluated")
		out = append(out, res)
	}
	return out
}
