package aggregator

import "still-go/internal/types"

type Insight struct {
	Rows           int            `json:"rows"`
	Fallbacks      int            `json:"fallbacks"`
	FallbackRate   float64        `json:"fallback_rate"`
	MeanConfidence float64        `json:"mean_confidence"`
	MeanDurationMs float64        `json:"mean_duration_ms"`
	ReasonCounts   map[string]int `json:"reason_counts"`
	TitleCounts    map[string]int `json:"title_counts"`
}

// Aggregate summarizes an evaluation run. Mean confidence only counts generated records.
func Aggregate(results []types.EvalResult) Insight {
	ins := Insight{
		Rows:         len(results),
		ReasonCounts: map[string]int{},
		TitleCounts:  map[string]int{},
	}
	var confSum float64
	var durSum int64
	generated := 0
	for _, r := range results {
		durSum += r.DurationMs
		if r.Fallback {
			ins.Fallbacks++
			reason := r.Reason
			if reason == "" {
				reason = "unknown"
			}
			ins.ReasonCounts[reason]++
			continue
		}
		generated++
		confSum += r.Record.Confidence
		if r.Record.Flashcard.Title != "" {
			ins.TitleCounts[r.Record.Flashcard.Title]++
		}
	}
	if ins.Rows > 0 {
		ins.FallbackRate = float64(ins.Fallbacks) / float64(ins.Rows)
		ins.MeanDurationMs = float64(durSum) / float64(ins.Rows)
	}
	if generated > 0 {
		ins.MeanConfidence = confSum / float64(generated)
	}
	return ins
}
