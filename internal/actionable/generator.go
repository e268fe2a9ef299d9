package actionable

import (
	"fmt"
	"sort"

	"still-go/internal/aggregator"
)

type ActionCard struct {
	Insight string `json:"insight"`
	Action  string `json:"action"`
	Impact  string `json:"impact"`
}

// Generate turns evaluation stats into one operator-facing recommendation.
func Generate(ins aggregator.Insight) ActionCard {
	if ins.Rows == 0 {
		return ActionCard{
			Insight: "No transcripts evaluated",
			Action:  "Check the workbook has a transcript column with data",
			Impact:  "Nothing to measure",
		}
	}
	if ins.FallbackRate >= 0.35 {
		return ActionCard{
			Insight: fmt.Sprintf("High silence fallback rate (%.0f%%), mostly %q", ins.FallbackRate*100, topReason(ins.ReasonCounts)),
			Action:  "Verify OPENAI_* settings and deployment quota; inspect /debug-azure",
			Impact:  "Users receive the generic Held card instead of a reflection",
		}
	}
	if ins.MeanConfidence < 0.5 {
		return ActionCard{
			Insight: fmt.Sprintf("Low mean confidence (%.2f)", ins.MeanConfidence),
			Action:  "Review transcripts for quality; consider the primary speech tier settings",
			Impact:  "Reflections may not match what users said",
		}
	}
	return ActionCard{
		Insight: fmt.Sprintf("Healthy run: %d rows, mean confidence %.2f", ins.Rows, ins.MeanConfidence),
		Action:  "No change needed",
		Impact:  "Low immediate intervention",
	}
}

func topReason(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) == 0 {
		return "unknown"
	}
	return keys[0]
}
