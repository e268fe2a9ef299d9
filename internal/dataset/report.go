package dataset

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"still-go/internal/actionable"
	"still-go/internal/aggregator"
	"still-go/internal/types"
)

const (
	resultsSheet = "Reflections"
	summarySheet = "Summary"
)

var resultsHeader = []interface{}{
	"Row", "ID", "Transcript", "Reflection", "Title",
	"Bullet 1", "Bullet 2", "Bullet 3", "Confidence", "Fallback", "Reason", "Duration ms",
}

// WriteReport saves one row per result plus a summary sheet.
func WriteReport(path string, results []types.EvalResult, ins aggregator.Insight, card actionable.ActionCard) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(resultsSheet, "A1", &resultsHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range results {
		bullets := make([]string, 3)
		copy(bullets, r.Record.Flashcard.Bullets)
		row := []interface{}{
			r.Entry.Row, r.Entry.ID, r.Entry.Transcript, r.Record.Reflection, r.Record.Flashcard.Title,
			bullets[0], bullets[1], bullets[2], r.Record.Confidence, r.Fallback, r.Reason, r.DurationMs,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(resultsSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}
	summary := [][]interface{}{
		{"Rows", ins.Rows},
		{"Fallbacks", ins.Fallbacks},
		{"Fallback rate", ins.FallbackRate},
		{"Mean confidence", ins.MeanConfidence},
		{"Mean duration ms", ins.MeanDurationMs},
		{"Insight", card.Insight},
		{"Action", card.Action},
		{"Impact", card.Impact},
	}
	for _, k := range sortedKeys(ins.ReasonCounts) {
		summary = append(summary, []interface{}{"Reason: " + k, ins.ReasonCounts[k]})
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
