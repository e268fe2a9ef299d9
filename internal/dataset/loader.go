package dataset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"still-go/internal/types"
)

var ErrNoTranscriptColumn = errors.New("no transcript column")

// Load reads transcripts from the first sheet, detecting columns by header heuristics.
func Load(path string) ([]types.TranscriptEntry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}

	header := rows[0]
	transcriptIdx := -1
	idIdx := -1
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(l, "transcript") || strings.Contains(l, "text") || strings.Contains(l, "utterance"):
			if transcriptIdx == -1 {
				transcriptIdx = i
			}
		case l == "id" || strings.HasSuffix(l, " id") || strings.HasSuffix(l, "_id"):
			if idIdx == -1 {
				idIdx = i
			}
		}
	}
	// single column sheets are treated as transcripts
	if transcriptIdx == -1 && len(header) == 1 {
		transcriptIdx = 0
	}
	if transcriptIdx == -1 {
		return nil, ErrNoTranscriptColumn
	}

	var out []types.TranscriptEntry
	for i, r := range rows {
		if i == 0 {
			continue
		}
		entry := types.TranscriptEntry{Row: i + 1}
		if transcriptIdx < len(r) {
			entry.Transcript = strings.TrimSpace(r[transcriptIdx])
		}
		if idIdx >= 0 && idIdx < len(r) {
			entry.ID = strings.TrimSpace(r[idIdx])
		}
		// skip blank rows quietly
		if entry.Transcript == "" {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}
