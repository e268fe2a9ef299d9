package types

// TranscriptEntry is one row of an evaluation workbook.
type TranscriptEntry struct {
	Row        int    `json:"row"`
	ID         string `json:"id,omitempty"`
	Transcript string `json:"transcript"`
}

// EvalResult pairs an entry with the record generated for it.
type EvalResult struct {
	Entry      TranscriptEntry  `json:"entry"`
	Record     ReflectionRecord `json:"record"`
	Fallback   bool             `json:"fallback"`
	Reason     string           `json:"reason,omitempty"`
	DurationMs int64            `json:"duration_ms"`
}
