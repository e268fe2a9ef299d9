package types

import "time"

// AudioArtifact is a transient handle to one uploaded recording. The caller owns it
// and removes the file once the pipeline returns.
type AudioArtifact struct {
	Path       string    `json:"-"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
	BaseName   string    `json:"base_name"`
}

type Tier string

const (
	TierPrimary   Tier = "primary_service"
	TierSecondary Tier = "secondary_service"
	TierFallback  Tier = "deterministic_fallback"
)

// TranscriptionResult always carries non-empty text.
type TranscriptionResult struct {
	Text string `json:"text"`
	Tier Tier   `json:"tier"`
}

type Flashcard struct {
	Title   string   `json:"title"`
	Bullets []string `json:"bullets"`
}

// ReflectionRecord is the response body of /process-audio. Field names are part of the
// contract with the web client.
type ReflectionRecord struct {
	Reflection string    `json:"reflection"`
	Flashcard  Flashcard `json:"flashcard"`
	Confidence float64   `json:"confidence"`
}

const silenceReflection = "You spoke about something that has been sitting with you, and for now it does not need to be " +
	"turned into clearer language or shaped into meaning. This moment can end here, without carrying " +
	"anything forward."

// SilenceFallback returns the fixed record used whenever no usable generated output exists.
// A fresh value is returned so callers cannot mutate a shared bullets slice.
func SilenceFallback() ReflectionRecord {
	return ReflectionRecord{
		Reflection: silenceReflection,
		Flashcard: Flashcard{
			Title:   "Held",
			Bullets: []string{"Spoken", "Received", "Released"},
		},
		Confidence: 0.1,
	}
}

// IsSilenceFallback reports whether r is the fixed fallback record.
func IsSilenceFallback(r ReflectionRecord) bool {
	fb := SilenceFallback()
	if r.Reflection != fb.Reflection || r.Flashcard.Title != fb.Flashcard.Title || r.Confidence != fb.Confidence {
		return false
	}
	if len(r.Flashcard.Bullets) != len(fb.Flashcard.Bullets) {
		return false
	}
	for i := range fb.Flashcard.Bullets {
		if r.Flashcard.Bullets[i] != fb.Flashcard.Bullets[i] {
			return false
		}
	}
	return true
}
