package extractor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"still-go/internal/types"
)

// ErrParseFailure is returned when no schema-valid record can be extracted.
var ErrParseFailure = errors.New("parse failure")

// wireRecord uses pointers so a missing field is distinguishable from a zero value.
type wireRecord struct {
	Reflection *string `json:"reflection"`
	Flashcard  *struct {
		Title   *string  `json:"title"`
		Bullets []string `json:"bullets"`
	} `json:"flashcard"`
	Confidence *float64 `json:"confidence"`
}

// Parse extracts a ReflectionRecord from model output. It tries the whole text after
// removing a surrounding code fence, then the first balanced {...} block. No repair is
// attempted on field values.
func Parse(raw string) (types.ReflectionRecord, error) {
	cleaned := StripFence(raw)
	if cleaned == "" {
		return types.ReflectionRecord{}, fmt.Errorf("%w: empty input", ErrParseFailure)
	}

	rec, err := strictParse(cleaned)
	if err == nil {
		return rec, nil
	}
	directErr := err

	block := FirstObject(cleaned)
	if block == "" {
		return types.ReflectionRecord{}, fmt.Errorf("%w: no balanced object (direct parse: %v)", ErrParseFailure, directErr)
	}
	if block == cleaned {
		return types.ReflectionRecord{}, fmt.Errorf("%w: %v", ErrParseFailure, directErr)
	}

	rec, err = strictParse(block)
	if err != nil {
		return types.ReflectionRecord{}, fmt.Errorf("%w: extracted object: %v", ErrParseFailure, err)
	}
	return rec, nil
}

// StripFence trims whitespace and one surrounding ``` fence, with or without a language tag.
func StripFence(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// anything between the opening fence and the newline is a language tag
		if tag := strings.TrimSpace(s[:nl]); !strings.ContainsAny(tag, "{}") {
			s = s[nl+1:]
		}
	} else if tag := strings.TrimLeft(s, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"); tag != s {
		s = tag
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// FirstObject returns the first '{' through its matching '}' using depth counting.
// Braces inside JSON string literals are ignored. It returns "" when the first object is
// never closed.
func FirstObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func strictParse(s string) (types.ReflectionRecord, error) {
	var w wireRecord
	if err := json.Unmarshal([]byte(s), &w); err != nil {
		return types.ReflectionRecord{}, err
	}
	return w.validate()
}

func (w wireRecord) validate() (types.ReflectionRecord, error) {
	switch {
	case w.Reflection == nil:
		return types.ReflectionRecord{}, errors.New("missing reflection")
	case strings.TrimSpace(*w.Reflection) == "":
		return types.ReflectionRecord{}, errors.New("empty reflection")
	case w.Flashcard == nil:
		return types.ReflectionRecord{}, errors.New("missing flashcard")
	case w.Flashcard.Title == nil || strings.TrimSpace(*w.Flashcard.Title) == "":
		return types.ReflectionRecord{}, errors.New("missing flashcard title")
	case len(w.Flashcard.Bullets) != 3:
		return types.ReflectionRecord{}, fmt.Errorf("flashcard has %d bullets, want 3", len(w.Flashcard.Bullets))
	case w.Confidence == nil:
		return types.ReflectionRecord{}, errors.New("missing confidence")
	case *w.Confidence < 0 || *w.Confidence > 1:
		return types.ReflectionRecord{}, fmt.Errorf("confidence %v out of range", *w.Confidence)
	}

	bullets := make([]string, len(w.Flashcard.Bullets))
	copy(bullets, w.Flashcard.Bullets)
	return types.ReflectionRecord{
		Reflection: *w.Reflection,
		Flashcard: types.Flashcard{
			Title:   *w.Flashcard.Title,
			Bullets: bullets,
		},
		Confidence: *w.Confidence,
	}, nil
}
