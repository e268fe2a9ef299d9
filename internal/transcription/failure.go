package transcription

import (
	"errors"
	"fmt"

	"still-go/internal/types"
)

// FailureKind classifies why a tier produced no text.
type FailureKind string

const (
	// ProviderUnavailable: credentials or configuration missing.
	ProviderUnavailable FailureKind = "provider_unavailable"
	// ProviderError: the call failed, timed out, was canceled, or panicked.
	ProviderError FailureKind = "provider_error"
	// NoSignal: the service answered but had nothing usable.
	NoSignal FailureKind = "no_signal"
	// ResourceCleanupFailure is only ever logged.
	ResourceCleanupFailure FailureKind = "resource_cleanup_failure"
)

var (
	ErrNotConfigured = errors.New("service not configured")
	ErrNoSpeech      = errors.New("no speech recognized")
	ErrEmptyArtifact = errors.New("audio artifact is empty or missing")
)

// Failure is the error side of a tier outcome.
type Failure struct {
	Tier types.Tier
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	if f == nil {
		return "transcription failure"
	}
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Tier, f.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", f.Tier, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}

// KindOf extracts the failure kind from err, if it carries one.
func KindOf(err error) (FailureKind, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return "", false
}

// classify maps a raw tier error onto a failure kind.
func classify(tier types.Tier, err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		cp := *f
		cp.Tier = tier
		return &cp
	}
	switch {
	case errors.Is(err, ErrNotConfigured):
		return &Failure{Tier: tier, Kind: ProviderUnavailable, Err: err}
	case errors.Is(err, ErrNoSpeech), errors.Is(err, ErrEmptyArtifact):
		return &Failure{Tier: tier, Kind: NoSignal, Err: err}
	default:
		return &Failure{Tier: tier, Kind: ProviderError, Err: err}
	}
}

// Outcome is what a single tier reports: text, or a failure.
type Outcome struct {
	Tier    types.Tier
	Text    string
	Failure *Failure
}

func (o Outcome) OK() bool { return o.Failure == nil && o.Text != "" }
