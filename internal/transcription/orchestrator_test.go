package transcription

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"still-go/internal/fallback"
	"still-go/internal/types"
)

type fakeRecognizer struct {
	text    string
	err     error
	panics  bool
	block   bool
	calls   int
	gotPath string
}

func (f *fakeRecognizer) Recognize(ctx context.Context, path string) (string, error) {
	f.calls++
	f.gotPath = path
	if f.panics {
		panic("sdk exploded")
	}
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.text, f.err
}

type fakeTranscriber struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	f.calls++
	return f.text, f.err
}

// fakeReencoder writes <input>.wav, or returns out when set.
type fakeReencoder struct {
	err error
	out string
}

func (f *fakeReencoder) ToPCM16kMono(ctx context.Context, input string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.out != "" {
		return f.out, nil
	}
	out := input + ".wav"
	return out, os.WriteFile(out, []byte("RIFF"), 0o600)
}

func writeArtifact(t *testing.T, size int) types.AudioArtifact {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio_test.webm")
	if err := os.WriteFile(path, make([]byte, size), 0o600); err != nil {
		t.Fatalf("writing artifact: %v", err)
	}
	a, err := NewArtifact(path)
	if err != nil {
		t.Fatalf("NewArtifact: %v", err)
	}
	return a
}

func TestTranscribe_PrimarySucceeds(t *testing.T) {
	a := writeArtifact(t, 2048)
	speech := &fakeRecognizer{text: "  I have been tired for a long time  "}
	secondary := &fakeTranscriber{text: "unused"}

	o := NewOrchestrator(nil, WithSpeech(speech), WithSecondary(secondary))
	got := o.Transcribe(context.Background(), a)

	if got.Tier != types.TierPrimary {
		t.Errorf("Tier = %s, want %s", got.Tier, types.TierPrimary)
	}
	if got.Text != "I have been tired for a long time" {
		t.Errorf("Text = %q", got.Text)
	}
	if secondary.calls != 0 {
		t.Error("secondary tier should not run after primary success")
	}
}

func TestTranscribe_PrimaryNoMatchFallsToSecondary(t *testing.T) {
	a := writeArtifact(t, 2048)
	speech := &fakeRecognizer{err: ErrNoSpeech}
	secondary := &fakeTranscriber{text: "words from the second service"}

	o := NewOrchestrator(nil, WithSpeech(speech), WithSecondary(secondary))
	res, outcomes := o.Trace(context.Background(), a)

	if res.Tier != types.TierSecondary || res.Text != "words from the second service" {
		t.Errorf("unexpected result %+v", res)
	}
	if len(outcomes) != 2 {
		t.Fatalf("len(outcomes) = %d, want 2", len(outcomes))
	}
	if outcomes[0].Failure == nil || outcomes[0].Failure.Kind != NoSignal {
		t.Errorf("primary outcome = %+v, want NoSignal failure", outcomes[0])
	}
	if speech.calls != 1 || secondary.calls != 1 {
		t.Errorf("each tier should run exactly once, got %d and %d", speech.calls, secondary.calls)
	}
}

func TestTranscribe_AllTiersFailUsesFallback(t *testing.T) {
	a := writeArtifact(t, 2048)
	speech := &fakeRecognizer{err: errors.New("401 unauthorized")}
	secondary := &fakeTranscriber{err: errors.New("transcription unsupported for this account")}

	o := NewOrchestrator(nil, WithSpeech(speech), WithSecondary(secondary))
	res, outcomes := o.Trace(context.Background(), a)

	if res.Tier != types.TierFallback {
		t.Fatalf("Tier = %s, want fallback", res.Tier)
	}
	want := fallback.Select(a.Size, a.ModifiedAt, a.BaseName)
	if res.Text != want {
		t.Errorf("Text = %q, want %q", res.Text, want)
	}
	for _, out := range outcomes[:2] {
		if out.Failure == nil || out.Failure.Kind != ProviderError {
			t.Errorf("outcome %+v, want ProviderError", out)
		}
	}
}

func TestTranscribe_UnconfiguredVeryShortArtifact(t *testing.T) {
	a := types.AudioArtifact{
		Path:       "/nonexistent/audio_a.webm",
		Size:       10000,
		ModifiedAt: time.Unix(1700000000, 0),
		BaseName:   "audio_a.webm",
	}

	o := NewOrchestrator(nil)
	first, outcomes := o.Trace(context.Background(), a)
	second := o.Transcribe(context.Background(), a)

	if first.Tier != types.TierFallback {
		t.Fatalf("Tier = %s, want fallback", first.Tier)
	}
	if first.Text != second.Text {
		t.Errorf("fallback not reproducible: %q vs %q", first.Text, second.Text)
	}
	if first.Text != fallback.Candidates(fallback.BucketVeryShort)[1] {
		t.Errorf("Text = %q, want very short candidate 1", first.Text)
	}
	for _, out := range outcomes[:2] {
		if out.Failure == nil || out.Failure.Kind != ProviderUnavailable {
			t.Errorf("outcome %+v, want ProviderUnavailable", out)
		}
	}
}

func TestTranscribe_ZeroLengthAndMissingArtifacts(t *testing.T) {
	speech := &fakeRecognizer{text: "should not be called"}
	o := NewOrchestrator(nil, WithSpeech(speech), WithSecondary(&fakeTranscriber{text: "nor this"}))

	empty := writeArtifact(t, 0)
	missing := types.AudioArtifact{Path: filepath.Join(t.TempDir(), "gone.webm"), Size: 5000, BaseName: "gone.webm"}

	for name, a := range map[string]types.AudioArtifact{"empty": empty, "missing": missing} {
		t.Run(name, func(t *testing.T) {
			res := o.Transcribe(context.Background(), a)
			if res.Text == "" {
				t.Error("text must never be empty")
			}
			if res.Tier != types.TierFallback {
				t.Errorf("Tier = %s, want fallback", res.Tier)
			}
		})
	}
	if speech.calls != 0 {
		t.Errorf("recognizer called %d times for unusable artifacts", speech.calls)
	}
}

func TestTranscribe_PanicInTierIsContained(t *testing.T) {
	a := writeArtifact(t, 2048)
	o := NewOrchestrator(nil, WithSpeech(&fakeRecognizer{panics: true}))

	res, outcomes := o.Trace(context.Background(), a)

	if res.Tier != types.TierFallback {
		t.Errorf("Tier = %s, want fallback", res.Tier)
	}
	if outcomes[0].Failure == nil || outcomes[0].Failure.Kind != ProviderError {
		t.Errorf("primary outcome = %+v, want ProviderError", outcomes[0])
	}
}

func TestTranscribe_PrimaryTimeout(t *testing.T) {
	a := writeArtifact(t, 2048)
	o := NewOrchestrator(nil,
		WithSpeech(&fakeRecognizer{block: true}),
		WithSecondary(&fakeTranscriber{text: "late but fine"}),
		WithTimeout(20*time.Millisecond),
	)

	res := o.Transcribe(context.Background(), a)
	if res.Tier != types.TierSecondary {
		t.Errorf("Tier = %s, want secondary after primary timeout", res.Tier)
	}
}

func TestTranscribe_ReencodedFileRemoved(t *testing.T) {
	a := writeArtifact(t, 2048)
	speech := &fakeRecognizer{text: "hello"}
	o := NewOrchestrator(nil, WithSpeech(speech), WithReencoder(&fakeReencoder{}))

	o.Transcribe(context.Background(), a)

	if speech.gotPath != a.Path+".wav" {
		t.Errorf("recognizer got %q, want re-encoded path", speech.gotPath)
	}
	if _, err := os.Stat(a.Path + ".wav"); !os.IsNotExist(err) {
		t.Errorf("re-encoded file still present: %v", err)
	}
}

func TestTranscribe_ReencodedFileRemovedOnFailure(t *testing.T) {
	a := writeArtifact(t, 2048)
	o := NewOrchestrator(nil,
		WithSpeech(&fakeRecognizer{err: errors.New("canceled")}),
		WithReencoder(&fakeReencoder{}),
	)

	res := o.Transcribe(context.Background(), a)

	if res.Tier != types.TierFallback {
		t.Errorf("Tier = %s", res.Tier)
	}
	if _, err := os.Stat(a.Path + ".wav"); !os.IsNotExist(err) {
		t.Errorf("re-encoded file still present: %v", err)
	}
}

func TestTranscribe_ReencodedFileRemovedOnPanic(t *testing.T) {
	a := writeArtifact(t, 2048)
	o := NewOrchestrator(nil,
		WithSpeech(&fakeRecognizer{panics: true}),
		WithReencoder(&fakeReencoder{}),
	)

	res := o.Transcribe(context.Background(), a)

	if res.Tier != types.TierFallback {
		t.Errorf("Tier = %s", res.Tier)
	}
	if _, err := os.Stat(a.Path + ".wav"); !os.IsNotExist(err) {
		t.Errorf("re-encoded file still present after panic: %v", err)
	}
}

func TestTranscribe_ReencodeFailureUsesOriginal(t *testing.T) {
	a := writeArtifact(t, 2048)
	speech := &fakeRecognizer{text: "hello"}
	o := NewOrchestrator(nil, WithSpeech(speech), WithReencoder(&fakeReencoder{err: errors.New("ffmpeg not found")}))

	res := o.Transcribe(context.Background(), a)

	if res.Tier != types.TierPrimary {
		t.Errorf("Tier = %s, want primary", res.Tier)
	}
	if speech.gotPath != a.Path {
		t.Errorf("recognizer got %q, want original %q", speech.gotPath, a.Path)
	}
}

func TestTranscribe_CleanupFailureDoesNotChangeOutcome(t *testing.T) {
	a := writeArtifact(t, 2048)

	// a non-empty directory cannot be removed with os.Remove
	dir := filepath.Join(t.TempDir(), "stuck.wav")
	if err := os.MkdirAll(filepath.Join(dir, "child"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	o := NewOrchestrator(nil,
		WithSpeech(&fakeRecognizer{text: "still heard"}),
		WithReencoder(&fakeReencoder{out: dir}),
	)
	res := o.Transcribe(context.Background(), a)

	if res.Tier != types.TierPrimary || res.Text != "still heard" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestKindOf(t *testing.T) {
	err := classify(types.TierSecondary, ErrNotConfigured)
	kind, ok := KindOf(err)
	if !ok || kind != ProviderUnavailable {
		t.Errorf("KindOf = %v, %v", kind, ok)
	}
	if !errors.Is(err, ErrNotConfigured) {
		t.Error("failure should unwrap to its cause")
	}
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("plain errors carry no kind")
	}
}

func TestClassify_RetagsExistingFailure(t *testing.T) {
	orig := &Failure{Tier: types.TierPrimary, Kind: NoSignal, Err: ErrNoSpeech}
	wrapped := fmt.Errorf("secondary: %w", orig)

	f := classify(types.TierSecondary, wrapped)

	if f.Tier != types.TierSecondary {
		t.Errorf("Tier = %s, want secondary", f.Tier)
	}
	if f.Kind != NoSignal || !errors.Is(f, ErrNoSpeech) {
		t.Errorf("kind or cause lost: %+v", f)
	}
	if orig.Tier != types.TierPrimary {
		t.Error("classify mutated the original failure")
	}
}
