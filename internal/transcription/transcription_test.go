package transcription

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"

	"still-go/internal/config"
)

func writeFile(t *testing.T, name string, body []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestNewSpeechClient_NotConfigured(t *testing.T) {
	_, err := NewSpeechClient(config.SpeechConfig{Key: "k"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestNewSpeechClient_RegionalEndpoint(t *testing.T) {
	c, err := NewSpeechClient(config.SpeechConfig{Key: "k", Region: "eastus"})
	if err != nil {
		t.Fatalf("NewSpeechClient: %v", err)
	}
	if c.endpoint != "https://eastus.stt.speech.microsoft.com" {
		t.Errorf("endpoint = %q", c.endpoint)
	}
	if c.language != "en-US" {
		t.Errorf("language = %q", c.language)
	}
}

func TestSpeechClient_Recognize(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantText string
		wantErr  error
		anyErr   bool
	}{
		{
			name:     "success",
			status:   http.StatusOK,
			body:     `{"RecognitionStatus":"Success","DisplayText":"It has been a long year.","Offset":100,"Duration":2000}`,
			wantText: "It has been a long year.",
		},
		{
			name:    "no match",
			status:  http.StatusOK,
			body:    `{"RecognitionStatus":"NoMatch"}`,
			wantErr: ErrNoSpeech,
		},
		{
			name:    "initial silence",
			status:  http.StatusOK,
			body:    `{"RecognitionStatus":"InitialSilenceTimeout"}`,
			wantErr: ErrNoSpeech,
		},
		{
			name:    "success without text",
			status:  http.StatusOK,
			body:    `{"RecognitionStatus":"Success","DisplayText":"  "}`,
			wantErr: ErrNoSpeech,
		},
		{
			name:   "canceled",
			status: http.StatusOK,
			body:   `{"RecognitionStatus":"Error"}`,
			anyErr: true,
		},
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"error":"bad key"}`,
			anyErr: true,
		},
		{
			name:   "garbage body",
			status: http.StatusOK,
			body:   `not json`,
			anyErr: true,
		},
	}

	audio := writeFile(t, "clip.wav", []byte("RIFF....WAVE"))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := NewSpeechClientWithURL(srv.URL, "key", "en-US", srv.Client())
			text, err := c.Recognize(context.Background(), audio)

			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("err = %v, want %v", err, tt.wantErr)
				}
			case tt.anyErr:
				if err == nil {
					t.Error("expected an error")
				}
			default:
				if err != nil {
					t.Fatalf("Recognize: %v", err)
				}
				if text != tt.wantText {
					t.Errorf("text = %q, want %q", text, tt.wantText)
				}
			}
		})
	}
}

func TestSpeechClient_RequestShape(t *testing.T) {
	audio := writeFile(t, "clip.wav", []byte("RIFF....WAVE"))

	var (
		gotPath, gotKey, gotType, gotLang, gotFormat string
		gotBody                                      []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("Ocp-Apim-Subscription-Key")
		gotType = r.Header.Get("Content-Type")
		gotLang = r.URL.Query().Get("language")
		gotFormat = r.URL.Query().Get("format")
		gotBody, _ = io.ReadAll(r.Body)
		io.WriteString(w, `{"RecognitionStatus":"Success","DisplayText":"ok"}`)
	}))
	defer srv.Close()

	c := NewSpeechClientWithURL(srv.URL+"/", "secret", "en-GB", srv.Client())
	if _, err := c.Recognize(context.Background(), audio); err != nil {
		t.Fatalf("Recognize: %v", err)
	}

	if gotPath != "/speech/recognition/conversation/cognitiveservices/v1" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("subscription key = %q", gotKey)
	}
	if !strings.HasPrefix(gotType, "audio/wav") {
		t.Errorf("content type = %q", gotType)
	}
	if gotLang != "en-GB" || gotFormat != "simple" {
		t.Errorf("query language=%q format=%q", gotLang, gotFormat)
	}
	if string(gotBody) != "RIFF....WAVE" {
		t.Errorf("body = %q", gotBody)
	}
}

func TestSpeechClient_MissingFile(t *testing.T) {
	c := NewSpeechClientWithURL("http://127.0.0.1:0", "key", "", nil)
	if _, err := c.Recognize(context.Background(), filepath.Join(t.TempDir(), "nope.wav")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"a.wav":  "audio/wav; codecs=audio/pcm; samplerate=16000",
		"a.WEBM": "audio/ogg; codecs=opus",
		"a.ogg":  "audio/ogg; codecs=opus",
		"a.m4a":  "application/octet-stream",
	}
	for in, want := range tests {
		if got := contentType(in); got != want {
			t.Errorf("contentType(%q) = %q, want %q", in, got, want)
		}
	}
}

type fakeAudioClient struct {
	resp openai.AudioResponse
	err  error
	req  openai.AudioRequest
}

func (f *fakeAudioClient) CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
	f.req = req
	return f.resp, f.err
}

func TestOpenAITranscriber(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		client := &fakeAudioClient{resp: openai.AudioResponse{Text: " the words \n"}}
		tr := NewOpenAITranscriber(client, "gpt-4o-transcribe", "en-US")

		text, err := tr.Transcribe(context.Background(), "/tmp/audio_x.webm")
		if err != nil {
			t.Fatalf("Transcribe: %v", err)
		}
		if text != "the words" {
			t.Errorf("text = %q", text)
		}
		if client.req.Model != "gpt-4o-transcribe" || client.req.Language != "en" {
			t.Errorf("request = %+v", client.req)
		}
		if client.req.FilePath != "/tmp/audio_x.webm" {
			t.Errorf("FilePath = %q", client.req.FilePath)
		}
	})

	t.Run("empty text is no signal", func(t *testing.T) {
		tr := NewOpenAITranscriber(&fakeAudioClient{}, "d", "en-US")
		if _, err := tr.Transcribe(context.Background(), "x"); !errors.Is(err, ErrNoSpeech) {
			t.Errorf("err = %v, want ErrNoSpeech", err)
		}
	})

	t.Run("api error", func(t *testing.T) {
		apiErr := &openai.APIError{HTTPStatusCode: http.StatusBadRequest, Message: "unsupported"}
		tr := NewOpenAITranscriber(&fakeAudioClient{err: apiErr}, "d", "en-US")
		_, err := tr.Transcribe(context.Background(), "x")
		var got *openai.APIError
		if !errors.As(err, &got) {
			t.Errorf("err = %v, want wrapped APIError", err)
		}
		if kind := classify("secondary_service", err).Kind; kind != ProviderError {
			t.Errorf("kind = %s, want ProviderError", kind)
		}
	})

	t.Run("nil transcriber", func(t *testing.T) {
		var tr *OpenAITranscriber
		if _, err := tr.Transcribe(context.Background(), "x"); !errors.Is(err, ErrNotConfigured) {
			t.Errorf("err = %v, want ErrNotConfigured", err)
		}
	})
}

func TestIsoLanguage(t *testing.T) {
	tests := map[string]string{"en-US": "en", "pt_BR": "pt", "de": "de", "": ""}
	for in, want := range tests {
		if got := isoLanguage(in); got != want {
			t.Errorf("isoLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}
