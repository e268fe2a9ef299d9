package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"still-go/internal/config"
)

var httpClient = &http.Client{Timeout: 120 * time.Second}

// SpeechResponse is the "simple" format body of the short-audio recognition endpoint.
type SpeechResponse struct {
	RecognitionStatus string `json:"RecognitionStatus"`
	DisplayText       string `json:"DisplayText"`
	Offset            int64  `json:"Offset"`
	Duration          int64  `json:"Duration"`
}

// SpeechClient calls the Azure Speech short-audio REST API once per recording.
type SpeechClient struct {
	endpoint string
	key      string
	language string
	http     *http.Client
}

// NewSpeechClient returns ErrNotConfigured when key or region are missing.
func NewSpeechClient(cfg config.SpeechConfig) (*SpeechClient, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.stt.speech.microsoft.com", cfg.Region)
	}
	return NewSpeechClientWithURL(endpoint, cfg.Key, cfg.Language, nil), nil
}

// NewSpeechClientWithURL points the client at an arbitrary base URL; tests use httptest.
func NewSpeechClientWithURL(endpoint, key, language string, hc *http.Client) *SpeechClient {
	if hc == nil {
		hc = httpClient
	}
	if language == "" {
		language = "en-US"
	}
	return &SpeechClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		key:      key,
		language: language,
		http:     hc,
	}
}

// Recognize sends the file and returns the display text of the first utterance.
func (c *SpeechClient) Recognize(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	u, err := url.Parse(c.endpoint + "/speech/recognition/conversation/cognitiveservices/v1")
	if err != nil {
		return "", fmt.Errorf("speech endpoint: %w", err)
	}
	q := u.Query()
	q.Set("language", c.language)
	q.Set("format", "simple")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), f)
	if err != nil {
		return "", err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)
	req.Header.Set("Content-Type", contentType(path))
	req.Header.Set("Accept", "application/json")

	var resp SpeechResponse
	if err := c.doJSON(req, &resp); err != nil {
		return "", err
	}

	switch resp.RecognitionStatus {
	case "Success":
		text := strings.TrimSpace(resp.DisplayText)
		if text == "" {
			return "", ErrNoSpeech
		}
		return text, nil
	case "NoMatch", "InitialSilenceTimeout", "BabbleTimeout":
		return "", fmt.Errorf("%w: %s", ErrNoSpeech, resp.RecognitionStatus)
	default:
		return "", fmt.Errorf("speech recognition canceled: status=%q", resp.RecognitionStatus)
	}
}

func (c *SpeechClient) doJSON(req *http.Request, target interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("speech service error: status=%d body=%s", resp.StatusCode, truncate(string(body), 200))
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode speech response: %w", err)
	}
	return nil
}

func contentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav; codecs=audio/pcm; samplerate=16000"
	case ".ogg", ".webm":
		return "audio/ogg; codecs=opus"
	default:
		return "application/octet-stream"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
