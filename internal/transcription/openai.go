package transcription

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// AudioClient is the slice of *openai.Client used by the secondary tier.
type AudioClient interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

// OpenAITranscriber asks an Azure OpenAI transcribe deployment for text.
type OpenAITranscriber struct {
	client     AudioClient
	deployment string
	language   string
}

func NewOpenAITranscriber(client AudioClient, deployment, language string) *OpenAITranscriber {
	return &OpenAITranscriber{
		client:     client,
		deployment: deployment,
		language:   isoLanguage(language),
	}
}

func (t *OpenAITranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	if t == nil || t.client == nil || t.deployment == "" {
		return "", ErrNotConfigured
	}

	req := openai.AudioRequest{
		Model:    t.deployment,
		FilePath: path,
		Language: t.language,
		Format:   openai.AudioResponseFormatJSON,
	}
	resp, err := t.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

// isoLanguage turns a locale like en-US into the two letter code the API wants.
func isoLanguage(locale string) string {
	locale = strings.TrimSpace(locale)
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		locale = locale[:i]
	}
	return strings.ToLower(locale)
}
