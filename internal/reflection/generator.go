package reflection

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"still-go/internal/extractor"
	"still-go/internal/logger"
	"still-go/internal/types"
)

var (
	ErrNoClient     = errors.New("text generation client not configured")
	ErrNoChoices    = errors.New("completion returned no choices")
	ErrEmptyContent = errors.New("completion returned empty content")

	// ErrProviderPanic wraps a panic raised inside the chat client.
	ErrProviderPanic = errors.New("chat client panicked")
)

// ChatClient is the slice of *openai.Client the generator needs.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Generator struct {
	client     ChatClient
	deployment string
	maxTokens  int
	timeout    time.Duration
	maxRetries uint64
	newBackOff func() backoff.BackOff
	log        *logrus.Entry
}

type Option func(*Generator)

func WithMaxTokens(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

// WithTimeout bounds the whole call, retries included.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithMaxRetries(n uint64) Option { return func(g *Generator) { g.maxRetries = n } }

// WithBackOff replaces the retry schedule.
func WithBackOff(f func() backoff.BackOff) Option { return func(g *Generator) { g.newBackOff = f } }

// NewGenerator builds a generator. A nil client is allowed and always yields the silence fallback.
func NewGenerator(client ChatClient, deployment string, log *logger.Logger, opts ...Option) *Generator {
	if log == nil {
		log = logger.Discard()
	}
	g := &Generator{
		client:     client,
		deployment: deployment,
		maxTokens:  800,
		timeout:    30 * time.Second,
		maxRetries: 2,
		log:        log.Component("reflection"),
	}
	g.newBackOff = func() backoff.BackOff {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = 500 * time.Millisecond
		bo.MaxElapsedTime = g.timeout
		return bo
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) Enabled() bool { return g != nil && g.client != nil }

// Reflect never fails: any problem yields the silence fallback.
func (g *Generator) Reflect(ctx context.Context, transcript string) types.ReflectionRecord {
	rec, err := g.Generate(ctx, transcript)
	if err != nil {
		g.log.WithError(err).Warn("returning silence fallback")
	}
	return rec
}

// Generate is Reflect with the reason for falling back. The record is always usable.
func (g *Generator) Generate(ctx context.Context, transcript string) (rec types.ReflectionRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = types.SilenceFallback()
			err = fmt.Errorf("%w: %v", ErrProviderPanic, r)
		}
	}()

	if !g.Enabled() {
		return types.SilenceFallback(), ErrNoClient
	}

	content, err := g.Complete(ctx, transcript)
	if err != nil {
		return types.SilenceFallback(), err
	}

	parsed, err := extractor.Parse(content)
	if err != nil {
		g.log.WithField("content_len", len(content)).Debug("unparseable completion")
		return types.SilenceFallback(), err
	}
	return parsed, nil
}

// Complete performs one chat completion and returns the raw message content.
func (g *Generator) Complete(ctx context.Context, transcript string) (string, error) {
	if !g.Enabled() {
		return "", ErrNoClient
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: g.deployment,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: transcript},
		},
		MaxCompletionTokens: g.maxTokens,
	}

	start := time.Now()
	attempts := 0
	var resp openai.ChatCompletionResponse
	op := func() (err error) {
		attempts++
		defer func() {
			if r := recover(); r != nil {
				err = backoff.Permanent(fmt.Errorf("%w: %v", ErrProviderPanic, r))
			}
		}()
		r, err := g.client.CreateChatCompletion(ctx, req)
		if err != nil {
			if transient(err) && ctx.Err() == nil {
				return err
			}
			return backoff.Permanent(err)
		}
		resp = r
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(g.newBackOff(), g.maxRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		g.log.WithFields(logrus.Fields{
			"attempts": attempts,
			"elapsed":  time.Since(start).String(),
		}).WithError(err).Warn("chat completion failed")
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyContent
	}

	g.log.WithFields(logrus.Fields{
		"attempts": attempts,
		"elapsed":  time.Since(start).String(),
		"tokens":   resp.Usage.CompletionTokens,
	}).Info("chat completion received")
	return content, nil
}

// transient reports whether a provider error is worth another attempt.
func transient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	return false
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// FailureReason gives a short label for why Generate fell back.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoClient):
		return "no_client"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrNoChoices):
		return "no_choices"
	case errors.Is(err, ErrEmptyContent):
		return "empty_content"
	case errors.Is(err, extractor.ErrParseFailure):
		return "parse_failure"
	default:
		return "provider_error"
	}
}
