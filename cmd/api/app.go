package main

import (
	"github.com/sashabaranov/go-openai"

	"still-go/internal/config"
	"still-go/internal/httpapi"
	"still-go/internal/logger"
	"still-go/internal/media"
	"still-go/internal/processor"
	"still-go/internal/reflection"
	"still-go/internal/transcription"
)

// app holds the clients built once at startup and shared by every request.
type app struct {
	cfg          config.Config
	log          *logger.Logger
	ffmpeg       *media.FFmpeg
	orchestrator *transcription.Orchestrator
	generator    *reflection.Generator
}

func buildApp() *app {
	config.LoadDotEnv()
	cfg := config.Load()

	log := logger.NewWithOptions(logger.Options{Environment: cfg.Environment, Level: cfg.LogLevel})
	log.WithField("service", "still-go").Info("starting")

	ff := media.NewFFmpeg(cfg.FFmpegPath)

	var client *openai.Client
	if cfg.OpenAI.ChatEnabled() || cfg.OpenAI.TranscribeEnabled() {
		client = openai.NewClientWithConfig(cfg.OpenAI.ClientConfig())
	}

	topts := []transcription.Option{
		transcription.WithReencoder(ff),
		transcription.WithTimeout(cfg.TranscribeTimeout),
	}
	if speech, err := transcription.NewSpeechClient(cfg.Speech); err == nil {
		topts = append(topts, transcription.WithSpeech(speech))
	} else {
		log.WithError(err).Warn("speech service disabled")
	}
	if cfg.OpenAI.TranscribeEnabled() {
		topts = append(topts, transcription.WithSecondary(
			transcription.NewOpenAITranscriber(client, cfg.OpenAI.TranscribeDeploy, cfg.Speech.Language),
		))
	} else {
		log.Warn("secondary transcription disabled")
	}

	var chat reflection.ChatClient
	if cfg.OpenAI.ChatEnabled() {
		chat = client
	} else {
		log.Warn("text generation disabled, every reflection will be the silence fallback")
	}
	gen := reflection.NewGenerator(chat, cfg.OpenAI.Deployment, log,
		reflection.WithMaxTokens(cfg.OpenAI.MaxCompletionTokens),
		reflection.WithTimeout(cfg.ReflectTimeout),
	)

	log.WithField("speech", cfg.Speech.Enabled()).
		WithField("secondary", cfg.OpenAI.TranscribeEnabled()).
		WithField("chat", cfg.OpenAI.ChatEnabled()).
		Info("services configured")

	return &app{
		cfg:          cfg,
		log:          log,
		ffmpeg:       ff,
		orchestrator: transcription.NewOrchestrator(log, topts...),
		generator:    gen,
	}
}

func (a *app) server() *httpapi.Server {
	p := processor.New(a.orchestrator, a.generator, a.log)
	return httpapi.NewServer(a.cfg, p, a.ffmpeg, a.generator, a.log)
}
