package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sashabaranov/go-openai"
)

type Config struct {
	Port           string
	Environment    string
	LogLevel       string
	TempDir        string
	MaxUploadBytes int64

	Speech SpeechConfig
	OpenAI OpenAIConfig

	FFmpegPath        string
	TranscribeTimeout time.Duration
	ReflectTimeout    time.Duration
}

type SpeechConfig struct {
	Key      string
	Region   string
	Language string
	// Endpoint overrides the regional URL, mostly for tests and private links.
	Endpoint string
}

func (s SpeechConfig) Enabled() bool {
	return s.Key != "" && (s.Region != "" || s.Endpoint != "")
}

type OpenAIConfig struct {
	APIKey              string
	BaseURL             string
	APIVersion          string
	Deployment          string
	TranscribeDeploy    string
	MaxCompletionTokens int
}

// ChatEnabled reports whether the text generation client can be built.
func (o OpenAIConfig) ChatEnabled() bool {
	return o.APIKey != "" && o.BaseURL != "" && o.Deployment != ""
}

// TranscribeEnabled reports whether the secondary transcription tier can be built.
func (o OpenAIConfig) TranscribeEnabled() bool {
	return o.APIKey != "" && o.BaseURL != "" && o.TranscribeDeploy != ""
}

// ClientConfig builds the Azure flavoured go-openai configuration. Deployment names are
// passed through untouched.
func (o OpenAIConfig) ClientConfig() openai.ClientConfig {
	cc := openai.DefaultAzureConfig(o.APIKey, o.BaseURL)
	cc.APIVersion = o.APIVersion
	cc.AzureModelMapperFunc = func(model string) string { return model }
	return cc
}

// LoadDotEnv loads .env files when present; missing files are not an error.
func LoadDotEnv(paths ...string) {
	_ = godotenv.Load(paths...)
}

// Load reads the process environment.
func Load() Config {
	return Config{
		Port:           envOr("PORT", "8000"),
		Environment:    os.Getenv("ENVIRONMENT"),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		TempDir:        envOr("TEMP_DIR", os.TempDir()),
		MaxUploadBytes: int64(envInt("MAX_UPLOAD_BYTES", 25*1024*1024)),
		Speech: SpeechConfig{
			Key:      os.Getenv("SPEECH_KEY"),
			Region:   os.Getenv("SPEECH_REGION"),
			Language: envOr("SPEECH_LANGUAGE", "en-US"),
			Endpoint: os.Getenv("SPEECH_ENDPOINT"),
		},
		OpenAI: OpenAIConfig{
			APIKey:              os.Getenv("OPENAI_API_KEY"),
			BaseURL:             NormalizeEndpoint(os.Getenv("OPENAI_API_BASE")),
			APIVersion:          envOr("OPENAI_API_VERSION", "2024-12-01-preview"),
			Deployment:          os.Getenv("OPENAI_DEPLOYMENT_NAME"),
			TranscribeDeploy:    os.Getenv("OPENAI_TRANSCRIBE_DEPLOYMENT"),
			MaxCompletionTokens: envInt("OPENAI_MAX_COMPLETION_TOKENS", 800),
		},
		FFmpegPath:        envOr("FFMPEG_PATH", "ffmpeg"),
		TranscribeTimeout: time.Duration(envInt("TRANSCRIBE_TIMEOUT_SEC", 100)) * time.Second,
		ReflectTimeout:    time.Duration(envInt("REFLECT_TIMEOUT_SEC", 30)) * time.Second,
	}
}

// NormalizeEndpoint prefixes https:// when the scheme is missing.
func NormalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return ""
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	return strings.TrimRight(endpoint, "/")
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
