package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"still-go/internal/config"
	"still-go/internal/extractor"
	"still-go/internal/logger"
	"still-go/internal/media"
	"still-go/internal/processor"
	"still-go/internal/transcription"
	"still-go/internal/types"
)

const heavySilence = "The silence was too heavy."

type Pipeline interface {
	Process(ctx context.Context, a types.AudioArtifact) processor.Result
}

type FFmpegChecker interface {
	Check(ctx context.Context) media.Status
}

// Prober sends a raw test message through the text generation deployment.
type Prober interface {
	Enabled() bool
	Complete(ctx context.Context, transcript string) (string, error)
}

type Server struct {
	pipeline Pipeline
	ffmpeg   FFmpegChecker
	prober   Prober
	cfg      config.Config
	log      *logger.Logger
}

func NewServer(cfg config.Config, p Pipeline, ff FFmpegChecker, pr Prober, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 25 << 20
	}
	return &Server{pipeline: p, ffmpeg: ff, prober: pr, cfg: cfg, log: log}
}

// Handler returns the routed handler wrapped with CORS and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("POST /process-audio", s.processAudio)
	mux.HandleFunc("GET /debug-ffmpeg", s.debugFFmpeg)
	mux.HandleFunc("GET /debug-azure", s.debugAzure)
	return s.logRequests(cors(mux))
}

// HTTPServer's write timeout covers both transcription tiers plus generation.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%s", s.cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 4 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "still", "silence": true})
}

func (s *Server) processAudio(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "process-audio")

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			reqLog.WithField("limit", tooLarge.Limit).Warn("upload too large")
			writeDetail(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Audio file exceeds %d bytes", tooLarge.Limit))
			return
		}
		reqLog.WithError(err).Warn("invalid multipart body")
		writeDetail(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("file")
	if err != nil {
		reqLog.Warn("missing file field")
		writeDetail(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	defer file.Close()

	path := filepath.Join(s.cfg.TempDir, fmt.Sprintf("audio_%s.webm", uuid.NewString()))
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			reqLog.WithError(err).WithField("path", path).Error("could not delete upload")
		}
	}()

	artifact, err := stage(file, path)
	if err != nil {
		reqLog.WithError(err).Error("staging upload failed")
		writeDetail(w, http.StatusInternalServerError, heavySilence)
		return
	}
	reqLog = reqLog.WithFields(logrus.Fields{"base_name": artifact.BaseName, "size": artifact.Size})
	reqLog.Info("upload staged")

	res := s.pipeline.Process(r.Context(), artifact)
	reqLog.WithFields(logrus.Fields{
		"tier":        res.Tier,
		"duration_ms": res.DurationMs,
	}).Info("reflection ready")

	writeJSON(w, http.StatusOK, res.Reflection)
}

// stage copies the upload to path and returns its artifact.
func stage(src io.Reader, path string) (types.AudioArtifact, error) {
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return types.AudioArtifact{}, fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return types.AudioArtifact{}, fmt.Errorf("write temp file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return types.AudioArtifact{}, fmt.Errorf("close temp file: %w", err)
	}
	return transcription.NewArtifact(path)
}

func (s *Server) debugFFmpeg(w http.ResponseWriter, r *http.Request) {
	if s.ffmpeg == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "error", "ffmpeg_available": false, "error": "FFmpeg not found"})
		return
	}
	st := s.ffmpeg.Check(r.Context())
	if !st.Installed {
		writeJSON(w, http.StatusOK, map[string]any{"status": "error", "ffmpeg_available": false, "error": "FFmpeg not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "success",
		"ffmpeg_available": true,
		"version_info":     st.Version,
	})
}

func (s *Server) debugAzure(w http.ResponseWriter, r *http.Request) {
	o := s.cfg.OpenAI
	env := map[string]any{
		"api_key_present":       o.APIKey != "",
		"api_key_length":        len(o.APIKey),
		"endpoint":              o.BaseURL,
		"deployment":            o.Deployment,
		"transcribe_deployment": o.TranscribeDeploy,
		"speech_configured":     s.cfg.Speech.Enabled(),
		"speech_region":         s.cfg.Speech.Region,
	}

	if s.prober == nil || !s.prober.Enabled() {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "error",
			"environment": env,
			"azure_test":  "client_not_initialized",
			"error":       "text generation client is not configured",
		})
		return
	}

	out, err := s.prober.Complete(r.Context(), "Test message")
	if err != nil {
		s.log.WithRequest(r).WithError(err).Warn("azure probe failed")
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "error",
			"environment": env,
			"azure_test":  "failed",
			"error":       err.Error(),
		})
		return
	}
	rec, err := extractor.Parse(out)
	if err != nil {
		s.log.WithRequest(r).WithError(err).WithField("content_len", len(out)).Warn("azure probe returned unparseable content")
		writeJSON(w, http.StatusOK, map[string]any{
			"status":       "error",
			"environment":  env,
			"azure_test":   "failed",
			"parse_status": "parse_failure",
			"test_result":  nil,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "success",
		"environment":  env,
		"azure_test":   "success",
		"parse_status": "ok",
		"test_result":  rec,
	})
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
