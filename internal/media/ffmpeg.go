package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrFFmpegMissing is returned when the ffmpeg binary cannot be found.
var ErrFFmpegMissing = errors.New("ffmpeg not found")

type Status struct {
	Installed bool   `json:"ffmpeg_available"`
	Path      string `json:"path,omitempty"`
	Version   string `json:"version_info,omitempty"`
}

// FFmpeg converts uploads to the PCM WAV layout the speech service expects.
type FFmpeg struct {
	bin string
}

func NewFFmpeg(bin string) *FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpeg{bin: bin}
}

// Check reports whether ffmpeg is installed and its version line.
func (f *FFmpeg) Check(ctx context.Context) Status {
	path, err := exec.LookPath(f.bin)
	if err != nil {
		return Status{Installed: false}
	}

	status := Status{Installed: true, Path: path}

	// ffmpeg -version outputs version info on first line
	output, err := exec.CommandContext(ctx, path, "-version").Output()
	if err == nil {
		lines := strings.Split(string(output), "\n")
		if len(lines) > 0 {
			status.Version = strings.TrimSpace(lines[0])
		}
	}
	return status
}

// ToPCM16kMono writes <input>.wav as mono 16 kHz 16-bit linear PCM and returns its path.
// On failure any partial output is removed.
func (f *FFmpeg) ToPCM16kMono(ctx context.Context, input string) (string, error) {
	path, err := exec.LookPath(f.bin)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFFmpegMissing, err)
	}

	out := input + ".wav"

	// ffmpeg -i input -ar 16000 -ac 1 -c:a pcm_s16le output.wav -y -nostdin
	cmd := exec.CommandContext(ctx, path,
		"-i", input,
		"-ar", "16000", "-ac", "1",
		"-c:a", "pcm_s16le",
		out, "-y", "-nostdin",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = os.Remove(out)
		return "", fmt.Errorf("ffmpeg: %w: %s", err, lastLine(stderr.String()))
	}

	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("ffmpeg output missing: %w", err)
	}
	return out, nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
