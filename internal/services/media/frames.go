// Package media extracts still frames from videos for the second
// identification tier. It shells out to yt-dlp for a stream URL and ffmpeg
// for the frames themselves, both expected on PATH.
package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"bosstitler/internal/config"
	"bosstitler/internal/logging"
)

// FrameSampler captures frames at configured offsets and returns them as
// base64 data URLs ready for a vision request.
type FrameSampler struct {
	timestamps []int
	quality    string
	clip       time.Duration
	logger     *slog.Logger
}

// NewFrameSampler builds a sampler from configuration.
func NewFrameSampler(cfg *config.Config, logger *slog.Logger) *FrameSampler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FrameSampler{
		timestamps: append([]int(nil), cfg.Processing.Frames.Timestamps...),
		quality:    cfg.Processing.Frames.Quality,
		clip:       time.Duration(cfg.Processing.Frames.ClipSeconds) * time.Second,
		logger:     logging.NewComponentLogger(logger, "media"),
	}
}

// Sample extracts frames from the video. Extraction is best effort: any
// failure yields an empty slice so the caller can fall through to its
// unknown handling rather than abort the video.
func (s *FrameSampler) Sample(ctx context.Context, videoID string) []string {
	streamURL, err := s.resolveStream(ctx, videoID)
	if err != nil {
		s.logger.Warn("stream resolution failed",
			logging.String(logging.FieldVideoID, videoID),
			logging.Error(err))
		return nil
	}

	tempDir, err := os.MkdirTemp("", "bosstitler-frames-")
	if err != nil {
		s.logger.Warn("temp dir creation failed", logging.Error(err))
		return nil
	}
	defer os.RemoveAll(tempDir)

	var frames []string
	for _, offset := range s.timestamps {
		if s.clip > 0 && time.Duration(offset)*time.Second > s.clip {
			break
		}
		frame, err := s.extractFrame(ctx, streamURL, offset, tempDir)
		if err != nil {
			s.logger.Debug("frame extraction failed",
				logging.String(logging.FieldVideoID, videoID),
				logging.Int("offset_seconds", offset),
				logging.Error(err))
			continue
		}
		frames = append(frames, frame)
	}
	if len(frames) == 0 {
		s.logger.Warn("no frames extracted",
			logging.String(logging.FieldVideoID, videoID))
	}
	return frames
}

func (s *FrameSampler) resolveStream(ctx context.Context, videoID string) (string, error) {
	quality := s.quality
	if quality == "" {
		quality = "worst"
	}
	cmd := exec.CommandContext(ctx, "yt-dlp",
		"--get-url",
		"--format", quality,
		"https://www.youtube.com/watch?v="+videoID)
	output, err := cmd.Output()
	if err != nil {
		return "", commandError("yt-dlp", err)
	}
	streamURL := strings.TrimSpace(string(output))
	if streamURL == "" {
		return "", fmt.Errorf("yt-dlp returned no stream url")
	}
	// Multiple formats may come back one per line; take the first.
	if idx := strings.IndexByte(streamURL, '\n'); idx >= 0 {
		streamURL = streamURL[:idx]
	}
	return streamURL, nil
}

func (s *FrameSampler) extractFrame(ctx context.Context, streamURL string, offset int, tempDir string) (string, error) {
	outputPath := filepath.Join(tempDir, fmt.Sprintf("frame-%03d.jpg", offset))
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-ss", fmt.Sprintf("%d", offset),
		"-i", streamURL,
		"-frames:v", "1",
		"-q:v", "2",
		"-y",
		outputPath)
	if err := cmd.Run(); err != nil {
		return "", commandError("ffmpeg", err)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return "", fmt.Errorf("read frame: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty frame at offset %d", offset)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data), nil
}

func commandError(tool string, err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		detail := strings.TrimSpace(string(exitErr.Stderr))
		if len(detail) > 200 {
			detail = detail[:200]
		}
		return fmt.Errorf("%s: %w: %s", tool, err, detail)
	}
	return fmt.Errorf("%s: %w", tool, err)
}
