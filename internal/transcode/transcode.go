// Package transcode runs background ffmpeg conversions on finished
// recordings. Jobs never block a session stop: the recording is logged
// first and the conversion catches up afterwards.
package transcode

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"packcam/internal/fileutil"
	"packcam/internal/logging"
	"packcam/internal/services"
)

// Job describes one conversion of a finished recording.
type Job struct {
	// InputPath is the source recording. It is removed only when the
	// conversion succeeds and RemoveInput is set.
	InputPath  string
	OutputPath string
	// Upscale adds a scale filter that brings the video to 1080 lines
	// while preserving aspect ratio.
	Upscale bool
	// RemoveInput deletes the source after a successful conversion.
	RemoveInput bool
}

// Supervisor owns the pool of in-flight conversion jobs.
type Supervisor struct {
	ffmpegBin string
	logger    *slog.Logger

	wg     sync.WaitGroup
	mu     sync.Mutex
	active int
}

// NewSupervisor builds a supervisor that shells out to the given ffmpeg
// binary.
func NewSupervisor(ffmpegBin string, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		ffmpegBin: ffmpegBin,
		logger:    logging.NewComponentLogger(logger, "transcode"),
	}
}

// Convert re-encodes a recording to H.264/AAC MP4 in the background.
func (s *Supervisor) Convert(ctx context.Context, inputPath, outputPath string, removeInput bool) {
	s.enqueue(ctx, Job{
		InputPath:   inputPath,
		OutputPath:  outputPath,
		RemoveInput: removeInput,
	})
}

// Upscale re-encodes a recording to 1080p H.264/AAC MP4 in the background.
func (s *Supervisor) Upscale(ctx context.Context, inputPath, outputPath string, removeInput bool) {
	s.enqueue(ctx, Job{
		InputPath:   inputPath,
		OutputPath:  outputPath,
		Upscale:     true,
		RemoveInput: removeInput,
	})
}

// Active reports how many conversions are currently running.
func (s *Supervisor) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Wait blocks until all in-flight conversions are finished. Called during
// daemon shutdown so half-written outputs are not left behind.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

func (s *Supervisor) enqueue(ctx context.Context, job Job) {
	s.mu.Lock()
	s.active++
	s.mu.Unlock()
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.active--
			s.mu.Unlock()
		}()
		if err := s.run(ctx, job); err != nil {
			s.logger.Error("conversion failed, keeping original recording",
				logging.String("input", job.InputPath),
				logging.Error(err))
			return
		}
		s.logger.Info("conversion finished",
			logging.String("input", job.InputPath),
			logging.String("output", job.OutputPath))
	}()
}

func (s *Supervisor) run(ctx context.Context, job Job) error {
	if err := fileutil.EnsureDir(filepath.Dir(job.OutputPath)); err != nil {
		return services.Wrap(services.ErrPersistence, "transcode", "run", "create output directory", err)
	}

	cmd := exec.CommandContext(ctx, s.ffmpegBin, jobArgs(job)...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return services.Wrap(services.ErrBackgroundJob, "transcode", "run", "attach stderr", err)
	}
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrToolMissing, "transcode", "run",
			fmt.Sprintf("launch %s", s.ffmpegBin), err)
	}

	var lastLine string
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lastLine = line
		}
	}

	if err := cmd.Wait(); err != nil {
		// Remove a partial output so a failed job leaves only the
		// original behind.
		_ = os.Remove(job.OutputPath)
		return services.Wrap(services.ErrBackgroundJob, "transcode", "run",
			fmt.Sprintf("ffmpeg failed: %s", lastLine), err)
	}

	if job.RemoveInput && job.InputPath != job.OutputPath {
		if err := os.Remove(job.InputPath); err != nil {
			s.logger.Warn("could not remove source after conversion",
				logging.String("input", job.InputPath),
				logging.Error(err))
		}
	}
	return nil
}

func jobArgs(job Job) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", job.InputPath,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-c:a", "aac",
	}
	if job.Upscale {
		args = append(args, "-vf", "scale=-2:1080")
	}
	return append(args, "-movflags", "+faststart", job.OutputPath)
}
