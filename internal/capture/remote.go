package capture

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"packcam/internal/fileutil"
	"packcam/internal/logging"
	"packcam/internal/services"
)

// remoteStartWait bounds how long Start blocks waiting for ffmpeg to report
// its first encoded frame. Recording continues in the background either way.
const remoteStartWait = 1500 * time.Millisecond

// remoteStopWait bounds how long Stop waits for ffmpeg to finalize the file
// after the interrupt before escalating to a hard kill.
const remoteStopWait = 10 * time.Second

// RemoteBackend records a network stream by supervising an ffmpeg process
// per session. Streams are either remuxed as-is or transcoded to H.264/AAC.
type RemoteBackend struct {
	streamURL string
	ffmpegBin string
	transcode bool
	logger    *slog.Logger

	mu   sync.Mutex
	jobs map[string]*remoteJob
}

type remoteJob struct {
	cmd        *exec.Cmd
	outputPath string
	container  string
	ext        string
	done       chan struct{}
	exitErr    error
	stderr     *tailBuffer
}

// NewRemoteBackend builds a remote backend for a stream URL. When transcode
// is false the stream's codecs are copied without re-encoding.
func NewRemoteBackend(streamURL, ffmpegBin string, transcode bool, logger *slog.Logger) *RemoteBackend {
	return &RemoteBackend{
		streamURL: streamURL,
		ffmpegBin: ffmpegBin,
		transcode: transcode,
		logger:    logging.NewComponentLogger(logger, "capture.remote"),
		jobs:      make(map[string]*remoteJob),
	}
}

// Start launches ffmpeg against the configured stream and waits, bounded,
// for evidence that frames are flowing.
func (b *RemoteBackend) Start(ctx context.Context, opts StartOptions) error {
	if b.streamURL == "" {
		return services.Wrap(services.ErrInputRejected, "capture", "start", "remote stream URL is not configured", nil)
	}
	if opts.OutputPath == "" {
		return services.Wrap(services.ErrCaptureUnavailable, "capture", "start", "no output path", nil)
	}

	b.mu.Lock()
	if _, exists := b.jobs[opts.SessionID]; exists {
		b.mu.Unlock()
		return services.Wrap(services.ErrCaptureUnavailable, "capture", "start", "session already recording", nil)
	}
	b.mu.Unlock()

	if err := fileutil.EnsureDir(filepath.Dir(opts.OutputPath)); err != nil {
		return services.Wrap(services.ErrPersistence, "capture", "start", "create output directory", err)
	}

	args := b.ffmpegArgs(opts.OutputPath)
	cmd := exec.CommandContext(ctx, b.ffmpegBin, args...)
	// Context cancellation must not hard-kill ffmpeg mid-trailer. Ask it to
	// stop cleanly and give it the same grace window Stop's reaper uses.
	cmd.Cancel = func() error {
		interruptProcess(cmd)
		return nil
	}
	cmd.WaitDelay = remoteStopWait
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return services.Wrap(services.ErrCaptureUnavailable, "capture", "start", "attach stderr", err)
	}

	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrToolMissing, "capture", "start", fmt.Sprintf("launch %s", b.ffmpegBin), err)
	}

	job := &remoteJob{
		cmd:        cmd,
		outputPath: opts.OutputPath,
		container:  TargetContainer,
		ext:        "mp4",
		done:       make(chan struct{}),
		stderr:     newTailBuffer(12),
	}

	frameSeen := make(chan struct{})
	stderrDone := make(chan struct{})
	go func() {
		watchStderr(stderrPipe, job.stderr, frameSeen)
		close(stderrDone)
	}()
	go func() {
		// Wait must not race the pipe reader. The scanner sees EOF when
		// ffmpeg exits, so this does not delay reaping.
		<-stderrDone
		job.exitErr = cmd.Wait()
		close(job.done)
	}()

	// Bounded wait: a healthy ffmpeg prints progress lines almost
	// immediately; a dead stream URL usually exits within the window.
	select {
	case <-frameSeen:
	case <-job.done:
		return services.Wrap(services.ErrCaptureUnavailable, "capture", "start",
			fmt.Sprintf("ffmpeg exited before producing frames: %s", job.stderr.Tail()), job.exitErr)
	case <-time.After(remoteStartWait):
		b.logger.Warn("no progress marker within start window, assuming stream is live",
			logging.String("session_id", opts.SessionID))
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		return services.Wrap(services.ErrCaptureUnavailable, "capture", "start", "canceled", ctx.Err())
	}

	b.mu.Lock()
	b.jobs[opts.SessionID] = job
	b.mu.Unlock()

	b.logger.Info("remote capture started",
		logging.String("session_id", opts.SessionID),
		logging.String("output", opts.OutputPath),
		logging.Bool("transcode", b.transcode))
	return nil
}

// Stop interrupts the session's ffmpeg process so it can write trailers, then
// returns the artifact path. Stopping an unknown session is a no-op failure.
func (b *RemoteBackend) Stop(ctx context.Context) (Artifact, error) {
	b.mu.Lock()
	var sessionID string
	var job *remoteJob
	for id, j := range b.jobs {
		sessionID, job = id, j
		break
	}
	if job != nil {
		delete(b.jobs, sessionID)
	}
	b.mu.Unlock()

	if job == nil {
		return Artifact{}, services.Wrap(services.ErrCaptureUnavailable, "capture", "stop", "no active remote recording", nil)
	}
	return b.finishJob(ctx, sessionID, job)
}

// finishJob requests graceful termination and returns immediately with the
// path ffmpeg was told to finalize. A reaper goroutine escalates to a hard
// kill if the process ignores the interrupt.
func (b *RemoteBackend) finishJob(ctx context.Context, sessionID string, job *remoteJob) (Artifact, error) {
	interruptProcess(job.cmd)

	go func() {
		select {
		case <-job.done:
			if job.exitErr != nil {
				b.logger.Warn("ffmpeg exited with error after interrupt",
					logging.String("session_id", sessionID),
					logging.String("stderr", job.stderr.Tail()),
					logging.Error(job.exitErr))
			}
		case <-time.After(remoteStopWait):
			b.logger.Warn("ffmpeg did not exit after interrupt, killing",
				logging.String("session_id", sessionID))
			_ = job.cmd.Process.Kill()
			<-job.done
		}
	}()

	b.logger.Info("remote capture stopping",
		logging.String("session_id", sessionID),
		logging.String("output", job.outputPath))
	return Artifact{Path: job.outputPath, Container: job.container, Ext: job.ext}, nil
}

// Dispose kills every outstanding ffmpeg process.
func (b *RemoteBackend) Dispose() {
	b.mu.Lock()
	jobs := b.jobs
	b.jobs = make(map[string]*remoteJob)
	b.mu.Unlock()

	for id, job := range jobs {
		b.logger.Warn("disposing active remote recording", logging.String("session_id", id))
		_ = job.cmd.Process.Kill()
		<-job.done
	}
}

func (b *RemoteBackend) ffmpegArgs(outputPath string) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", b.streamURL,
	}
	if b.transcode {
		args = append(args,
			"-c:v", "libx264",
			"-preset", "veryfast",
			"-c:a", "aac",
		)
	} else {
		args = append(args, "-c", "copy")
	}
	return append(args, "-movflags", "+faststart", outputPath)
}

// interruptProcess asks ffmpeg to stop cleanly. SIGINT makes ffmpeg finish
// the file; Windows has no equivalent delivery, so the process is killed.
func interruptProcess(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if runtime.GOOS == "windows" {
		_ = cmd.Process.Kill()
		return
	}
	_ = cmd.Process.Signal(os.Interrupt)
}

// watchStderr scans ffmpeg's progress output, closing frameSeen on the first
// line that proves frames are being written.
func watchStderr(r io.Reader, tail *tailBuffer, frameSeen chan<- struct{}) {
	seen := false
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
	scanner.Split(scanFFmpegLines)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tail.Add(line)
		if !seen && strings.HasPrefix(line, "frame=") {
			seen = true
			close(frameSeen)
		}
	}
}

// scanFFmpegLines splits on both newlines and carriage returns, since ffmpeg
// rewrites its progress line with bare \r.
func scanFFmpegLines(data []byte, atEOF bool) (int, []byte, error) {
	for i, c := range data {
		if c == '\n' || c == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// tailBuffer retains the last N lines for error reporting.
type tailBuffer struct {
	mu    sync.Mutex
	max   int
	lines []string
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

func (t *tailBuffer) Tail() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, " | ")
}

var _ Backend = (*RemoteBackend)(nil)
