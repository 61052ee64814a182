package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"packcam/internal/logging"
	"packcam/internal/services"
)

func TestOverlayRenderSubstitutesAllTokens(t *testing.T) {
	start := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	spec := &OverlaySpec{
		Template:  "{order} | {employee} | {time} | {elapsed}",
		Order:     "AB-1",
		Employee:  "J. Doe",
		StartedAt: start,
	}

	got := spec.Render(start.Add(95 * time.Second))
	want := "AB-1 | J. Doe | 14:31:35 | 01:35"
	if got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}
}

func TestOverlayRenderElapsedRollsIntoHours(t *testing.T) {
	start := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	spec := &OverlaySpec{Template: "{elapsed}", StartedAt: start}

	got := spec.Render(start.Add(1*time.Hour + 2*time.Minute + 3*time.Second))
	if got != "1:02:03" {
		t.Fatalf("Render() = %q, want %q", got, "1:02:03")
	}
}

func TestSelectContainerPrefersMP4(t *testing.T) {
	option, err := selectContainer(func(string) bool { return true })
	if err != nil {
		t.Fatalf("selectContainer: %v", err)
	}
	if option.Name != "mp4" {
		t.Fatalf("container = %q, want mp4", option.Name)
	}
}

func TestSelectContainerFallsBackWhenEncoderMissing(t *testing.T) {
	option, err := selectContainer(func(factory string) bool {
		return factory != "x264enc"
	})
	if err != nil {
		t.Fatalf("selectContainer: %v", err)
	}
	if option.Name != "webm" {
		t.Fatalf("container = %q, want webm", option.Name)
	}
}

func TestSelectContainerErrorsWhenNothingAvailable(t *testing.T) {
	_, err := selectContainer(func(string) bool { return false })
	if !errors.Is(err, services.ErrCaptureUnavailable) {
		t.Fatalf("expected ErrCaptureUnavailable, got %v", err)
	}
}

// writeFFmpegStub writes a shell script that mimics ffmpeg closely enough
// for supervision tests: it reports a frame, creates its output file, and
// exits cleanly on interrupt.
func writeFFmpegStub(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs are not available on windows")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

const recordingStub = `#!/bin/sh
for a in "$@"; do out="$a"; done
echo "frame=   10 fps=30 size=128kB" 1>&2
: > "$out"
trap 'exit 0' INT TERM
while :; do sleep 0.05; done
`

const failingStub = `#!/bin/sh
echo "rtsp://nowhere: Connection refused" 1>&2
exit 1
`

// finalizingStub needs a moment after the interrupt to write its trailer,
// like ffmpeg finishing an mp4 moov atom.
const finalizingStub = `#!/bin/sh
for a in "$@"; do out="$a"; done
echo "frame=   10 fps=30 size=128kB" 1>&2
: > "$out"
trap 'sleep 0.2; echo finalized >> "$out"; exit 0' INT TERM
while :; do sleep 0.05; done
`

func TestRemoteBackendRecordsAndStops(t *testing.T) {
	stub := writeFFmpegStub(t, recordingStub)
	outputPath := filepath.Join(t.TempDir(), "AB_1__J__Doe__20240305T143012.mp4")

	backend := NewRemoteBackend("rtsp://cam.local/stream", stub, false, logging.NewNop())
	defer backend.Dispose()

	ctx := context.Background()
	if err := backend.Start(ctx, StartOptions{SessionID: "s1", OutputPath: outputPath}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	artifact, err := backend.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if artifact.Path != outputPath {
		t.Fatalf("artifact path = %q, want %q", artifact.Path, outputPath)
	}
	if artifact.InMemory() {
		t.Fatal("remote artifact should reference a file, not bytes")
	}
	if _, err := os.Stat(outputPath); err != nil {
		t.Fatalf("output file missing: %v", err)
	}
}

func TestRemoteBackendStartFailsWhenFFmpegExits(t *testing.T) {
	stub := writeFFmpegStub(t, failingStub)
	outputPath := filepath.Join(t.TempDir(), "out.mp4")

	backend := NewRemoteBackend("rtsp://nowhere/stream", stub, false, logging.NewNop())
	defer backend.Dispose()

	err := backend.Start(context.Background(), StartOptions{SessionID: "s1", OutputPath: outputPath})
	if !errors.Is(err, services.ErrCaptureUnavailable) {
		t.Fatalf("expected ErrCaptureUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "Connection refused") {
		t.Fatalf("expected stderr tail in error, got %v", err)
	}
}

func TestRemoteBackendFinalizesAfterContextCancel(t *testing.T) {
	stub := writeFFmpegStub(t, finalizingStub)
	outputPath := filepath.Join(t.TempDir(), "out.mp4")

	backend := NewRemoteBackend("rtsp://cam.local/stream", stub, false, logging.NewNop())
	defer backend.Dispose()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := backend.Start(ctx, StartOptions{SessionID: "s1", OutputPath: outputPath}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := backend.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	// Shutdown cancels the context right after the stop sequence. The
	// recorder must still get to write its trailer.
	cancel()

	deadline := time.Now().Add(3 * time.Second)
	for {
		data, err := os.ReadFile(outputPath)
		if err == nil && strings.Contains(string(data), "finalized") {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("recording was not finalized after cancel, content %q err=%v", data, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestRemoteBackendStartRejectsMissingStreamURL(t *testing.T) {
	backend := NewRemoteBackend("", "ffmpeg", false, logging.NewNop())
	err := backend.Start(context.Background(), StartOptions{SessionID: "s1", OutputPath: "out.mp4"})
	if !errors.Is(err, services.ErrInputRejected) {
		t.Fatalf("expected ErrInputRejected, got %v", err)
	}
}

func TestRemoteBackendStopWithoutStartFails(t *testing.T) {
	backend := NewRemoteBackend("rtsp://cam.local/stream", "ffmpeg", false, logging.NewNop())
	_, err := backend.Stop(context.Background())
	if !errors.Is(err, services.ErrCaptureUnavailable) {
		t.Fatalf("expected ErrCaptureUnavailable, got %v", err)
	}
}

func TestRemoteTranscodeArgs(t *testing.T) {
	copyBackend := NewRemoteBackend("rtsp://cam/1", "ffmpeg", false, logging.NewNop())
	transcodeBackend := NewRemoteBackend("rtsp://cam/1", "ffmpeg", true, logging.NewNop())

	copyArgs := copyBackend.ffmpegArgs("out.mp4")
	if !containsPair(copyArgs, "-c", "copy") {
		t.Fatalf("copy args missing -c copy: %v", copyArgs)
	}

	transcodeArgs := transcodeBackend.ffmpegArgs("out.mp4")
	if !containsPair(transcodeArgs, "-c:v", "libx264") || !containsPair(transcodeArgs, "-c:a", "aac") {
		t.Fatalf("transcode args missing codecs: %v", transcodeArgs)
	}
}

func containsPair(args []string, flag, value string) bool {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}
