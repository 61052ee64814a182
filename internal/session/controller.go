package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"packcam/internal/capture"
	"packcam/internal/fileutil"
	"packcam/internal/logging"
	"packcam/internal/notifications"
	"packcam/internal/scanner"
	"packcam/internal/services"
	"packcam/internal/store"
	"packcam/internal/textutil"
	"packcam/internal/transcode"
)

// scanDebounce drops scans arriving too soon after the previously processed
// one. Wedge scanners frequently double-fire the same code.
const scanDebounce = 2 * time.Second

// State is the controller's lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
)

// ActiveSession is the single in-flight recording. It exists exactly while
// the controller is in StateRecording.
type ActiveSession struct {
	ID         string
	Order      string
	Employee   string
	StartedAt  time.Time
	OutputPath string

	backend     capture.Backend
	saveDir     string
	scaleTo1080 bool
}

// Status is a point-in-time snapshot for status displays.
type Status struct {
	State     State
	SessionID string
	Order     string
	Employee  string
	StartedAt time.Time
}

// Controller owns the session state machine. It consumes decoded scan
// events, drives the configured capture backend, and on stop hands the
// artifact to the transcode supervisor and the persistence store.
type Controller struct {
	store      store.Store
	transcoder *transcode.Supervisor
	notifier   notifications.Service
	logger     *slog.Logger
	ffmpegBin  string

	// Injection points for tests.
	newLocal  func(deviceID string) capture.Backend
	newRemote func(cfg store.Config) capture.Backend
	lookPath  func(file string) (string, error)
	now       func() time.Time

	mu       sync.Mutex
	lastScan time.Time
	active   *ActiveSession
}

// NewController wires the controller against its collaborators.
func NewController(st store.Store, transcoder *transcode.Supervisor, notifier notifications.Service, ffmpegBin string, logger *slog.Logger) *Controller {
	componentLogger := logging.NewComponentLogger(logger, "session")
	c := &Controller{
		store:      st,
		transcoder: transcoder,
		notifier:   notifier,
		logger:     componentLogger,
		ffmpegBin:  ffmpegBin,
		lookPath:   exec.LookPath,
		now:        time.Now,
	}
	c.newLocal = func(deviceID string) capture.Backend {
		return capture.NewLocalBackend(deviceID, logger)
	}
	c.newRemote = func(cfg store.Config) capture.Backend {
		return capture.NewRemoteBackend(cfg.RemoteStreamURL, ffmpegBin, cfg.RemoteTranscode, logger)
	}
	return c
}

// HandleScan processes one decoded scan event. In StateIdle a scan starts a
// session; in StateRecording a scan of the same order stops it.
func (c *Controller) HandleScan(ctx context.Context, event scanner.Event) error {
	receivedAt := event.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = c.now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lastScan.IsZero() && receivedAt.Sub(c.lastScan) < scanDebounce {
		return services.Wrap(services.ErrInputRejected, "session", "scan",
			"scan ignored, too soon after the previous one", nil)
	}
	c.lastScan = receivedAt

	order := ParseOrderCode(event.Text)
	if order == "" {
		return services.Wrap(services.ErrInputRejected, "session", "scan", "empty scan", nil)
	}

	if c.active == nil {
		return c.startLocked(ctx, order)
	}
	if order == c.active.Order {
		return c.stopLocked(ctx)
	}
	return services.Wrap(services.ErrInputRejected, "session", "scan",
		fmt.Sprintf("different code %q, scan %q again to stop", order, c.active.Order), nil)
}

// Stop ends the active session without requiring a matching scan.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return services.Wrap(services.ErrInputRejected, "session", "stop", "no active recording", nil)
	}
	return c.stopLocked(ctx)
}

// Reset discards the active session without logging it. Used on operator
// logout and daemon shutdown.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return
	}
	c.logger.Warn("discarding active session without logging",
		logging.String(logging.FieldSessionID, c.active.ID),
		logging.String(logging.FieldOrder, c.active.Order))
	c.active.backend.Dispose()
	c.active = nil
}

// Status reports the current state for status displays.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return Status{State: StateIdle}
	}
	return Status{
		State:     StateRecording,
		SessionID: c.active.ID,
		Order:     c.active.Order,
		Employee:  c.active.Employee,
		StartedAt: c.active.StartedAt,
	}
}

func (c *Controller) startLocked(ctx context.Context, order string) error {
	cfg, err := c.store.GetConfig(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(cfg.SaveDir) == "" {
		return services.Wrap(services.ErrInputRejected, "session", "start",
			"no save directory configured", nil)
	}

	startedAt := c.now()
	employee := strings.TrimSpace(cfg.OperatorName)
	id := fmt.Sprintf("%d-%s", startedAt.UnixMilli(), uuid.NewString()[:8])

	opts := capture.StartOptions{
		SessionID: id,
		Order:     order,
		Employee:  employee,
		StartedAt: startedAt,
	}

	var backend capture.Backend
	switch cfg.CameraMode {
	case store.CameraModeRemote:
		if _, err := c.lookPath(c.ffmpegBin); err != nil {
			return services.Wrap(services.ErrToolMissing, "session", "start",
				fmt.Sprintf("%s is required for remote recording", c.ffmpegBin), err)
		}
		backend = c.newRemote(cfg)
		opts.OutputPath = filepath.Join(cfg.SaveDir,
			textutil.RecordingFileName(order, employee, startedAt, "mp4"))
	default:
		backend = c.newLocal(cfg.LocalDeviceID)
		if cfg.OverlayEnabled {
			opts.Overlay = &capture.OverlaySpec{
				Template:  cfg.OverlayTemplate,
				Order:     order,
				Employee:  employee,
				StartedAt: startedAt,
			}
		}
	}

	if err := backend.Start(ctx, opts); err != nil {
		backend.Dispose()
		c.notifyError(ctx, err, "capture start")
		return err
	}

	c.active = &ActiveSession{
		ID:          id,
		Order:       order,
		Employee:    employee,
		StartedAt:   startedAt,
		OutputPath:  opts.OutputPath,
		backend:     backend,
		saveDir:     cfg.SaveDir,
		scaleTo1080: cfg.ScaleTo1080,
	}
	c.logger.Info("session started",
		logging.String(logging.FieldSessionID, id),
		logging.String(logging.FieldOrder, order),
		logging.String("employee", employee),
		logging.String("camera_mode", cfg.CameraMode))
	if err := c.notifier.NotifySessionStarted(ctx, order, employee); err != nil {
		c.logger.Warn("start notification failed", logging.Error(err))
	}
	return nil
}

func (c *Controller) stopLocked(ctx context.Context) error {
	active := c.active
	endedAt := c.now()
	duration := endedAt.Sub(active.StartedAt)

	artifact, stopErr := active.backend.Stop(ctx)
	if stopErr != nil {
		c.logger.Error("capture stop failed, logging session with intended path",
			logging.String(logging.FieldSessionID, active.ID),
			logging.Error(stopErr))
	}

	filePath := active.OutputPath
	var persistErr error
	switch {
	case stopErr != nil:
		if filePath == "" {
			filePath = filepath.Join(active.saveDir,
				textutil.RecordingFileName(active.Order, active.Employee, active.StartedAt, "mp4"))
		}
	case artifact.InMemory():
		filePath, persistErr = c.persistLocalArtifact(ctx, active, artifact)
	case artifact.Path != "":
		filePath = artifact.Path
	}

	record := store.Session{
		Employee:   active.Employee,
		Order:      active.Order,
		Start:      active.StartedAt,
		End:        endedAt,
		DurationMS: duration.Milliseconds(),
		FilePath:   filePath,
	}
	logErr := c.store.LogSession(ctx, record)
	if logErr != nil {
		c.logger.Error("could not log session", logging.Error(logErr))
	}

	active.backend.Dispose()
	c.active = nil

	c.logger.Info("session stopped",
		logging.String(logging.FieldSessionID, active.ID),
		logging.String(logging.FieldOrder, active.Order),
		logging.Duration("duration", duration),
		logging.String("file", filePath))
	if err := c.notifier.NotifySessionStopped(ctx, active.Order, active.Employee, duration, filePath); err != nil {
		c.logger.Warn("stop notification failed", logging.Error(err))
	}
	return errors.Join(stopErr, persistErr, logErr)
}

// persistLocalArtifact writes the in-memory recording to the save directory
// and enqueues a background conversion when the container or resolution
// needs to change. The returned path is the one the session is logged with,
// which for a queued conversion is the path the job will produce.
func (c *Controller) persistLocalArtifact(ctx context.Context, active *ActiveSession, artifact capture.Artifact) (string, error) {
	base := textutil.RecordingBaseName(active.Order, active.Employee, active.StartedAt)
	nativePath := filepath.Join(active.saveDir, base+"."+artifact.Ext)
	finalPath := filepath.Join(active.saveDir, base+".mp4")

	needsConvert := artifact.Container != capture.TargetContainer
	needsUpscale := active.scaleTo1080

	if (needsConvert || needsUpscale) && !c.ffmpegAvailable() {
		c.logger.Warn("ffmpeg not found, keeping native container",
			logging.String("container", artifact.Container))
		needsConvert = false
		needsUpscale = false
	}

	if !needsConvert && !needsUpscale {
		if err := fileutil.WriteFileAtomic(nativePath, artifact.Bytes, 0o644); err != nil {
			return nativePath, services.Wrap(services.ErrPersistence, "session", "stop",
				"write recording", err)
		}
		return nativePath, nil
	}

	sourcePath := filepath.Join(active.saveDir, base+".orig."+artifact.Ext)
	if err := fileutil.WriteFileAtomic(sourcePath, artifact.Bytes, 0o644); err != nil {
		return sourcePath, services.Wrap(services.ErrPersistence, "session", "stop",
			"write recording", err)
	}

	// The job outlives the scan that triggered it.
	jobCtx := context.WithoutCancel(ctx)
	if needsUpscale {
		c.transcoder.Upscale(jobCtx, sourcePath, finalPath, true)
	} else {
		c.transcoder.Convert(jobCtx, sourcePath, finalPath, true)
	}
	return finalPath, nil
}

func (c *Controller) ffmpegAvailable() bool {
	_, err := c.lookPath(c.ffmpegBin)
	return err == nil
}

func (c *Controller) notifyError(ctx context.Context, err error, label string) {
	if notifyErr := c.notifier.NotifyError(ctx, err, label); notifyErr != nil {
		c.logger.Warn("error notification failed", logging.Error(notifyErr))
	}
}
