package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"packcam/internal/config"
	"packcam/internal/devices"
	"packcam/internal/logging"
	"packcam/internal/notifications"
	"packcam/internal/scanner"
	"packcam/internal/services"
	"packcam/internal/session"
	"packcam/internal/store"
	"packcam/internal/transcode"
)

// Daemon ties the scanner input loop, the session controller, and the
// device monitor into a single lifecycle, with flock-based locking to
// prevent multiple instances from fighting over the capture device.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      store.Store
	controller *session.Controller
	transcoder *transcode.Supervisor
	notifier   notifications.Service
	monitor    *devices.Monitor
	input      io.Reader

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Session      session.Status
	StoreBackend string
	ActiveJobs   int
	LockFilePath string
}

// New constructs a daemon with initialized dependencies. input supplies raw
// scanner keystrokes, normally os.Stdin.
func New(cfg *config.Config, st store.Store, controller *session.Controller, transcoder *transcode.Supervisor, notifier notifications.Service, input io.Reader, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil || controller == nil || transcoder == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, controller, transcoder, and logger")
	}
	if notifier == nil {
		notifier = notifications.NewNoop()
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "packcamd.lock")
	return &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		store:      st,
		controller: controller,
		transcoder: transcoder,
		notifier:   notifier,
		input:      input,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches the input and monitor
// loops.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another packcam daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	d.monitor = devices.NewMonitor(d.logger, nil)
	if err := d.monitor.Start(d.ctx); err != nil {
		d.logger.Warn("device monitor unavailable", logging.Error(err))
	}

	if d.input != nil {
		d.wg.Add(1)
		go d.scanLoop(d.ctx, d.cancel)
	}

	d.running.Store(true)
	d.logger.Info("packcam daemon started", logging.String("lock", d.lockPath))
	return nil
}

// scanLoop decodes scanner keystrokes and feeds them to the controller.
func (d *Daemon) scanLoop(ctx context.Context, cancel context.CancelFunc) {
	defer d.wg.Done()

	events := make(chan scanner.Event, 8)
	decoder := scanner.NewDecoder(func(event scanner.Event) {
		select {
		case events <- event:
		case <-ctx.Done():
		}
	})
	source := scanner.NewTerminalSource(d.input, decoder, d.logger)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-events:
				d.handleScan(ctx, event)
			}
		}
	}()

	if err := source.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, scanner.ErrInterrupted) {
			d.logger.Info("scanner input interrupted")
		} else {
			d.logger.Error("scanner input failed", logging.Error(err))
		}
		cancel()
	}
}

func (d *Daemon) handleScan(ctx context.Context, event scanner.Event) {
	err := d.controller.HandleScan(ctx, event)
	switch {
	case err == nil:
	case services.UserFacing(err):
		d.logger.Info("scan not acted on", logging.Error(err))
	default:
		d.logger.Error("scan handling failed", logging.Error(err))
		if notifyErr := d.notifier.NotifyError(ctx, err, "scan handling"); notifyErr != nil {
			d.logger.Warn("error notification failed", logging.Error(notifyErr))
		}
	}
}

// Stop finishes any active session, drains background conversions, and
// releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	// A recording in flight is stopped and logged rather than discarded.
	if err := d.controller.Stop(context.Background()); err != nil && !services.UserFacing(err) {
		d.logger.Error("could not finish active session during shutdown", logging.Error(err))
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.monitor.Stop()
	d.wg.Wait()
	d.transcoder.Wait()

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("packcam daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status reports runtime information for status displays.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		Session:      d.controller.Status(),
		StoreBackend: d.store.Backend(),
		ActiveJobs:   d.transcoder.Active(),
		LockFilePath: d.lockPath,
	}
}
