package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"packcam/internal/config"
	"packcam/internal/daemon"
	"packcam/internal/logging"
	"packcam/internal/notifications"
	"packcam/internal/session"
	"packcam/internal/store"
	"packcam/internal/transcode"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	st, err := store.Open(cfg, logger)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		os.Exit(1)
	}

	transcoder := transcode.NewSupervisor(cfg.FFmpegBinary(), logger)
	notifier := notifications.NewService(cfg)
	controller := session.NewController(st, transcoder, notifier, cfg.FFmpegBinary(), logger)

	d, err := daemon.New(cfg, st, controller, transcoder, notifier, os.Stdin, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("packcamd shutting down")
}
