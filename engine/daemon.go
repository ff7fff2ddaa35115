package engine

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// DaemonConfig holds daemon-specific configuration.
type DaemonConfig struct {
	Interval time.Duration
	PIDFile  string // optional

	// Collect runs one full collection pass.
	Collect func(ctx context.Context) error
}

// RunDaemon runs Collect immediately and then once per Interval until ctx is
// cancelled or SIGINT/SIGTERM arrives. A failing pass is logged and the loop
// continues.
func RunDaemon(ctx context.Context, cfg DaemonConfig) error {
	if cfg.Interval <= 0 {
		return fmt.Errorf("daemon interval must be positive, got %s", cfg.Interval)
	}
	if cfg.Collect == nil {
		return fmt.Errorf("daemon has no collect function")
	}

	if cfg.PIDFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.PIDFile), 0755); err != nil {
			return fmt.Errorf("create pid dir: %w", err)
		}
		if err := os.WriteFile(cfg.PIDFile, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("write pid file: %w", err)
		}
		defer os.Remove(cfg.PIDFile)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	intervalTicker := time.NewTicker(cfg.Interval)
	defer intervalTicker.Stop()

	log.Info().Int("pid", os.Getpid()).Dur("interval", cfg.Interval).Msg("smartdash daemon started")

	pass := 0
	runPass := func() {
		pass++
		start := time.Now()
		if err := cfg.Collect(ctx); err != nil {
			log.Error().Err(err).Int("pass", pass).Msg("collection pass failed")
			return
		}
		log.Debug().Int("pass", pass).Dur("took", time.Since(start)).Msg("collection pass done")
	}

	runPass()
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("passes", pass).Msg("smartdash daemon shutting down")
			return nil
		case <-intervalTicker.C:
			runPass()
		}
	}
}
