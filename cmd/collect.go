package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ftahirops/smartdash/collector"
	"github.com/ftahirops/smartdash/config"
	"github.com/ftahirops/smartdash/engine"
	"github.com/ftahirops/smartdash/ui"
)

func thresholds(cfg config.Config) engine.Thresholds {
	return engine.Thresholds{TemperatureC: int64(cfg.NVMeTempC), PercentageUsed: int64(cfg.NVMePercentUsed)}
}

// openHistory opens the optional history store; nil when disabled.
func openHistory(cfg config.Config) (*engine.History, error) {
	if cfg.HistoryDB == "" {
		return nil, nil
	}
	h, err := engine.OpenHistory(cfg.HistoryDB, engine.NewNormalizer(thresholds(cfg)))
	if err != nil {
		return nil, err
	}
	return h, nil
}

// collectOnce runs one full collection pass with the real smartctl and lsblk.
func collectOnce(ctx context.Context, cfg config.Config, hist *engine.History) (collector.RunSummary, error) {
	smartctl, err := collector.FindSmartctl()
	if err != nil {
		return collector.RunSummary{}, err
	}
	format, err := collector.ParseFormat(cfg.Format)
	if err != nil {
		return collector.RunSummary{}, err
	}

	runner := collector.ExecRunner{}
	classifier := &collector.Classifier{Exclude: collector.SplitPatterns(cfg.Exclude)}
	if meta, err := collector.LoadLsblk(ctx, runner); err != nil {
		log.Debug().Err(err).Msg("lsblk unavailable, classifying by name only")
	} else {
		classifier.Metadata = meta
	}

	opts := collector.Options{
		OutputDir:  cfg.OutputDir,
		Format:     format,
		DryRun:     cfg.DryRun,
		Jobs:       cfg.Jobs,
		Classifier: classifier,
		Prober: &collector.Prober{
			Smartctl: smartctl,
			Runner:   runner,
			Timeout:  time.Duration(cfg.Timeout),
		},
		Hostname: collector.Hostname(),
	}
	if hist != nil {
		opts.Recorder = hist
	}

	paths := collector.Discover(collector.SplitPatterns(cfg.Devices))
	return collector.Run(ctx, paths, opts)
}

func runCollect(ctx context.Context, opts *options, out io.Writer) error {
	hist, err := openHistory(opts.cfg)
	if err != nil {
		return err
	}
	if hist != nil {
		defer hist.Close()
	}

	sum, err := collectOnce(ctx, opts.cfg, hist)
	if errors.Is(err, collector.ErrSmartctlMissing) {
		log.Error().Err(err).Msg("smartctl is required")
		return &ExitError{Code: 1, Err: fmt.Errorf("%w: install smartmontools", err)}
	}
	if err != nil {
		return err
	}
	fmt.Fprint(out, ui.RenderRunSummary(sum))
	return exitForSummary(sum)
}

func runDaemon(ctx context.Context, opts *options) error {
	if _, err := collector.FindSmartctl(); err != nil {
		return &ExitError{Code: 1, Err: err}
	}
	hist, err := openHistory(opts.cfg)
	if err != nil {
		return err
	}
	if hist != nil {
		defer hist.Close()
	}
	return engine.RunDaemon(ctx, daemonConfig(opts.cfg, hist))
}

func daemonConfig(cfg config.Config, hist *engine.History) engine.DaemonConfig {
	return engine.DaemonConfig{
		Interval: time.Duration(cfg.Interval),
		PIDFile:  cfg.PIDFile,
		Collect: func(ctx context.Context) error {
			sum, err := collectOnce(ctx, cfg, hist)
			if err != nil {
				return err
			}
			if n := len(sum.Failures); n > 0 {
				return fmt.Errorf("%d of %d device(s) failed", n, len(sum.Candidates))
			}
			return nil
		},
	}
}
