package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ftahirops/smartdash/collector"
	"github.com/ftahirops/smartdash/config"
)

// Version is set at build time via ldflags.
var Version = "0.3.0"

// ExitError carries a process exit status back to main.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// options is one parsed invocation: the merged config plus the mode flags
// that are never persisted.
type options struct {
	cfg        config.Config
	configPath string
	cfgExisted bool

	daemon      bool
	serve       bool
	tui         bool
	report      bool
	source      string
	showVersion bool
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `smartdash v%s: SMART disk health collector and dashboard

Usage:
  smartdash [OPTIONS]

Modes:
  (default)         Collect once: probe every disk, write <dev>_smart.json and index.json
  -daemon           Collect every -interval until interrupted
  -serve ADDR       Serve the output directory, JSON API and /metrics over HTTP
  -tui              Interactive dashboard over -source
  -report           Print a health table for -source and exit
  -version          Print version and exit

Options:
  -output DIR       Output directory (default: /var/lib/smartdash)
  -log FILE         Log file; empty disables logging (default: /var/log/smartdash.log)
  -devices "GLOBS"  Space-separated device globs (default: "/dev/sd* /dev/nvme* /dev/hd*")
  -exclude "GLOBS"  Space-separated globs of device paths to skip
  -format STYLE     pretty, compact or basic (default: pretty)
  -dry-run          Classify devices and write only the index
  -verbose          Debug logging
  -config FILE      Config file (default: $XDG_CONFIG_HOME/smartdash/config.json)
  -jobs N           Devices probed concurrently (default: 1)
  -timeout DUR      Per-device smartctl deadline (default: 1m0s)
  -history-db FILE  Record every run in a SQLite history database
  -interval DUR     Collection interval for -daemon, reload interval for -tui (default: 1h0m0s)
  -pid-file FILE    PID file written while -daemon runs
  -source DIR|URL   Where -tui and -report read from (default: -output)

Settings also come from the config file and SMARTDASH_* environment variables.
Precedence: defaults < config file < environment < flags.

Exit status:
  0 success, N when N devices failed, 1 when smartctl is missing, 2 on usage errors.

Examples:
  sudo smartdash
  sudo smartdash -devices "/dev/nvme*" -format compact -output /srv/smart
  sudo smartdash -daemon -interval 30m -history-db /var/lib/smartdash/history.db
  smartdash -serve :9477 -output /srv/smart
  smartdash -tui -source http://nas.local:9477
`, Version)
}

// parseArgs parses args, then layers defaults < file < env < explicitly set flags.
func parseArgs(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("smartdash", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr) }

	var (
		flags    = config.Default()
		opts     = &options{}
		timeout  = time.Duration(flags.Timeout)
		interval = time.Duration(flags.Interval)
		addr     string
	)
	fs.StringVar(&flags.OutputDir, "output", flags.OutputDir, "Output directory")
	fs.StringVar(&flags.LogFile, "log", flags.LogFile, "Log file (empty disables logging)")
	fs.StringVar(&flags.Devices, "devices", flags.Devices, "Space-separated device globs")
	fs.StringVar(&flags.Exclude, "exclude", flags.Exclude, "Space-separated exclude globs")
	fs.StringVar(&flags.Format, "format", flags.Format, "JSON style: pretty, compact, basic")
	fs.BoolVar(&flags.DryRun, "dry-run", false, "Write only the index")
	fs.BoolVar(&flags.Verbose, "verbose", flags.Verbose, "Debug logging")
	fs.StringVar(&opts.configPath, "config", "", "Config file")
	fs.IntVar(&flags.Jobs, "jobs", flags.Jobs, "Devices probed concurrently")
	fs.DurationVar(&timeout, "timeout", timeout, "Per-device smartctl deadline")
	fs.StringVar(&flags.HistoryDB, "history-db", flags.HistoryDB, "SQLite history database")
	fs.BoolVar(&opts.daemon, "daemon", false, "Collect every -interval")
	fs.DurationVar(&interval, "interval", interval, "Collection interval")
	fs.StringVar(&flags.PIDFile, "pid-file", flags.PIDFile, "PID file for -daemon")
	fs.StringVar(&addr, "serve", "", "Serve HTTP on ADDR")
	fs.BoolVar(&opts.tui, "tui", false, "Interactive dashboard")
	fs.BoolVar(&opts.report, "report", false, "Print a health table and exit")
	fs.StringVar(&opts.source, "source", "", "Directory or URL for -tui and -report")
	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, &ExitError{Code: 0}
		}
		// The flag package has already reported the error and usage.
		return nil, &ExitError{Code: 2}
	}
	if fs.NArg() > 0 {
		printUsage(stderr)
		return nil, &ExitError{Code: 2, Err: fmt.Errorf("unexpected argument %q", fs.Arg(0))}
	}
	if opts.showVersion {
		return opts, nil
	}

	if opts.configPath == "" {
		opts.configPath = config.Path()
	}
	cfg, existed, err := config.Load(opts.configPath)
	if err != nil {
		return nil, &ExitError{Code: 2, Err: err}
	}
	opts.cfgExisted = existed

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "output":
			cfg.OutputDir = flags.OutputDir
		case "log":
			cfg.LogFile = flags.LogFile
		case "devices":
			cfg.Devices = flags.Devices
		case "exclude":
			cfg.Exclude = flags.Exclude
		case "format":
			cfg.Format = flags.Format
		case "dry-run":
			cfg.DryRun = flags.DryRun
		case "verbose":
			cfg.Verbose = flags.Verbose
		case "jobs":
			cfg.Jobs = flags.Jobs
		case "timeout":
			cfg.Timeout = config.Duration(timeout)
		case "history-db":
			cfg.HistoryDB = flags.HistoryDB
		case "interval":
			cfg.Interval = config.Duration(interval)
		case "pid-file":
			cfg.PIDFile = flags.PIDFile
		case "serve":
			opts.serve = true
			cfg.ServeAddr = addr
		}
	})
	if err := cfg.Validate(); err != nil {
		printUsage(stderr)
		return nil, &ExitError{Code: 2, Err: err}
	}
	if opts.source == "" {
		opts.source = cfg.OutputDir
	}
	opts.cfg = cfg
	return opts, nil
}

// Run parses args and runs the selected mode.
func Run(args []string) error {
	opts, err := parseArgs(args, os.Stderr)
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Printf("smartdash v%s\n", Version)
		return nil
	}

	closeLog, err := startLogging(opts, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	// First run: persist the effective settings so later runs start from them.
	if !opts.cfgExisted && opts.configPath != "" {
		if err := config.Save(opts.configPath, opts.cfg); err != nil {
			log.Warn().Err(err).Str("path", opts.configPath).Msg("could not write initial config")
		} else {
			log.Info().Str("path", opts.configPath).Msg("wrote initial config")
		}
	}

	ctx := context.Background()
	switch {
	case opts.tui:
		return runTUI(opts)
	case opts.report:
		return runReport(ctx, opts, os.Stdout)
	case opts.serve:
		return runServe(ctx, opts)
	case opts.daemon:
		return runDaemon(ctx, opts)
	}
	return runCollect(ctx, opts, os.Stdout)
}

// startLogging opens the log file. The viewers only read, so for -tui and
// -report an unwritable log file disables logging instead of failing.
func startLogging(opts *options, stderr io.Writer) (func(), error) {
	closeLog, err := setupLogging(opts.cfg.LogFile, opts.cfg.Verbose)
	if err == nil || !(opts.tui || opts.report) {
		return closeLog, err
	}
	fmt.Fprintf(stderr, "smartdash: %v; logging disabled\n", err)
	return setupLogging("", false)
}

// exitForSummary maps a run outcome onto the process exit status.
func exitForSummary(sum collector.RunSummary) error {
	if code := sum.ExitCode(); code != 0 {
		return &ExitError{Code: code, Err: fmt.Errorf("%d device(s) failed", code)}
	}
	return nil
}
