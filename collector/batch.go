package collector

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ftahirops/smartdash/model"
)

// Recorder receives the documents written by a run (e.g. a history store).
type Recorder interface {
	RecordRun(ctx context.Context, runID string, docs []model.DeviceDocument) error
}

// Options configures one collection run.
type Options struct {
	OutputDir  string
	Format     Format
	DryRun     bool
	Jobs       int // <= 1 probes sequentially in discovery order
	Classifier *Classifier
	Prober     *Prober
	Recorder   Recorder // optional
	Hostname   string
	// Now defaults to time.Now.
	Now func() time.Time
}

// DeviceFailure is a device that could not be probed or written.
type DeviceFailure struct {
	Device string
	Err    error
}

// RunSummary accumulates the outcome of one run.
type RunSummary struct {
	RunID      string
	Candidates []model.CandidateDevice
	Files      []string
	Failures   []DeviceFailure
	Index      model.IndexRecord
	DryRun     bool
}

// Succeeded is the number of device files written (or planned in dry-run).
func (s RunSummary) Succeeded() int { return len(s.Files) }

// ExitCode is the number of per-device failures.
func (s RunSummary) ExitCode() int { return len(s.Failures) }

type deviceResult struct {
	file string
	doc  model.DeviceDocument
	err  error
}

// Run classifies devicePaths, probes each disk, writes the per-device
// documents and the index. Per-device problems are collected in the
// summary; only setup or index write errors are returned.
func Run(ctx context.Context, devicePaths []string, opts Options) (RunSummary, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
		// Device timestamps and the index share one clock.
		if opts.Prober != nil && opts.Prober.Now == nil {
			p := *opts.Prober
			p.Now = opts.Now
			opts.Prober = &p
		}
	}
	sum := RunSummary{RunID: uuid.NewString(), DryRun: opts.DryRun}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return sum, fmt.Errorf("create output dir: %w", err)
	}

	classifier := opts.Classifier
	if classifier == nil {
		classifier = &Classifier{}
	}
	sum.Candidates = classifier.Filter(devicePaths)
	log.Info().
		Int("found", len(devicePaths)).
		Int("disks", len(sum.Candidates)).
		Bool("dry_run", opts.DryRun).
		Msg("device discovery complete")

	var docs []model.DeviceDocument
	if opts.DryRun {
		for _, c := range sum.Candidates {
			sum.Files = append(sum.Files, model.DeviceFileName(c.Name))
			log.Info().Str("device", c.Path).Msg("dry run: would probe")
		}
	} else {
		results := probeAll(ctx, sum.Candidates, opts)
		for i, r := range results {
			if r.err != nil {
				sum.Failures = append(sum.Failures, DeviceFailure{Device: sum.Candidates[i].Path, Err: r.err})
				log.Error().Err(r.err).Str("device", sum.Candidates[i].Path).Msg("device probe failed")
				continue
			}
			sum.Files = append(sum.Files, r.file)
			docs = append(docs, r.doc)
		}
	}

	if opts.Recorder != nil && len(docs) > 0 {
		if err := opts.Recorder.RecordRun(ctx, sum.RunID, docs); err != nil {
			log.Warn().Err(err).Msg("failed to record run history")
		}
	}

	sum.Index = BuildIndex(sum.Files, now(), sum.RunID, opts.Hostname)
	if err := WriteIndex(opts.OutputDir, sum.Index, opts.Format); err != nil {
		return sum, fmt.Errorf("write index: %w", err)
	}

	log.Info().
		Str("run_id", sum.RunID).
		Int("succeeded", sum.Succeeded()).
		Int("failed", len(sum.Failures)).
		Msg("collection run finished")
	return sum, nil
}

func probeAll(ctx context.Context, devs []model.CandidateDevice, opts Options) []deviceResult {
	results := make([]deviceResult, len(devs))
	if opts.Jobs <= 1 {
		for i, d := range devs {
			results[i] = probeOne(ctx, d, opts)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(opts.Jobs)
	for i, d := range devs {
		g.Go(func() error {
			results[i] = probeOne(ctx, d, opts)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func probeOne(ctx context.Context, dev model.CandidateDevice, opts Options) deviceResult {
	if err := ctx.Err(); err != nil {
		return deviceResult{err: err}
	}
	doc, err := opts.Prober.Probe(ctx, dev)
	if err != nil {
		return deviceResult{err: err}
	}
	data, err := EncodeDocument(doc, opts.Format)
	if err != nil {
		return deviceResult{err: fmt.Errorf("encode %s: %w", dev.Path, err)}
	}
	name := model.DeviceFileName(dev.Name)
	if err := WriteFileAtomic(opts.OutputDir, name, data); err != nil {
		return deviceResult{err: err}
	}
	log.Debug().Str("device", dev.Path).Str("file", name).Msg("wrote device document")
	return deviceResult{file: name, doc: doc}
}
