package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ftahirops/smartdash/engine"
	"github.com/ftahirops/smartdash/ui"
)

func runReport(ctx context.Context, opts *options, out io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	n := engine.NewNormalizer(thresholds(opts.cfg))
	res, err := n.Load(ctx, engine.NewSource(opts.source))
	if err != nil {
		return err
	}
	fmt.Fprint(out, ui.RenderReport(res, time.Now()))
	if len(res.Errors) > 0 {
		return &ExitError{Code: len(res.Errors), Err: fmt.Errorf("%d file(s) could not be loaded", len(res.Errors))}
	}
	return nil
}

func runTUI(opts *options) error {
	refresh := time.Duration(opts.cfg.Interval)
	m := ui.NewModel(engine.NewSource(opts.source), engine.NewNormalizer(thresholds(opts.cfg)), refresh)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
