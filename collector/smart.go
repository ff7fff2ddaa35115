package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ftahirops/smartdash/model"
	"github.com/ftahirops/smartdash/util"
)

var (
	// ErrSmartctlMissing is fatal for the whole run.
	ErrSmartctlMissing = errors.New("smartctl not found")
	// ErrDeviceUnavailable marks a per-device failure; the batch continues.
	ErrDeviceUnavailable = errors.New("device unavailable")
)

// FindSmartctl resolves the smartctl binary on PATH.
func FindSmartctl() (string, error) {
	path, err := exec.LookPath("smartctl")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSmartctlMissing, err)
	}
	return path, nil
}

// subQuery is one smartctl facet stored under SmartData.
type subQuery struct {
	key  string
	args []string
	set  func(*model.SmartData, json.RawMessage)
}

var subQueries = []subQuery{
	{"device_info", []string{"-i"}, func(d *model.SmartData, v json.RawMessage) { d.DeviceInfo = v }},
	{"smart_attributes", []string{"-A"}, func(d *model.SmartData, v json.RawMessage) { d.SmartAttributes = v }},
	{"smart_health", []string{"-H"}, func(d *model.SmartData, v json.RawMessage) { d.SmartHealth = v }},
	{"smart_errors", []string{"-l", "error"}, func(d *model.SmartData, v json.RawMessage) { d.SmartErrors = v }},
	{"smart_selftest", []string{"-l", "selftest"}, func(d *model.SmartData, v json.RawMessage) { d.SmartSelfTest = v }},
}

// Prober runs the five smartctl sub-queries for one disk.
type Prober struct {
	Smartctl string
	Runner   Runner
	// Stat defaults to os.Stat.
	Stat func(name string) (fs.FileInfo, error)
	// Timeout bounds one device probe; zero means no deadline.
	Timeout time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Probe captures a raw per-device document. A failing sub-query becomes
// an empty object; only an inaccessible device returns an error.
func (p *Prober) Probe(ctx context.Context, dev model.CandidateDevice) (model.DeviceDocument, error) {
	stat := p.Stat
	if stat == nil {
		stat = os.Stat
	}
	info, err := stat(dev.Path)
	if err != nil {
		return model.DeviceDocument{}, fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, dev.Path, err)
	}
	if !isBlockDevice(info) {
		return model.DeviceDocument{}, fmt.Errorf("%w: %s is not a block device", ErrDeviceUnavailable, dev.Path)
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	doc := model.DeviceDocument{Device: dev.Path, Timestamp: now().Unix()}
	for _, q := range subQueries {
		q.set(&doc.SmartData, p.query(ctx, dev.Path, q))
	}
	return doc, nil
}

func (p *Prober) query(ctx context.Context, device string, q subQuery) json.RawMessage {
	args := append(append([]string{}, q.args...), "--json", device)
	out, err := p.Runner.Run(ctx, p.Smartctl, args...)
	// smartctl exits non-zero for many non-error reasons (bitmask status)
	if util.IsJSONObject(out) {
		return json.RawMessage(bytes.TrimSpace(out))
	}
	ev := log.Warn().Str("device", device).Str("query", q.key)
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg("sub-query returned no valid JSON, storing {}")
	return model.EmptyObject
}
