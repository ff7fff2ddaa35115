package collector

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"sync"
	"time"
)

// fakeInfo is a minimal fs.FileInfo for device nodes.
type fakeInfo struct {
	name string
	mode fs.FileMode
}

func (f fakeInfo) Name() string       { return f.name }
func (f fakeInfo) Size() int64        { return 0 }
func (f fakeInfo) Mode() fs.FileMode  { return f.mode }
func (f fakeInfo) ModTime() time.Time { return time.Time{} }
func (f fakeInfo) IsDir() bool        { return false }
func (f fakeInfo) Sys() any           { return nil }

// fakeStat reports every listed path as a block device.
func fakeStat(blockDevices ...string) func(string) (fs.FileInfo, error) {
	set := make(map[string]bool)
	for _, d := range blockDevices {
		set[d] = true
	}
	return func(name string) (fs.FileInfo, error) {
		if !set[name] {
			return nil, fs.ErrNotExist
		}
		return fakeInfo{name: name, mode: fs.ModeDevice}, nil
	}
}

// fakeRunner answers smartctl invocations from a table keyed by
// "<args joined by space>". Missing keys return an exit error with no output.
type fakeRunner struct {
	mu      sync.Mutex
	outputs map[string]string
	errs    map[string]error
	calls   []string
}

func (r *fakeRunner) Run(_ context.Context, _ string, args ...string) ([]byte, error) {
	key := strings.Join(args, " ")
	r.mu.Lock()
	r.calls = append(r.calls, key)
	r.mu.Unlock()
	out, ok := r.outputs[key]
	if !ok {
		return nil, errors.New("exit status 2")
	}
	return []byte(out), r.errs[key]
}

func (r *fakeRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// smartctlOK returns canned outputs for all five sub-queries of a device.
func smartctlOK(device string) map[string]string {
	return map[string]string{
		"-i --json " + device:          `{"device":{"name":"` + device + `","protocol":"ATA"},"model_name":"TestDisk","serial_number":"S1"}`,
		"-A --json " + device:          `{"ata_smart_attributes":{"table":[{"id":5,"name":"Reallocated_Sector_Ct","value":90,"worst":90,"thresh":10,"raw":{"value":3}}]}}`,
		"-H --json " + device:          `{"smart_status":{"passed":true}}`,
		"-l error --json " + device:    `{"ata_smart_error_log":{"summary":{"count":0}}}`,
		"-l selftest --json " + device: `{"ata_smart_self_test_log":{"standard":{"table":[]}}}`,
	}
}

func merge(ms ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, m := range ms {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
