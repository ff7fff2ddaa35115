package collector

import (
	"context"
	"encoding/json"
	"fmt"
)

// lsblk JSON structures
type lsblkOutput struct {
	BlockDevices []lsblkDevice `json:"blockdevices"`
}

type lsblkDevice struct {
	Name     string        `json:"name"`
	Type     string        `json:"type"`
	Children []lsblkDevice `json:"children"`
}

// LsblkMetadata maps full device paths to their lsblk TYPE column.
type LsblkMetadata map[string]string

func (m LsblkMetadata) Lookup(path string) (string, bool) {
	t, ok := m[path]
	return t, ok
}

// LoadLsblk runs `lsblk -J -p -o NAME,TYPE` once. It returns an error when
// lsblk is unavailable, in which case callers fall back to the heuristic.
func LoadLsblk(ctx context.Context, r Runner) (LsblkMetadata, error) {
	out, err := r.Run(ctx, "lsblk", "-J", "-p", "-o", "NAME,TYPE")
	if err != nil && len(out) == 0 {
		return nil, fmt.Errorf("run lsblk: %w", err)
	}
	return parseLsblk(out)
}

func parseLsblk(data []byte) (LsblkMetadata, error) {
	var out lsblkOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse lsblk output: %w", err)
	}
	meta := make(LsblkMetadata)
	var walk func(devs []lsblkDevice)
	walk = func(devs []lsblkDevice) {
		for _, d := range devs {
			if d.Name != "" {
				meta[d.Name] = d.Type
			}
			walk(d.Children)
		}
	}
	walk(out.BlockDevices)
	return meta, nil
}
