package collector

import (
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/ftahirops/smartdash/model"
)

// BuildIndex assembles the run manifest. TotalDevices always equals
// len(JSONFiles).
func BuildIndex(files []string, now time.Time, runID, hostname string) model.IndexRecord {
	list := make([]string, len(files))
	copy(list, files)
	return model.IndexRecord{
		LastRun:      now.Unix(),
		LastRunISO:   now.UTC().Format(time.RFC3339),
		TotalDevices: len(list),
		JSONFiles:    list,
		RunID:        runID,
		Hostname:     hostname,
	}
}

// WriteIndex atomically replaces dir/index.json.
func WriteIndex(dir string, idx model.IndexRecord, f Format) error {
	data, err := EncodeIndex(idx, f)
	if err != nil {
		return err
	}
	return WriteFileAtomic(dir, model.IndexFileName, data)
}

// Hostname reports the collecting host for the index.
func Hostname() string {
	if info, err := host.Info(); err == nil && info.Hostname != "" {
		return info.Hostname
	}
	name, _ := os.Hostname()
	return name
}
