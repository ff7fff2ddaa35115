package model

import "encoding/json"

// DeviceFileSuffix is appended to a device base name to form its output file.
const DeviceFileSuffix = "_smart.json"

// IndexFileName is the manifest written after every run.
const IndexFileName = "index.json"

// DeviceFileName returns "<base>_smart.json" for a device base name.
func DeviceFileName(base string) string {
	return base + DeviceFileSuffix
}

// DeviceDocument is the per-device file written by the collector.
type DeviceDocument struct {
	Device    string    `json:"device"`
	Timestamp int64     `json:"timestamp"` // unix seconds
	SmartData SmartData `json:"smart_data"`
}

// SmartData holds the five smartctl sub-query outputs verbatim.
// A failed or invalid sub-query is stored as "{}".
type SmartData struct {
	DeviceInfo      json.RawMessage `json:"device_info"`
	SmartAttributes json.RawMessage `json:"smart_attributes"`
	SmartHealth     json.RawMessage `json:"smart_health"`
	SmartErrors     json.RawMessage `json:"smart_errors"`
	SmartSelfTest   json.RawMessage `json:"smart_selftest"`
}

// EmptyObject is the placeholder for a failed sub-query.
var EmptyObject = json.RawMessage(`{}`)

// IndexRecord is the manifest of one collection run.
type IndexRecord struct {
	LastRun      int64    `json:"last_run"`
	LastRunISO   string   `json:"last_run_iso"`
	TotalDevices int      `json:"total_devices"`
	JSONFiles    []string `json:"json_files"`
	RunID        string   `json:"run_id,omitempty"`
	Hostname     string   `json:"hostname,omitempty"`
}
