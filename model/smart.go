package model

import "time"

// DiskClassification is the outcome of deciding whether a block device is a whole disk.
type DiskClassification int

const (
	ClassUnknown DiskClassification = iota
	ClassDisk
	ClassPartition
)

func (c DiskClassification) String() string {
	switch c {
	case ClassDisk:
		return "disk"
	case ClassPartition:
		return "partition"
	default:
		return "unknown"
	}
}

// CandidateDevice is a block device path found by discovery.
type CandidateDevice struct {
	Path string // e.g., "/dev/sda", "/dev/nvme0n1"
	Name string // base name: "sda", "nvme0n1"
}

// ClassifyDecision records why a candidate was kept or dropped.
type ClassifyDecision struct {
	Device  CandidateDevice
	Class   DiskClassification
	Include bool
	Reason  string
}

// HealthVerdict is the overall or per-attribute health state.
type HealthVerdict string

const (
	HealthGood     HealthVerdict = "Good"
	HealthWarning  HealthVerdict = "Warning"
	HealthCritical HealthVerdict = "Critical"
	HealthUnknown  HealthVerdict = "Unknown"
)

// Device type labels.
const (
	DeviceTypeATA     = "ATA"
	DeviceTypeNVMe    = "NVMe"
	DeviceTypeSCSI    = "SCSI"
	DeviceTypeDefault = "SATA/SCSI"
)

// Schema names the raw smartctl layout a record was built from.
type Schema string

const (
	SchemaATA     Schema = "ata"
	SchemaNVMe    Schema = "nvme"
	SchemaGeneric Schema = "generic"
	SchemaUnknown Schema = "unknown"
)

// DeviceHealthRecord is the canonical, UI-facing view of one disk.
type DeviceHealthRecord struct {
	Device          string           `json:"device"` // "/dev/" stripped
	DisplayName     string           `json:"displayName"`
	Model           string           `json:"model"`
	Serial          string           `json:"serial"`
	Firmware        string           `json:"firmware"`
	Capacity        string           `json:"capacity"`
	DeviceType      string           `json:"deviceType"`
	Health          HealthVerdict    `json:"health"`
	PowerOnHours    int64            `json:"powerOnHours"`
	Temperature     *int             `json:"temperature,omitempty"` // Celsius
	LastChecked     *time.Time       `json:"lastChecked,omitempty"`
	Schema          Schema           `json:"schema"`
	SmartAttributes []SmartAttribute `json:"smartAttributes"`
	SelfTestLog     []SelfTestEntry  `json:"selftestLog"`
}

// SmartAttribute is one row of the attribute table, real or synthesized.
type SmartAttribute struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Value     int64         `json:"value"`
	Worst     int64         `json:"worst"`
	Threshold int64         `json:"threshold"`
	Raw       string        `json:"raw"`
	Status    HealthVerdict `json:"status"`
}

// SelfTestEntry is one row of the device self-test log.
type SelfTestEntry struct {
	Timestamp     string `json:"timestamp"` // RFC 3339 or lifetime-hours marker
	LifetimeHours *int64 `json:"lifetimeHours,omitempty"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	Duration      string `json:"duration"`
}
