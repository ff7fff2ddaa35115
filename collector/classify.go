package collector

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/rs/zerolog/log"

	"github.com/ftahirops/smartdash/model"
)

var (
	nvmeNamespaceRe = regexp.MustCompile(`^nvme[0-9]+n[0-9]+$`)
	trailingDigitRe = regexp.MustCompile(`^[a-z]+[0-9]+$`)
	pSuffixPartRe   = regexp.MustCompile(`^[a-z]+[0-9]+(n[0-9]+)?p[0-9]+$`)
	lettersOnlyRe   = regexp.MustCompile(`^[a-z]+$`)
)

// BlockMetadata is an authoritative source of block device types
// ("disk", "part", "rom", "lvm", ...). Lookup returns false when the
// device is not known to the source.
type BlockMetadata interface {
	Lookup(path string) (string, bool)
}

// Classifier decides which candidate devices are whole disks worth probing.
type Classifier struct {
	// Stat defaults to os.Stat.
	Stat func(name string) (fs.FileInfo, error)
	// Metadata is optional; nil means heuristic only.
	Metadata BlockMetadata
	// Exclude holds glob patterns matched against the full device path.
	Exclude []string
}

// classifyName applies the kernel naming heuristic to a device base name.
func classifyName(name string) (model.DiskClassification, string) {
	switch {
	case nvmeNamespaceRe.MatchString(name):
		return model.ClassDisk, "nvme namespace"
	case trailingDigitRe.MatchString(name):
		return model.ClassPartition, "trailing partition number"
	case pSuffixPartRe.MatchString(name):
		return model.ClassPartition, "p<N> partition suffix"
	case lettersOnlyRe.MatchString(name):
		return model.ClassDisk, "whole-disk name"
	}
	return model.ClassUnknown, "unrecognized name"
}

func isBlockDevice(info fs.FileInfo) bool {
	mode := info.Mode()
	return mode&fs.ModeDevice != 0 && mode&fs.ModeCharDevice == 0
}

// Classify returns the inclusion decision for one device path.
func (c *Classifier) Classify(path string) model.ClassifyDecision {
	dev := model.CandidateDevice{Path: path, Name: filepath.Base(path)}
	d := model.ClassifyDecision{Device: dev}

	stat := c.Stat
	if stat == nil {
		stat = os.Stat
	}
	info, err := stat(path)
	if err != nil {
		// Vanished between enumeration and check
		d.Reason = "not a block device: " + err.Error()
		return d
	}
	if !isBlockDevice(info) {
		d.Reason = "not a block device"
		return d
	}

	class, reason := classifyName(dev.Name)
	if c.Metadata != nil {
		if kind, ok := c.Metadata.Lookup(path); ok {
			switch kind {
			case "part":
				class, reason = model.ClassPartition, "lsblk type part"
			case "disk":
				class, reason = model.ClassDisk, "lsblk type disk"
			}
		}
	}
	d.Class = class
	d.Reason = reason
	// Ambiguous names are included.
	d.Include = class != model.ClassPartition

	if d.Include {
		for _, pat := range c.Exclude {
			if ok, _ := filepath.Match(pat, path); ok {
				d.Include = false
				d.Reason = "excluded by pattern " + pat
				break
			}
		}
	}
	return d
}

// Filter classifies each path and returns the included devices in input order.
func (c *Classifier) Filter(paths []string) []model.CandidateDevice {
	var out []model.CandidateDevice
	for _, p := range paths {
		d := c.Classify(p)
		log.Debug().
			Str("device", p).
			Str("class", d.Class.String()).
			Bool("include", d.Include).
			Str("reason", d.Reason).
			Msg("classified device")
		if d.Include {
			out = append(out, d.Device)
		}
	}
	return out
}
