package collector

import (
	"path/filepath"
	"strings"
)

// DefaultDevicePatterns covers SCSI/SATA, NVMe and legacy IDE naming.
const DefaultDevicePatterns = "/dev/sd* /dev/nvme* /dev/hd*"

// SplitPatterns splits a space-separated glob list.
func SplitPatterns(s string) []string {
	return strings.Fields(s)
}

// Discover expands glob patterns in order, lexical within a pattern,
// dropping duplicates. Malformed patterns are skipped.
func Discover(patterns []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, pat := range patterns {
		matches, err := filepath.Glob(pat)
		if err != nil {
			continue
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}
