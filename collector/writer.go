package collector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ftahirops/smartdash/model"
)

// Format selects how output JSON is laid out.
type Format string

const (
	FormatPretty  Format = "pretty"
	FormatCompact Format = "compact"
	// FormatBasic embeds smartctl output verbatim with no re-formatting.
	FormatBasic Format = "basic"
)

// ParseFormat validates a -format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatPretty, FormatCompact, FormatBasic:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want pretty, compact or basic)", s)
}

// EncodeDocument renders a per-device document in the given format.
func EncodeDocument(doc model.DeviceDocument, f Format) ([]byte, error) {
	doc.SmartData = fillEmpty(doc.SmartData)
	switch f {
	case FormatBasic:
		return encodeBasic(doc)
	case FormatCompact:
		b, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	default:
		b, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	}
}

// EncodeIndex renders the index document. Basic and compact are identical.
func EncodeIndex(idx model.IndexRecord, f Format) ([]byte, error) {
	if idx.JSONFiles == nil {
		idx.JSONFiles = []string{}
	}
	var (
		b   []byte
		err error
	)
	if f == FormatPretty {
		b, err = json.MarshalIndent(idx, "", "  ")
	} else {
		b, err = json.Marshal(idx)
	}
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func fillEmpty(d model.SmartData) model.SmartData {
	for _, p := range []*json.RawMessage{&d.DeviceInfo, &d.SmartAttributes, &d.SmartHealth, &d.SmartErrors, &d.SmartSelfTest} {
		if len(bytes.TrimSpace(*p)) == 0 {
			*p = model.EmptyObject
		}
	}
	return d
}

func encodeBasic(doc model.DeviceDocument) ([]byte, error) {
	dev, err := json.Marshal(doc.Device)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `{"device":%s,"timestamp":%d,"smart_data":{`, dev, doc.Timestamp)
	fmt.Fprintf(&buf, `"device_info":%s,`, doc.SmartData.DeviceInfo)
	fmt.Fprintf(&buf, `"smart_attributes":%s,`, doc.SmartData.SmartAttributes)
	fmt.Fprintf(&buf, `"smart_health":%s,`, doc.SmartData.SmartHealth)
	fmt.Fprintf(&buf, `"smart_errors":%s,`, doc.SmartData.SmartErrors)
	fmt.Fprintf(&buf, `"smart_selftest":%s}}`, doc.SmartData.SmartSelfTest)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// WriteFileAtomic writes data to dir/name through a temp file in the same
// directory followed by a rename, so readers never see a partial file.
func WriteFileAtomic(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		cleanup()
		return fmt.Errorf("chmod %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, name)); err != nil {
		cleanup()
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}
