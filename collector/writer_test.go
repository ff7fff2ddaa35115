package collector

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ftahirops/smartdash/model"
)

func sampleDoc() model.DeviceDocument {
	return model.DeviceDocument{
		Device:    "/dev/sda",
		Timestamp: 1700000000,
		SmartData: model.SmartData{
			DeviceInfo:  json.RawMessage(`{ "model_name" : "X" }`),
			SmartHealth: json.RawMessage(`{"smart_status":{"passed":true}}`),
		},
	}
}

func TestEncodeDocument_AllFormatsAreValidJSON(t *testing.T) {
	for _, f := range []Format{FormatPretty, FormatCompact, FormatBasic} {
		t.Run(string(f), func(t *testing.T) {
			data, err := EncodeDocument(sampleDoc(), f)
			if err != nil {
				t.Fatalf("EncodeDocument: %v", err)
			}
			var back model.DeviceDocument
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("output not valid JSON: %v\n%s", err, data)
			}
			if string(back.SmartData.SmartErrors) != "{}" {
				t.Errorf("missing sub-document = %s; want {}", back.SmartData.SmartErrors)
			}
		})
	}
}

func TestEncodeDocument_BasicKeepsToolOutputVerbatim(t *testing.T) {
	data, err := EncodeDocument(sampleDoc(), FormatBasic)
	if err != nil {
		t.Fatalf("EncodeDocument: %v", err)
	}
	if !strings.Contains(string(data), `{ "model_name" : "X" }`) {
		t.Errorf("basic output re-formatted tool output:\n%s", data)
	}
}

func TestEncodeDocument_CompactIsSingleLine(t *testing.T) {
	data, err := EncodeDocument(sampleDoc(), FormatCompact)
	if err != nil {
		t.Fatalf("EncodeDocument: %v", err)
	}
	if strings.Count(string(data), "\n") != 1 {
		t.Errorf("compact output has multiple lines:\n%s", data)
	}
}

func TestParseFormat(t *testing.T) {
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("ParseFormat(yaml) should fail")
	}
	if f, err := ParseFormat("basic"); err != nil || f != FormatBasic {
		t.Errorf("ParseFormat(basic) = %q, %v", f, err)
	}
}

func TestWriteFileAtomic_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	if err := WriteFileAtomic(dir, "a.json", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(dir, "a.json", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "a.json"))
	if err != nil || string(got) != `{"v":2}` {
		t.Errorf("content = %q, %v", got, err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("dir entries = %v; want only a.json", names)
	}
}

func TestWriteFileAtomic_MissingDir(t *testing.T) {
	if err := WriteFileAtomic(filepath.Join(t.TempDir(), "nope"), "a.json", []byte("{}")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestBuildIndex_TotalMatchesFiles(t *testing.T) {
	for n := 0; n < 5; n++ {
		files := make([]string, n)
		for i := range files {
			files[i] = model.DeviceFileName(string(rune('a' + i)))
		}
		idx := BuildIndex(files, sampleTime, "", "")
		if idx.TotalDevices != len(idx.JSONFiles) {
			t.Errorf("n=%d: total_devices %d != len(json_files) %d", n, idx.TotalDevices, len(idx.JSONFiles))
		}
	}
}

func TestEncodeIndex_EmptyListIsArray(t *testing.T) {
	data, err := EncodeIndex(BuildIndex(nil, sampleTime, "", ""), FormatCompact)
	if err != nil {
		t.Fatalf("EncodeIndex: %v", err)
	}
	if !strings.Contains(string(data), `"json_files":[]`) {
		t.Errorf("empty index = %s; want json_files []", data)
	}
}
