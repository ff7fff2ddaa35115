package engine

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ftahirops/smartdash/model"
)

const loaderIndex = `{"last_run":1700000000,"last_run_iso":"2023-11-14T22:13:20Z","total_devices":3,
"json_files":["nvme0n1_smart.json","sda_smart.json","sdb_smart.json"]}`

func writeFixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"index.json":         loaderIndex,
		"nvme0n1_smart.json": nvmeDoc,
		"sda_smart.json":     ataDoc,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func checkLoadResult(t *testing.T, res LoadResult) {
	t.Helper()
	if res.Index.TotalDevices != 3 {
		t.Errorf("TotalDevices = %d; want 3", res.Index.TotalDevices)
	}
	if len(res.Records) != 2 {
		t.Fatalf("got %d records; want 2", len(res.Records))
	}
	if res.Records[0].Device != "nvme0n1" || res.Records[1].Device != "sda" {
		t.Errorf("records out of index order: %s, %s", res.Records[0].Device, res.Records[1].Device)
	}
	if len(res.Errors) != 1 || res.Errors[0].File != "sdb_smart.json" {
		t.Errorf("Errors = %v; want one for sdb_smart.json", res.Errors)
	}
}

func TestLoad_DirSource(t *testing.T) {
	dir := writeFixtureDir(t)
	res, err := NewNormalizer(Thresholds{}).Load(context.Background(), NewSource(dir))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	checkLoadResult(t, res)
	if !errors.Is(res.Errors[0], fs.ErrNotExist) {
		t.Errorf("missing file error = %v; want ErrNotExist", res.Errors[0])
	}
}

func TestLoad_HTTPSource(t *testing.T) {
	dir := writeFixtureDir(t)
	srv := httptest.NewServer(http.FileServer(http.Dir(dir)))
	defer srv.Close()

	src := NewSource(srv.URL + "/")
	if _, ok := src.(*HTTPSource); !ok {
		t.Fatalf("NewSource(%q) = %T; want *HTTPSource", srv.URL, src)
	}
	res, err := NewNormalizer(Thresholds{}).Load(context.Background(), src)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	checkLoadResult(t, res)
}

func TestLoad_MissingIndex(t *testing.T) {
	if _, err := NewNormalizer(Thresholds{}).Load(context.Background(), DirSource{Dir: t.TempDir()}); err == nil {
		t.Error("expected error for missing index.json")
	}
}

func TestLoad_MalformedIndex(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.json"), []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadIndex(context.Background(), DirSource{Dir: dir}); err == nil {
		t.Error("expected parse error")
	}
}

func TestDirSource_RejectsPaths(t *testing.T) {
	src := DirSource{Dir: t.TempDir()}
	for _, name := range []string{"", "..", "../etc/passwd", "a/b.json", `a\b.json`} {
		if _, err := src.Open(context.Background(), name); err == nil {
			t.Errorf("Open(%q) succeeded; want error", name)
		}
	}
}

func TestFindRecord(t *testing.T) {
	recs := []model.DeviceHealthRecord{{Device: "sda"}, {Device: "nvme0n1"}}
	if r, ok := FindRecord(recs, "/dev/nvme0n1"); !ok || r.Device != "nvme0n1" {
		t.Errorf("FindRecord(/dev/nvme0n1) = %v, %v", r, ok)
	}
	if _, ok := FindRecord(recs, "sdz"); ok {
		t.Error("FindRecord(sdz) should miss")
	}
}
