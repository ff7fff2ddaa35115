package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ftahirops/smartdash/model"
)

// maxDocumentSize caps one fetched JSON file.
const maxDocumentSize = 16 << 20

// Source provides the collector's file interface: index.json plus the
// per-device files it lists.
type Source interface {
	Open(ctx context.Context, name string) ([]byte, error)
	String() string
}

// NewSource returns an HTTPSource for http(s) URLs and a DirSource otherwise.
func NewSource(location string) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return &HTTPSource{Base: location}
	}
	return DirSource{Dir: location}
}

// validName rejects anything that is not a plain file name.
func validName(name string) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid file name %q", name)
	}
	return nil
}

// DirSource reads files from a local output directory.
type DirSource struct {
	Dir string
}

func (s DirSource) Open(_ context.Context, name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(s.Dir, name))
}

func (s DirSource) String() string { return s.Dir }

// HTTPSource fetches files relative to a base URL.
type HTTPSource struct {
	Base   string
	Client *http.Client
}

func (s *HTTPSource) Open(ctx context.Context, name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	url := strings.TrimRight(s.Base, "/") + "/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", url, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
}

func (s *HTTPSource) String() string { return s.Base }

// FileError is a per-device file that could not be loaded.
type FileError struct {
	File string
	Err  error
}

func (e FileError) Error() string { return e.File + ": " + e.Err.Error() }

func (e FileError) Unwrap() error { return e.Err }

// LoadResult is one snapshot of the file interface.
type LoadResult struct {
	Index   model.IndexRecord
	Records []model.DeviceHealthRecord // index order; failed files omitted
	Errors  []FileError
}

// LoadIndex reads and decodes index.json.
func LoadIndex(ctx context.Context, src Source) (model.IndexRecord, error) {
	var idx model.IndexRecord
	data, err := src.Open(ctx, model.IndexFileName)
	if err != nil {
		return idx, fmt.Errorf("load index from %s: %w", src, err)
	}
	if err := json.Unmarshal(data, &idx); err != nil {
		return idx, fmt.Errorf("parse index from %s: %w", src, err)
	}
	return idx, nil
}

// Load reads the index, then fetches and normalizes every listed file in
// parallel. Only an unreadable index is an error; per-file failures are
// reported in the result.
func (n *Normalizer) Load(ctx context.Context, src Source) (LoadResult, error) {
	idx, err := LoadIndex(ctx, src)
	if err != nil {
		return LoadResult{}, err
	}

	type slot struct {
		rec model.DeviceHealthRecord
		err error
	}
	slots := make([]slot, len(idx.JSONFiles))
	var g errgroup.Group
	g.SetLimit(8)
	for i, name := range idx.JSONFiles {
		g.Go(func() error {
			data, err := src.Open(ctx, name)
			if err != nil {
				slots[i].err = err
				return nil
			}
			slots[i].rec = n.NormalizeBytes(data)
			return nil
		})
	}
	_ = g.Wait()

	res := LoadResult{Index: idx}
	for i, s := range slots {
		if s.err != nil {
			res.Errors = append(res.Errors, FileError{File: idx.JSONFiles[i], Err: s.err})
			continue
		}
		res.Records = append(res.Records, s.rec)
	}
	return res, nil
}

// FindRecord returns the record whose Device equals id ("/dev/" optional).
func FindRecord(records []model.DeviceHealthRecord, id string) (model.DeviceHealthRecord, bool) {
	id = strings.TrimPrefix(id, "/dev/")
	for _, r := range records {
		if r.Device == id {
			return r, true
		}
	}
	return model.DeviceHealthRecord{}, false
}
