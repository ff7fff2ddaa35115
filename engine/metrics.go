package engine

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/ftahirops/smartdash/model"
)

// MetricsStore holds the latest normalized records for exporters.
type MetricsStore struct {
	mu      sync.RWMutex
	records []model.DeviceHealthRecord
	errors  int
	ts      time.Time
}

// NewMetricsStore creates a new store.
func NewMetricsStore() *MetricsStore {
	return &MetricsStore{}
}

// Update stores the latest load result.
func (s *MetricsStore) Update(res LoadResult) {
	s.mu.Lock()
	s.records = res.Records
	s.errors = len(res.Errors)
	s.ts = time.Now()
	s.mu.Unlock()
}

// Snapshot returns the latest stored records.
func (s *MetricsStore) Snapshot() ([]model.DeviceHealthRecord, int, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records, s.errors, s.ts
}

// Handler exposes Prometheus metrics for the latest records.
func (s *MetricsStore) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recs, errs, ts := s.Snapshot()
		if ts.IsZero() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("# no data yet\n"))
			return
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writePrometheus(w, recs, errs)
	})
}

// healthValue maps a verdict onto a gauge: 0 good, 1 warning, 2 critical, -1 unknown.
func healthValue(h model.HealthVerdict) int {
	switch h {
	case model.HealthGood:
		return 0
	case model.HealthWarning:
		return 1
	case model.HealthCritical:
		return 2
	}
	return -1
}

func writePrometheus(w io.Writer, recs []model.DeviceHealthRecord, loadErrors int) {
	write := func(format string, args ...interface{}) {
		_, _ = fmt.Fprintf(w, format, args...)
	}

	sorted := make([]model.DeviceHealthRecord, len(recs))
	copy(sorted, recs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Device < sorted[j].Device
	})

	write("# TYPE smartdash_up gauge\n")
	write("smartdash_up 1\n")
	write("# TYPE smartdash_devices gauge\n")
	write("smartdash_devices %d\n", len(sorted))
	write("# TYPE smartdash_load_errors gauge\n")
	write("smartdash_load_errors %d\n", loadErrors)

	write("# TYPE smartdash_device_health gauge\n")
	for _, r := range sorted {
		write("smartdash_device_health{device=%q,model=%q,serial=%q,type=%q} %d\n",
			r.Device, r.Model, r.Serial, r.DeviceType, healthValue(r.Health))
	}
	write("# TYPE smartdash_device_temperature_celsius gauge\n")
	for _, r := range sorted {
		if r.Temperature != nil {
			write("smartdash_device_temperature_celsius{device=%q} %d\n", r.Device, *r.Temperature)
		}
	}
	write("# TYPE smartdash_device_power_on_hours gauge\n")
	for _, r := range sorted {
		write("smartdash_device_power_on_hours{device=%q} %d\n", r.Device, r.PowerOnHours)
	}
	write("# TYPE smartdash_device_last_checked_seconds gauge\n")
	for _, r := range sorted {
		if r.LastChecked != nil {
			write("smartdash_device_last_checked_seconds{device=%q} %d\n", r.Device, r.LastChecked.Unix())
		}
	}

	writeAttributeMetrics(w, sorted)
}

func writeAttributeMetrics(w io.Writer, recs []model.DeviceHealthRecord) {
	_, _ = fmt.Fprintln(w, "# TYPE smartdash_attribute_status gauge")
	_, _ = fmt.Fprintln(w, "# TYPE smartdash_attribute_value gauge")
	for _, r := range recs {
		for _, a := range r.SmartAttributes {
			_, _ = fmt.Fprintf(w, "smartdash_attribute_status{device=%q,id=%q,name=%q} %d\n",
				r.Device, a.ID, a.Name, healthValue(a.Status))
			_, _ = fmt.Fprintf(w, "smartdash_attribute_value{device=%q,id=%q,name=%q} %d\n",
				r.Device, a.ID, a.Name, a.Value)
		}
	}
}
