package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ftahirops/smartdash/model"
	"github.com/ftahirops/smartdash/util"
)

// Placeholders for fields no alias could fill.
const (
	UnknownDevice   = "Unknown Device"
	UnknownModel    = "Unknown Model"
	UnknownSerial   = "Unknown Serial"
	UnknownFirmware = "Unknown Firmware"
	UnknownSize     = "Unknown Size"
)

// Field aliases, tried in order; first present and non-empty wins.
var (
	modelKeys    = [][]string{{"model_name"}, {"scsi_model_name"}, {"product"}, {"model_family"}}
	serialKeys   = [][]string{{"serial_number"}, {"scsi_serial_number"}}
	firmwareKeys = [][]string{{"firmware_version"}, {"scsi_revision"}, {"revision"}}
	capacityKeys = [][]string{{"nvme_total_capacity"}, {"user_capacity", "bytes"}, {"user_capacity"}}
	healthKeys   = [][]string{{"overall_health"}, {"smart_health_status"}, {"smart_status", "string"}}
)

// Thresholds are the Good/Warning cut-offs for synthetic NVMe attributes.
type Thresholds struct {
	TemperatureC   int64 `json:"nvme_temperature_c"`   // Good iff below
	PercentageUsed int64 `json:"nvme_percentage_used"` // Good iff below
}

// DefaultThresholds returns 70 °C and 80 % used.
func DefaultThresholds() Thresholds {
	return Thresholds{TemperatureC: 70, PercentageUsed: 80}
}

// Normalizer maps raw per-device documents to canonical records.
// It never fails: malformed input yields placeholder fields.
type Normalizer struct {
	Thresholds Thresholds
}

// NewNormalizer creates a normalizer; zero thresholds take the defaults.
func NewNormalizer(t Thresholds) *Normalizer {
	def := DefaultThresholds()
	if t.TemperatureC <= 0 {
		t.TemperatureC = def.TemperatureC
	}
	if t.PercentageUsed <= 0 {
		t.PercentageUsed = def.PercentageUsed
	}
	return &Normalizer{Thresholds: t}
}

// Normalize normalizes an encoded per-device file with default thresholds.
func Normalize(data []byte) model.DeviceHealthRecord {
	return NewNormalizer(Thresholds{}).NormalizeBytes(data)
}

// NormalizeBytes decodes a per-device file leniently and normalizes it.
func (n *Normalizer) NormalizeBytes(data []byte) model.DeviceHealthRecord {
	return n.normalize(parseDocument(data))
}

// NormalizeDocument normalizes an already decoded per-device document.
func (n *Normalizer) NormalizeDocument(doc model.DeviceDocument) model.DeviceHealthRecord {
	return n.normalize(fromDocument(doc))
}

func (n *Normalizer) normalize(d rawDocument) model.DeviceHealthRecord {
	v := d.variant()

	rec := model.DeviceHealthRecord{
		Device:     d.deviceID(),
		Model:      d.firstString(modelKeys, UnknownModel),
		Serial:     d.firstString(serialKeys, UnknownSerial),
		Firmware:   d.firstString(firmwareKeys, UnknownFirmware),
		Capacity:   d.capacity(),
		DeviceType: d.deviceType(v),
		Health:     d.health(),
		Schema:     v.schema(),
	}
	rec.DisplayName = rec.Device
	if rec.Model != UnknownModel {
		rec.DisplayName = fmt.Sprintf("%s (%s)", rec.Model, rec.Device)
	}
	if ts := d.checkedAt(); !ts.IsZero() {
		rec.LastChecked = &ts
	}
	rec.PowerOnHours = d.powerOnHours(v)
	if t, ok := d.temperature(v); ok {
		rec.Temperature = &t
	}

	switch v := v.(type) {
	case nvmeVariant:
		rec.SmartAttributes = n.nvmeAttributes(v)
		rec.SelfTestLog = []model.SelfTestEntry{nvmeHealthCheck(rec.Health, rec.LastChecked)}
	case ataVariant:
		rec.SmartAttributes = tableAttributes(v.table)
		rec.SelfTestLog = ataSelfTests(v.selftests)
	case genericVariant:
		rec.SmartAttributes = v.attrs
	}
	if rec.SmartAttributes == nil {
		rec.SmartAttributes = []model.SmartAttribute{}
	}
	if rec.SelfTestLog == nil {
		rec.SelfTestLog = []model.SelfTestEntry{}
	}
	return rec
}

// ─── RAW DOCUMENT ────────────────────────────────────────────────────────────

// rawDocument is a leniently decoded per-device file. Facets are nil when
// the sub-document was missing or not an object.
type rawDocument struct {
	device      string
	timestamp   int64
	info        map[string]any
	attrs       map[string]any
	healthFacet map[string]any
	errs        map[string]any
	selftest    map[string]any
	attrsRaw    json.RawMessage
}

func parseDocument(data []byte) rawDocument {
	var d rawDocument
	top := util.DecodeObject(data)
	if top == nil {
		return d
	}
	if s, ok := util.AsString(top["device"]); ok {
		d.device = s
	}
	if ts, ok := util.AsInt64(top["timestamp"]); ok {
		d.timestamp = ts
	}
	sd, ok := util.AsObject(top["smart_data"])
	if !ok {
		return d
	}
	d.info, _ = util.AsObject(sd["device_info"])
	d.attrs, _ = util.AsObject(sd["smart_attributes"])
	d.healthFacet, _ = util.AsObject(sd["smart_health"])
	d.errs, _ = util.AsObject(sd["smart_errors"])
	d.selftest, _ = util.AsObject(sd["smart_selftest"])

	// Key order of the attributes facet matters for the generic shape.
	var raw struct {
		SmartData struct {
			SmartAttributes json.RawMessage `json:"smart_attributes"`
		} `json:"smart_data"`
	}
	if json.Unmarshal(data, &raw) == nil {
		d.attrsRaw = raw.SmartData.SmartAttributes
	}
	return d
}

func fromDocument(doc model.DeviceDocument) rawDocument {
	return rawDocument{
		device:      doc.Device,
		timestamp:   doc.Timestamp,
		info:        util.DecodeObject(doc.SmartData.DeviceInfo),
		attrs:       util.DecodeObject(doc.SmartData.SmartAttributes),
		healthFacet: util.DecodeObject(doc.SmartData.SmartHealth),
		errs:        util.DecodeObject(doc.SmartData.SmartErrors),
		selftest:    util.DecodeObject(doc.SmartData.SmartSelfTest),
		attrsRaw:    doc.SmartData.SmartAttributes,
	}
}

// lookup searches the facets in priority order.
func (d rawDocument) lookup(path ...string) (any, bool) {
	for _, f := range []map[string]any{d.info, d.healthFacet, d.attrs, d.selftest, d.errs} {
		if f == nil {
			continue
		}
		if v, ok := util.Lookup(f, path...); ok {
			return v, true
		}
	}
	return nil, false
}

func (d rawDocument) firstString(aliases [][]string, fallback string) string {
	for _, path := range aliases {
		if v, ok := d.lookup(path...); ok {
			if s, ok := util.AsString(v); ok {
				return s
			}
		}
	}
	return fallback
}

func (d rawDocument) deviceID() string {
	dev := d.device
	if dev == "" {
		if v, ok := d.lookup("device", "name"); ok {
			dev, _ = util.AsString(v)
		}
	}
	dev = strings.TrimPrefix(dev, "/dev/")
	if dev == "" {
		return UnknownDevice
	}
	return dev
}

func (d rawDocument) capacity() string {
	for _, path := range capacityKeys {
		v, ok := d.lookup(path...)
		if !ok {
			continue
		}
		if bytes, ok := util.AsInt64(v); ok && bytes > 0 {
			return fmt.Sprintf("%d GB", int64(math.Round(float64(bytes)/(1024*1024*1024))))
		}
	}
	return UnknownSize
}

func (d rawDocument) deviceType(v variant) string {
	for _, key := range []string{"protocol", "type"} {
		raw, ok := d.lookup("device", key)
		if !ok {
			continue
		}
		s, _ := util.AsString(raw)
		if t := canonicalDeviceType(s); t != "" {
			return t
		}
	}
	if _, ok := v.(nvmeVariant); ok {
		return model.DeviceTypeNVMe
	}
	return model.DeviceTypeDefault
}

func canonicalDeviceType(s string) string {
	s = strings.ToLower(s)
	switch {
	case s == "":
		return ""
	case strings.Contains(s, "nvme"):
		return model.DeviceTypeNVMe
	case s == "ata" || s == "sat" || strings.HasPrefix(s, "sat,"):
		return model.DeviceTypeATA
	case s == "scsi":
		return model.DeviceTypeSCSI
	}
	return ""
}

func (d rawDocument) health() model.HealthVerdict {
	if v, ok := d.lookup("smart_status", "passed"); ok {
		if passed, ok := util.AsBool(v); ok {
			if passed {
				return model.HealthGood
			}
			return model.HealthCritical
		}
	}
	for _, path := range healthKeys {
		if v, ok := d.lookup(path...); ok {
			if s, ok := util.AsString(v); ok {
				if s == "PASSED" {
					return model.HealthGood
				}
				return model.HealthWarning
			}
		}
	}
	return model.HealthUnknown
}

func (d rawDocument) checkedAt() time.Time {
	if d.timestamp > 0 {
		return time.Unix(d.timestamp, 0).UTC()
	}
	if v, ok := d.lookup("local_time", "time_t"); ok {
		if ts, ok := util.AsInt64(v); ok && ts > 0 {
			return time.Unix(ts, 0).UTC()
		}
	}
	return time.Time{}
}

func (d rawDocument) powerOnHours(v variant) int64 {
	if raw, ok := d.lookup("power_on_time", "hours"); ok {
		if h, ok := util.AsInt64(raw); ok {
			return h
		}
	}
	switch v := v.(type) {
	case nvmeVariant:
		if h, ok := util.AsInt64(v.log["power_on_hours"]); ok {
			return h
		}
	case ataVariant:
		if row := findRow(v.table, 9); row != nil {
			if h, ok := rawNumber(row["raw"]); ok {
				return h
			}
		}
	}
	return 0
}

func (d rawDocument) temperature(v variant) (int, bool) {
	if raw, ok := d.lookup("temperature", "current"); ok {
		if t, ok := util.AsInt64(raw); ok {
			return int(t), true
		}
	}
	switch v := v.(type) {
	case nvmeVariant:
		if t, ok := util.AsInt64(v.log["temperature"]); ok {
			return int(t), true
		}
	case ataVariant:
		for _, id := range []int64{194, 190} {
			if row := findRow(v.table, id); row != nil {
				if t, ok := rawTemperature(row["raw"]); ok {
					return int(t), true
				}
			}
		}
	}
	return 0, false
}

// ─── SCHEMA VARIANTS ─────────────────────────────────────────────────────────

// variant is the raw attribute layout, decided once per document.
type variant interface {
	schema() model.Schema
}

type ataVariant struct {
	table     []any
	selftests []any
}

type nvmeVariant struct {
	log map[string]any
}

type genericVariant struct {
	attrs []model.SmartAttribute
}

type unknownVariant struct{}

func (ataVariant) schema() model.Schema     { return model.SchemaATA }
func (nvmeVariant) schema() model.Schema    { return model.SchemaNVMe }
func (genericVariant) schema() model.Schema { return model.SchemaGeneric }
func (unknownVariant) schema() model.Schema { return model.SchemaUnknown }

func (d rawDocument) variant() variant {
	if v, ok := d.lookup("nvme_smart_health_information_log"); ok {
		if log, ok := util.AsObject(v); ok {
			return nvmeVariant{log: log}
		}
	}
	if v, ok := d.lookup("ata_smart_attributes", "table"); ok {
		if table, ok := v.([]any); ok {
			var tests []any
			if t, ok := d.lookup("ata_smart_self_test_log", "standard", "table"); ok {
				tests, _ = t.([]any)
			}
			return ataVariant{table: table, selftests: tests}
		}
	}
	if attrs := genericAttributes(d.attrsRaw); len(attrs) > 0 {
		return genericVariant{attrs: attrs}
	}
	return unknownVariant{}
}

// ─── ATTRIBUTES ──────────────────────────────────────────────────────────────

type nvmeField struct {
	key, name string
	status    func(raw int64, log map[string]any, t Thresholds) (model.HealthVerdict, int64)
}

func zeroIsGood(raw int64, _ map[string]any, _ Thresholds) (model.HealthVerdict, int64) {
	return goodIf(raw == 0), 0
}

func alwaysGood(int64, map[string]any, Thresholds) (model.HealthVerdict, int64) {
	return model.HealthGood, 0
}

// nvmeFields is the fixed, ordered set of synthetic NVMe attributes.
var nvmeFields = []nvmeField{
	{"critical_warning", "Critical Warning", zeroIsGood},
	{"temperature", "Temperature", func(raw int64, _ map[string]any, t Thresholds) (model.HealthVerdict, int64) {
		return goodIf(raw < t.TemperatureC), t.TemperatureC
	}},
	{"available_spare", "Available Spare", func(raw int64, log map[string]any, _ Thresholds) (model.HealthVerdict, int64) {
		thresh, _ := util.AsInt64(log["available_spare_threshold"])
		return goodIf(raw > thresh), thresh
	}},
	{"percentage_used", "Percentage Used", func(raw int64, _ map[string]any, t Thresholds) (model.HealthVerdict, int64) {
		return goodIf(raw < t.PercentageUsed), t.PercentageUsed
	}},
	{"power_on_hours", "Power On Hours", alwaysGood},
	{"power_cycles", "Power Cycles", alwaysGood},
	{"media_errors", "Media Errors", zeroIsGood},
	{"num_err_log_entries", "Error Log Entries", zeroIsGood},
	{"unsafe_shutdowns", "Unsafe Shutdowns", alwaysGood},
}

func goodIf(ok bool) model.HealthVerdict {
	if ok {
		return model.HealthGood
	}
	return model.HealthWarning
}

func (n *Normalizer) nvmeAttributes(v nvmeVariant) []model.SmartAttribute {
	attrs := make([]model.SmartAttribute, 0, len(nvmeFields))
	for _, f := range nvmeFields {
		a := model.SmartAttribute{ID: f.key, Name: f.name, Raw: "N/A", Status: model.HealthUnknown}
		if raw, ok := util.AsInt64(v.log[f.key]); ok {
			status, thresh := f.status(raw, v.log, n.Thresholds)
			a.Value, a.Worst, a.Threshold = raw, raw, thresh
			a.Raw = fmt.Sprintf("%d", raw)
			a.Status = status
		}
		attrs = append(attrs, a)
	}
	return attrs
}

func tableAttributes(table []any) []model.SmartAttribute {
	attrs := make([]model.SmartAttribute, 0, len(table))
	for _, r := range table {
		row, ok := util.AsObject(r)
		if !ok {
			continue
		}
		attrs = append(attrs, attributeFromRow(row, ""))
	}
	return attrs
}

// attributeFromRow maps an attribute-like object; missing numbers are 0.
func attributeFromRow(row map[string]any, fallbackName string) model.SmartAttribute {
	a := model.SmartAttribute{ID: util.Stringify(row["id"])}
	if name, ok := util.AsString(row["name"]); ok {
		a.Name = name
	} else {
		a.Name = fallbackName
	}
	a.Value, _ = util.AsInt64(row["value"])
	a.Worst, _ = util.AsInt64(row["worst"])
	if t, ok := util.AsInt64(row["thresh"]); ok {
		a.Threshold = t
	} else {
		a.Threshold, _ = util.AsInt64(row["threshold"])
	}
	a.Raw = rawString(row["raw"])
	a.Status = goodIf(a.Value > a.Threshold)
	return a
}

// genericAttributes reads an arbitrary key→attribute mapping in source
// order, keeping only entries that carry an "id".
func genericAttributes(raw json.RawMessage) []model.SmartAttribute {
	if len(raw) == 0 {
		return nil
	}
	obj, err := util.DecodeOrdered(raw)
	if err != nil {
		return nil
	}
	if inner, ok := obj.Values["ata_smart_attributes"]; ok {
		if o, err := util.DecodeOrdered(inner); err == nil {
			obj = o
		}
	}
	var attrs []model.SmartAttribute
	for _, key := range obj.Keys {
		row := util.DecodeObject(obj.Values[key])
		if row == nil {
			continue
		}
		if _, ok := row["id"]; !ok {
			continue
		}
		attrs = append(attrs, attributeFromRow(row, key))
	}
	return attrs
}

func findRow(table []any, id int64) map[string]any {
	for _, r := range table {
		row, ok := util.AsObject(r)
		if !ok {
			continue
		}
		if rid, ok := util.AsInt64(row["id"]); ok && rid == id {
			return row
		}
	}
	return nil
}

// rawString renders the raw column: raw.value, then raw.string, then scalars.
func rawString(v any) string {
	if obj, ok := util.AsObject(v); ok {
		if val, ok := obj["value"]; ok && val != nil {
			return util.Stringify(val)
		}
		if s, ok := util.AsString(obj["string"]); ok {
			return s
		}
		return ""
	}
	return util.Stringify(v)
}

func rawNumber(v any) (int64, bool) {
	if obj, ok := util.AsObject(v); ok {
		return util.AsInt64(obj["value"])
	}
	return util.AsInt64(v)
}

// rawTemperature prefers the leading number of raw.string, since raw.value
// packs min/max into the upper bytes on many drives.
func rawTemperature(v any) (int64, bool) {
	if obj, ok := util.AsObject(v); ok {
		if s, ok := util.AsString(obj["string"]); ok {
			if f := strings.Fields(s); len(f) > 0 {
				if t, ok := util.AsInt64(f[0]); ok {
					return t, true
				}
			}
		}
		if t, ok := util.AsInt64(obj["value"]); ok {
			return t & 0xff, true
		}
		return 0, false
	}
	return util.AsInt64(v)
}

// ─── SELF-TEST LOG ───────────────────────────────────────────────────────────

func nvmeHealthCheck(h model.HealthVerdict, checked *time.Time) model.SelfTestEntry {
	e := model.SelfTestEntry{Type: "NVMe Health Check", Timestamp: "Unknown", Duration: "N/A"}
	if checked != nil {
		e.Timestamp = checked.Format(time.RFC3339)
	}
	switch h {
	case model.HealthGood:
		e.Status = "Passed"
	case model.HealthWarning:
		e.Status = "Warning"
	case model.HealthCritical:
		e.Status = "Failed"
	default:
		e.Status = "Unknown"
	}
	return e
}

func ataSelfTests(rows []any) []model.SelfTestEntry {
	tests := make([]model.SelfTestEntry, 0, len(rows))
	for _, r := range rows {
		row, ok := util.AsObject(r)
		if !ok {
			continue
		}
		e := model.SelfTestEntry{
			Type:     labelOf(row["type"], "Unknown"),
			Status:   selfTestStatus(row["status"]),
			Duration: "N/A",
		}
		if hours, ok := util.AsInt64(row["lifetime_hours"]); ok {
			e.LifetimeHours = &hours
		}
		switch {
		case hasTime(row):
			ts, _ := util.AsInt64(firstOf(row, "timestamp", "time_t"))
			e.Timestamp = time.Unix(ts, 0).UTC().Format(time.RFC3339)
		case e.LifetimeHours != nil:
			e.Timestamp = fmt.Sprintf("%d lifetime hours", *e.LifetimeHours)
		default:
			e.Timestamp = "Unknown"
		}
		if d, ok := row["duration"]; ok {
			if secs, ok := util.AsInt64(d); ok {
				e.Duration = (time.Duration(secs) * time.Second).String()
			} else if s, ok := util.AsString(d); ok {
				e.Duration = s
			}
		}
		tests = append(tests, e)
	}
	return tests
}

func hasTime(row map[string]any) bool {
	ts, ok := util.AsInt64(firstOf(row, "timestamp", "time_t"))
	return ok && ts > 0
}

func firstOf(row map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := row[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// labelOf reads {"string": ...} objects or plain strings.
func labelOf(v any, fallback string) string {
	if obj, ok := util.AsObject(v); ok {
		v = obj["string"]
	}
	if s, ok := util.AsString(v); ok {
		return s
	}
	return fallback
}

func selfTestStatus(v any) string {
	if s := labelOf(v, ""); s != "" {
		return s
	}
	if obj, ok := util.AsObject(v); ok {
		if passed, ok := util.AsBool(obj["passed"]); ok {
			if passed {
				return "Completed without error"
			}
			return "Failed"
		}
	}
	return "Unknown"
}
