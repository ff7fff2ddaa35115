package engine

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/ftahirops/smartdash/model"
)

const nvmeDoc = `{
  "device": "/dev/nvme0n1",
  "timestamp": 1700000000,
  "smart_data": {
    "device_info": {
      "device": {"name": "/dev/nvme0n1", "type": "nvme", "protocol": "NVMe"},
      "model_name": "Samsung SSD 980 PRO 1TB",
      "serial_number": "S5GXNF0R123456",
      "firmware_version": "5B2QGXA7",
      "nvme_total_capacity": 1000204886016
    },
    "smart_attributes": {
      "nvme_smart_health_information_log": {
        "critical_warning": 0,
        "temperature": 45,
        "available_spare": 100,
        "available_spare_threshold": 10,
        "percentage_used": 5,
        "power_on_hours": 100,
        "power_cycles": 10,
        "media_errors": 0,
        "num_err_log_entries": 0,
        "unsafe_shutdowns": 0
      }
    },
    "smart_health": {"smart_status": {"passed": true}},
    "smart_errors": {},
    "smart_selftest": {}
  }
}`

const ataDoc = `{
  "device": "/dev/sda",
  "timestamp": 1700000000,
  "smart_data": {
    "device_info": {
      "device": {"name": "/dev/sda", "type": "sat", "protocol": "ATA"},
      "model_name": "WDC WD40EFRX",
      "serial_number": "WD-123",
      "firmware_version": "82.00A82",
      "user_capacity": {"blocks": 7814037168, "bytes": 4000787030016}
    },
    "smart_attributes": {
      "power_on_time": {"hours": 31000},
      "temperature": {"current": 34},
      "ata_smart_attributes": {"revision": 16, "table": [
        {"id": 5, "name": "Reallocated_Sector_Ct", "value": 90, "worst": 90, "thresh": 10, "raw": {"value": 3, "string": "3"}},
        {"id": 197, "name": "Current_Pending_Sector", "value": 0, "worst": 0, "thresh": 0, "raw": {"value": 8, "string": "8"}},
        {"id": 9, "name": "Power_On_Hours", "value": 58, "worst": 58, "thresh": 0, "raw": {"value": 31000}}
      ]}
    },
    "smart_health": {"smart_status": {"passed": true}},
    "smart_errors": {"ata_smart_error_log": {"summary": {"count": 0}}},
    "smart_selftest": {
      "ata_smart_self_test_log": {"standard": {"table": [
        {"type": {"value": 1, "string": "Short offline"}, "status": {"value": 0, "string": "Completed without error", "passed": true}, "lifetime_hours": 30990},
        {"type": {"value": 2, "string": "Extended offline"}, "status": {"value": 121, "passed": false}, "lifetime_hours": 30000}
      ]}}
    }
  }
}`

func TestNormalize_NVMe(t *testing.T) {
	rec := Normalize([]byte(nvmeDoc))

	if rec.Device != "nvme0n1" {
		t.Errorf("Device = %q; want nvme0n1", rec.Device)
	}
	if rec.Model != "Samsung SSD 980 PRO 1TB" || rec.Serial != "S5GXNF0R123456" || rec.Firmware != "5B2QGXA7" {
		t.Errorf("identity = %q/%q/%q", rec.Model, rec.Serial, rec.Firmware)
	}
	if rec.Capacity != "932 GB" {
		t.Errorf("Capacity = %q; want 932 GB", rec.Capacity)
	}
	if rec.DeviceType != model.DeviceTypeNVMe || rec.Schema != model.SchemaNVMe {
		t.Errorf("type/schema = %q/%q", rec.DeviceType, rec.Schema)
	}
	if rec.Health != model.HealthGood {
		t.Errorf("Health = %q; want Good", rec.Health)
	}
	if rec.PowerOnHours != 100 {
		t.Errorf("PowerOnHours = %d; want 100", rec.PowerOnHours)
	}
	if rec.Temperature == nil || *rec.Temperature != 45 {
		t.Errorf("Temperature = %v; want 45", rec.Temperature)
	}

	wantIDs := []string{
		"critical_warning", "temperature", "available_spare", "percentage_used",
		"power_on_hours", "power_cycles", "media_errors", "num_err_log_entries", "unsafe_shutdowns",
	}
	var ids []string
	for _, a := range rec.SmartAttributes {
		ids = append(ids, a.ID)
		if a.Status != model.HealthGood {
			t.Errorf("attribute %s status = %q; want Good", a.ID, a.Status)
		}
	}
	if !reflect.DeepEqual(ids, wantIDs) {
		t.Errorf("attribute order = %v; want %v", ids, wantIDs)
	}

	if len(rec.SelfTestLog) != 1 {
		t.Fatalf("SelfTestLog len = %d; want 1", len(rec.SelfTestLog))
	}
	st := rec.SelfTestLog[0]
	if st.Type != "NVMe Health Check" || st.Status != "Passed" || st.Timestamp != "2023-11-14T22:13:20Z" {
		t.Errorf("self-test = %+v", st)
	}
}

func TestNormalize_NVMeAlwaysNineAttributes(t *testing.T) {
	docs := []string{
		`{"smart_data":{"smart_attributes":{"nvme_smart_health_information_log":{}}}}`,
		`{"smart_data":{"device_info":{"nvme_smart_health_information_log":{"temperature":90}}}}`,
		nvmeDoc,
	}
	for _, d := range docs {
		rec := Normalize([]byte(d))
		if len(rec.SmartAttributes) != 9 {
			t.Errorf("len(attrs) = %d; want 9 for %s", len(rec.SmartAttributes), d)
		}
		if rec.DeviceType != model.DeviceTypeNVMe {
			t.Errorf("DeviceType = %q; want inferred NVMe", rec.DeviceType)
		}
	}
}

func TestNormalize_NVMeThresholds(t *testing.T) {
	doc := `{"smart_data":{"smart_attributes":{"nvme_smart_health_information_log":{
		"critical_warning":1,"temperature":70,"available_spare":10,"available_spare_threshold":10,
		"percentage_used":80,"power_on_hours":5,"power_cycles":5,"media_errors":2,
		"num_err_log_entries":1,"unsafe_shutdowns":9}}}}`
	rec := Normalize([]byte(doc))
	want := map[string]model.HealthVerdict{
		"critical_warning":    model.HealthWarning,
		"temperature":         model.HealthWarning,
		"available_spare":     model.HealthWarning,
		"percentage_used":     model.HealthWarning,
		"power_on_hours":      model.HealthGood,
		"power_cycles":        model.HealthGood,
		"media_errors":        model.HealthWarning,
		"num_err_log_entries": model.HealthWarning,
		"unsafe_shutdowns":    model.HealthGood,
	}
	for _, a := range rec.SmartAttributes {
		if a.Status != want[a.ID] {
			t.Errorf("%s status = %q; want %q", a.ID, a.Status, want[a.ID])
		}
	}

	// Raised limits turn the same readings Good.
	n := NewNormalizer(Thresholds{TemperatureC: 75, PercentageUsed: 90})
	rec = n.NormalizeBytes([]byte(doc))
	for _, a := range rec.SmartAttributes {
		if (a.ID == "temperature" || a.ID == "percentage_used") && a.Status != model.HealthGood {
			t.Errorf("%s with raised threshold = %q; want Good", a.ID, a.Status)
		}
	}
}

func TestNormalize_NVMeMissingFieldIsUnknown(t *testing.T) {
	rec := Normalize([]byte(`{"smart_data":{"smart_attributes":{"nvme_smart_health_information_log":{"temperature":40}}}}`))
	for _, a := range rec.SmartAttributes {
		switch a.ID {
		case "temperature":
			if a.Status != model.HealthGood || a.Raw != "40" {
				t.Errorf("temperature = %+v", a)
			}
		default:
			if a.Status != model.HealthUnknown || a.Raw != "N/A" {
				t.Errorf("%s = %+v; want Unknown/N/A", a.ID, a)
			}
		}
	}
}

func TestNormalize_ATA(t *testing.T) {
	rec := Normalize([]byte(ataDoc))

	if rec.Device != "sda" || rec.DeviceType != model.DeviceTypeATA || rec.Schema != model.SchemaATA {
		t.Errorf("device/type/schema = %q/%q/%q", rec.Device, rec.DeviceType, rec.Schema)
	}
	if rec.Capacity != "3726 GB" {
		t.Errorf("Capacity = %q; want 3726 GB", rec.Capacity)
	}
	if rec.PowerOnHours != 31000 {
		t.Errorf("PowerOnHours = %d", rec.PowerOnHours)
	}
	if rec.Temperature == nil || *rec.Temperature != 34 {
		t.Errorf("Temperature = %v; want 34", rec.Temperature)
	}
	if len(rec.SmartAttributes) != 3 {
		t.Fatalf("len(attrs) = %d; want 3", len(rec.SmartAttributes))
	}
	realloc := rec.SmartAttributes[0]
	want := model.SmartAttribute{ID: "5", Name: "Reallocated_Sector_Ct", Value: 90, Worst: 90, Threshold: 10, Raw: "3", Status: model.HealthGood}
	if realloc != want {
		t.Errorf("attr[0] = %+v; want %+v", realloc, want)
	}
	if rec.SmartAttributes[1].Status != model.HealthWarning {
		t.Errorf("0 > 0 should be Warning, got %q", rec.SmartAttributes[1].Status)
	}
	if rec.SmartAttributes[2].ID != "9" {
		t.Errorf("source order not preserved: %+v", rec.SmartAttributes)
	}

	if len(rec.SelfTestLog) != 2 {
		t.Fatalf("len(selftests) = %d; want 2", len(rec.SelfTestLog))
	}
	first := rec.SelfTestLog[0]
	if first.Type != "Short offline" || first.Status != "Completed without error" || first.Timestamp != "30990 lifetime hours" {
		t.Errorf("selftest[0] = %+v", first)
	}
	if first.LifetimeHours == nil || *first.LifetimeHours != 30990 {
		t.Errorf("selftest[0].LifetimeHours = %v", first.LifetimeHours)
	}
	if rec.SelfTestLog[1].Status != "Failed" {
		t.Errorf("selftest[1].Status = %q; want Failed", rec.SelfTestLog[1].Status)
	}
}

func TestNormalize_ATATemperatureFromAttribute(t *testing.T) {
	doc := `{"smart_data":{"smart_attributes":{"ata_smart_attributes":{"table":[
		{"id":194,"name":"Temperature_Celsius","value":66,"worst":50,"thresh":0,"raw":{"value":193274511394,"string":"34 (Min/Max 18/45)"}}
	]}}}}`
	rec := Normalize([]byte(doc))
	if rec.Temperature == nil || *rec.Temperature != 34 {
		t.Errorf("Temperature = %v; want 34 from raw string", rec.Temperature)
	}
	if rec.DeviceType != model.DeviceTypeDefault {
		t.Errorf("DeviceType = %q; want default %q", rec.DeviceType, model.DeviceTypeDefault)
	}
}

func TestNormalize_GenericKeepsSourceOrder(t *testing.T) {
	doc := `{"device":"/dev/sdx","smart_data":{"smart_attributes":{
		"Temperature":{"id":194,"name":"Temperature_Celsius","value":40},
		"smartctl":{"version":[7,3]},
		"Realloc":{"id":5,"value":100,"worst":100,"thresh":36,"raw":7},
		"Seek":{"id":7}
	}}}`
	rec := Normalize([]byte(doc))
	if rec.Schema != model.SchemaGeneric {
		t.Fatalf("Schema = %q; want generic", rec.Schema)
	}
	var ids []string
	for _, a := range rec.SmartAttributes {
		ids = append(ids, a.ID)
	}
	if !reflect.DeepEqual(ids, []string{"194", "5", "7"}) {
		t.Errorf("ids = %v; want [194 5 7]", ids)
	}
	seek := rec.SmartAttributes[2]
	if seek.Name != "Seek" || seek.Value != 0 || seek.Worst != 0 || seek.Threshold != 0 {
		t.Errorf("defaulted attribute = %+v", seek)
	}
	if rec.SmartAttributes[1].Raw != "7" || rec.SmartAttributes[1].Threshold != 36 {
		t.Errorf("scalar raw = %+v", rec.SmartAttributes[1])
	}
	if len(rec.SelfTestLog) != 0 {
		t.Errorf("generic self-test log = %v; want empty", rec.SelfTestLog)
	}
}

func TestNormalize_MalformedNeverFails(t *testing.T) {
	inputs := []string{
		``,
		`null`,
		`[]`,
		`"text"`,
		`{`,
		`{}`,
		`{"device":42,"timestamp":"soon","smart_data":"nope"}`,
		`{"smart_data":{"device_info":[],"smart_attributes":{"ata_smart_attributes":{"table":"x"}}}}`,
		`{"smart_data":{"smart_attributes":{"nvme_smart_health_information_log":[1,2]}}}`,
	}
	for _, in := range inputs {
		rec := Normalize([]byte(in))
		if rec.Model != UnknownModel || rec.Serial != UnknownSerial || rec.Firmware != UnknownFirmware {
			t.Errorf("%q: identity = %q/%q/%q", in, rec.Model, rec.Serial, rec.Firmware)
		}
		if rec.Capacity != UnknownSize {
			t.Errorf("%q: Capacity = %q", in, rec.Capacity)
		}
		if rec.Health != model.HealthUnknown {
			t.Errorf("%q: Health = %q", in, rec.Health)
		}
		if rec.SmartAttributes == nil || len(rec.SmartAttributes) != 0 {
			t.Errorf("%q: attrs = %v; want empty non-nil", in, rec.SmartAttributes)
		}
		if rec.SelfTestLog == nil || len(rec.SelfTestLog) != 0 {
			t.Errorf("%q: selftests = %v; want empty non-nil", in, rec.SelfTestLog)
		}
		b, err := json.Marshal(rec)
		if err != nil {
			t.Errorf("%q: record not encodable: %v", in, err)
		}
		var back map[string]any
		_ = json.Unmarshal(b, &back)
		if _, ok := back["smartAttributes"].([]any); !ok {
			t.Errorf("%q: smartAttributes encodes as %v; want []", in, back["smartAttributes"])
		}
	}
}

func TestNormalize_HealthVerdict(t *testing.T) {
	tests := []struct {
		name, health string
		want         model.HealthVerdict
	}{
		{"passed bool", `{"smart_status":{"passed":true}}`, model.HealthGood},
		{"failed bool", `{"smart_status":{"passed":false}}`, model.HealthCritical},
		{"bool wins over string", `{"smart_status":{"passed":true},"overall_health":"FAILED"}`, model.HealthGood},
		{"string passed", `{"overall_health":"PASSED"}`, model.HealthGood},
		{"string other", `{"overall_health":"FAILED!"}`, model.HealthWarning},
		{"string match is exact", `{"overall_health":"passed"}`, model.HealthWarning},
		{"smart_status string", `{"smart_status":{"string":"PASSED"}}`, model.HealthGood},
		{"no signal", `{"smartctl":{"exit_status":2}}`, model.HealthUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Normalize([]byte(`{"smart_data":{"smart_health":` + tt.health + `}}`))
			if rec.Health != tt.want {
				t.Errorf("Health = %q; want %q", rec.Health, tt.want)
			}
		})
	}
}

func TestNormalize_AliasOrder(t *testing.T) {
	doc := `{"smart_data":{"device_info":{
		"device":{"protocol":"SCSI"},
		"scsi_model_name":"ST4000NM0023","product":"IGNORED",
		"scsi_serial_number":"Z1Z","scsi_revision":"0004",
		"user_capacity":2147483648
	}}}`
	rec := Normalize([]byte(doc))
	if rec.Model != "ST4000NM0023" || rec.Serial != "Z1Z" || rec.Firmware != "0004" {
		t.Errorf("identity = %q/%q/%q", rec.Model, rec.Serial, rec.Firmware)
	}
	if rec.Capacity != "2 GB" {
		t.Errorf("flat capacity = %q; want 2 GB", rec.Capacity)
	}
	if rec.DeviceType != model.DeviceTypeSCSI {
		t.Errorf("DeviceType = %q", rec.DeviceType)
	}
	if rec.Device != UnknownDevice || rec.DisplayName != "ST4000NM0023 (Unknown Device)" {
		t.Errorf("Device/DisplayName = %q/%q", rec.Device, rec.DisplayName)
	}
}

func TestNormalizeDocument_MatchesBytes(t *testing.T) {
	var doc model.DeviceDocument
	if err := json.Unmarshal([]byte(ataDoc), &doc); err != nil {
		t.Fatal(err)
	}
	n := NewNormalizer(DefaultThresholds())
	if !reflect.DeepEqual(n.NormalizeDocument(doc), n.NormalizeBytes([]byte(ataDoc))) {
		t.Error("NormalizeDocument and NormalizeBytes disagree")
	}
}
