package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ftahirops/smartdash/model"
)

func renderDetail(r model.DeviceHealthRecord, innerW int) string {
	var sb strings.Builder
	sb.WriteString("  " + titleStyle.Render(r.DisplayName) + "  " +
		verdictStyle(r.Health).Render(string(r.Health)) + "\n")

	temp := "N/A"
	if r.Temperature != nil {
		temp = fmt.Sprintf("%d°C", *r.Temperature)
	}
	checked := "N/A"
	if r.LastChecked != nil {
		checked = r.LastChecked.Local().Format(time.RFC3339)
	}
	sb.WriteString(renderKVBox([]kv{
		{"Model", r.Model},
		{"Serial", r.Serial},
		{"Firmware", r.Firmware},
		{"Capacity", r.Capacity},
		{"Type", r.DeviceType},
		{"Schema", string(r.Schema)},
		{"Power on", humanize.Comma(r.PowerOnHours) + " hours"},
		{"Temperature", temp},
		{"Checked", checked},
	}, innerW))

	sb.WriteString("\n" + renderAttributes(r.SmartAttributes))
	sb.WriteString("\n" + renderSelfTests(r.SelfTestLog))
	return sb.String()
}

func renderAttributes(attrs []model.SmartAttribute) string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("  %-5s %-28s %6s %6s %6s %-16s %s",
		"ID", "ATTRIBUTE", "VALUE", "WORST", "THRESH", "RAW", "STATUS")) + "\n")
	if len(attrs) == 0 {
		return sb.String() + "  " + dimStyle.Render("no attributes reported") + "\n"
	}
	for _, a := range attrs {
		sb.WriteString(fmt.Sprintf("  %-5s %-28s %6d %6d %6d %-16s %s\n",
			truncate(a.ID, 5), truncate(a.Name, 28), a.Value, a.Worst, a.Threshold,
			truncate(a.Raw, 16), verdictStyle(a.Status).Render(string(a.Status))))
	}
	return sb.String()
}

func renderSelfTests(tests []model.SelfTestEntry) string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("  %-26s %-20s %-26s %s",
		"WHEN", "TYPE", "STATUS", "DURATION")) + "\n")
	if len(tests) == 0 {
		return sb.String() + "  " + dimStyle.Render("no self-tests logged") + "\n"
	}
	for _, t := range tests {
		status := styledPad(selfTestStyle(t.Status).Render(truncate(t.Status, 26)), 26)
		sb.WriteString(fmt.Sprintf("  %-26s %-20s %s %s\n",
			truncate(t.Timestamp, 26), truncate(t.Type, 20), status, t.Duration))
	}
	return sb.String()
}
