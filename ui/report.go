package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ftahirops/smartdash/collector"
	"github.com/ftahirops/smartdash/engine"
	"github.com/ftahirops/smartdash/model"
)

// SortRecords returns a copy of recs ordered by device id.
func SortRecords(recs []model.DeviceHealthRecord) []model.DeviceHealthRecord {
	out := make([]model.DeviceHealthRecord, len(recs))
	copy(out, recs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Device < out[j].Device })
	return out
}

func tableHeader() string {
	return headerStyle.Render(fmt.Sprintf("  %-*s %-*s %-*s %-*s %-*s %*s %*s",
		colDevice, "DEVICE", colModel, "MODEL", colCapacity, "CAPACITY", colType, "TYPE",
		colHealth, "HEALTH", colTemp, "TEMP", colHours, "POWER-ON"))
}

func tableRow(r model.DeviceHealthRecord, selected bool) string {
	temp := "-"
	if r.Temperature != nil {
		temp = fmt.Sprintf("%d°C", *r.Temperature)
	}
	hours := humanize.Comma(r.PowerOnHours) + "h"
	health := styledPad(verdictStyle(r.Health).Render(string(r.Health)), colHealth)

	marker := "  "
	if selected {
		marker = titleStyle.Render("▸ ")
	}
	left := fmt.Sprintf("%-*s %-*s %-*s %-*s ",
		colDevice, truncate(r.Device, colDevice),
		colModel, truncate(r.Model, colModel),
		colCapacity, truncate(r.Capacity, colCapacity),
		colType, truncate(r.DeviceType, colType))
	right := fmt.Sprintf(" %*s %*s", colTemp, temp, colHours, hours)
	if selected {
		return marker + selectedStyle.Render(left) + health + selectedStyle.Render(right)
	}
	return marker + left + health + right
}

// renderDeviceTable renders records in the given order; cursor < 0 selects none.
func renderDeviceTable(recs []model.DeviceHealthRecord, cursor int) string {
	var sb strings.Builder
	sb.WriteString(tableHeader() + "\n")
	for i, r := range recs {
		sb.WriteString(tableRow(r, i == cursor) + "\n")
	}
	return sb.String()
}

func verdictCounts(recs []model.DeviceHealthRecord) string {
	counts := map[model.HealthVerdict]int{}
	for _, r := range recs {
		counts[r.Health]++
	}
	var parts []string
	for _, h := range []model.HealthVerdict{model.HealthGood, model.HealthWarning, model.HealthCritical, model.HealthUnknown} {
		if counts[h] > 0 {
			parts = append(parts, verdictStyle(h).Render(fmt.Sprintf("%d %s", counts[h], h)))
		}
	}
	if len(parts) == 0 {
		return dimStyle.Render("no devices")
	}
	return strings.Join(parts, dimStyle.Render(" · "))
}

func lastRunLine(idx model.IndexRecord, now time.Time) string {
	if idx.LastRun == 0 {
		return dimStyle.Render("never collected")
	}
	t := time.Unix(idx.LastRun, 0)
	line := fmt.Sprintf("last run %s (%s)", t.Local().Format("2006-01-02 15:04:05"), humanize.RelTime(t, now, "ago", "from now"))
	if idx.Hostname != "" {
		line = idx.Hostname + " · " + line
	}
	return dimStyle.Render(line)
}

func renderFileErrors(errs []engine.FileError) string {
	if len(errs) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(warnStyle.Render(fmt.Sprintf("  %d file(s) could not be loaded:", len(errs))) + "\n")
	for _, e := range errs {
		sb.WriteString("    " + dimStyle.Render(e.Error()) + "\n")
	}
	return sb.String()
}

// RenderReport renders a one-shot health table for a loaded snapshot.
func RenderReport(res engine.LoadResult, now time.Time) string {
	recs := SortRecords(res.Records)
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("smartdash") + "  " + lastRunLine(res.Index, now) + "\n\n")
	if len(recs) > 0 {
		sb.WriteString(renderDeviceTable(recs, -1))
		sb.WriteString("\n")
	}
	sb.WriteString("  " + verdictCounts(recs) + "\n")
	sb.WriteString(renderFileErrors(res.Errors))
	return sb.String()
}

// RenderRunSummary renders the outcome of one collection run.
func RenderRunSummary(sum collector.RunSummary) string {
	var sb strings.Builder
	verb := "wrote"
	if sum.DryRun {
		verb = "would write"
	}
	sb.WriteString(titleStyle.Render("smartdash") + " " + dimStyle.Render("run "+sum.RunID) + "\n")
	sb.WriteString(fmt.Sprintf("  %s disk(s) found, %s %s device file(s)\n",
		valueStyle.Render(fmt.Sprint(len(sum.Candidates))), verb,
		okStyle.Render(fmt.Sprint(sum.Succeeded()))))
	for _, f := range sum.Files {
		sb.WriteString("    " + dimStyle.Render(f) + "\n")
	}
	if len(sum.Failures) > 0 {
		sb.WriteString(critStyle.Render(fmt.Sprintf("  %d device(s) failed:", len(sum.Failures))) + "\n")
		for _, f := range sum.Failures {
			sb.WriteString(fmt.Sprintf("    %s: %v\n", f.Device, f.Err))
		}
	}
	return sb.String()
}
