package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ftahirops/smartdash/engine"
	"github.com/ftahirops/smartdash/model"
)

// Page identifies the current screen.
type Page int

const (
	PageList Page = iota
	PageDetail
)

// loadTimeout bounds one fetch of the whole file interface.
const loadTimeout = 30 * time.Second

type tickMsg time.Time

type loadMsg struct {
	res engine.LoadResult
	err error
}

// Model is the dashboard state.
type Model struct {
	src        engine.Source
	normalizer *engine.Normalizer
	refresh    time.Duration // zero disables auto reload

	page     Page
	cursor   int
	records  []model.DeviceHealthRecord // sorted by id
	fileErrs []engine.FileError
	index    model.IndexRecord
	err      error
	loading  bool
	loadedAt time.Time

	width  int
	height int
	now    func() time.Time
}

// NewModel creates a dashboard reading src. refresh > 0 reloads periodically.
func NewModel(src engine.Source, n *engine.Normalizer, refresh time.Duration) Model {
	if n == nil {
		n = engine.NewNormalizer(engine.Thresholds{})
	}
	return Model{
		src:        src,
		normalizer: n,
		refresh:    refresh,
		loading:    true,
		width:      100,
		now:        time.Now,
	}
}

func (m Model) Init() tea.Cmd {
	if m.refresh > 0 {
		return tea.Batch(m.load(), tick(m.refresh))
	}
	return m.load()
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) load() tea.Cmd {
	src, n := m.src, m.normalizer
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		res, err := n.Load(ctx, src)
		return loadMsg{res: res, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case loadMsg:
		m.loading = false
		if msg.err != nil {
			// Keep whatever was shown before.
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.index = msg.res.Index
		m.records = SortRecords(msg.res.Records)
		m.fileErrs = msg.res.Errors
		m.loadedAt = m.now()
		if m.cursor >= len(m.records) {
			m.cursor = max(len(m.records)-1, 0)
		}
		if len(m.records) == 0 {
			m.page = PageList
		}
		return m, nil

	case tickMsg:
		if m.loading {
			return m, tick(m.refresh)
		}
		m.loading = true
		return m, tea.Batch(m.load(), tick(m.refresh))

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		if m.loading {
			return m, nil
		}
		m.loading = true
		return m, m.load()
	case "up", "k":
		if m.page == PageList && m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.page == PageList && m.cursor < len(m.records)-1 {
			m.cursor++
		}
	case "enter":
		if m.page == PageList && len(m.records) > 0 {
			m.page = PageDetail
		}
	case "esc", "backspace", "left", "h":
		m.page = PageList
	}
	return m, nil
}

// Selected returns the record under the cursor.
func (m Model) Selected() (model.DeviceHealthRecord, bool) {
	if m.cursor < 0 || m.cursor >= len(m.records) {
		return model.DeviceHealthRecord{}, false
	}
	return m.records[m.cursor], true
}

func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(m.renderHeader() + "\n\n")

	innerW := min(max(m.width-6, 40), 100)
	if m.err != nil {
		sb.WriteString(renderErrorBox("Could not load "+m.src.String(), []string{m.err.Error()}, "press r to retry", innerW))
		sb.WriteString("\n")
	}

	switch {
	case m.loading && len(m.records) == 0 && m.err == nil:
		sb.WriteString("  " + dimStyle.Render("Loading device health from "+m.src.String()+" ...") + "\n")
	case m.page == PageDetail:
		if rec, ok := m.Selected(); ok {
			sb.WriteString(renderDetail(rec, innerW))
		}
	case len(m.records) == 0 && m.err == nil:
		sb.WriteString("  " + dimStyle.Render("No devices listed in "+model.IndexFileName+".") + "\n")
	case len(m.records) > 0:
		sb.WriteString(renderDeviceTable(m.records, m.cursor))
	}

	if len(m.fileErrs) > 0 {
		sb.WriteString("\n" + renderFileErrors(m.fileErrs))
	}
	sb.WriteString("\n" + m.renderHelp())
	return sb.String()
}

func (m Model) renderHeader() string {
	status := lastRunLine(m.index, m.now())
	if m.loading {
		status += dimStyle.Render("  · refreshing")
	}
	return titleStyle.Render("smartdash") + "  " + verdictCounts(m.records) + "  " + status
}

func (m Model) renderHelp() string {
	keys := "↑/↓ select · enter details · r reload · q quit"
	if m.page == PageDetail {
		keys = "esc back · r reload · q quit"
	}
	if m.refresh > 0 {
		keys += fmt.Sprintf(" · auto reload every %s", m.refresh)
	}
	return helpStyle.Render("  " + keys)
}
