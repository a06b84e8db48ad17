// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/adcpstat/pkg/rtb"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Profile table shows at most this many bins
const maxProfileRows = 12

// Error log entry
type errorLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for warnings
}

// Latest ensemble summary
type ensembleSummary struct {
	number      int32
	time        string
	serial      string
	firmware    string
	status      string
	bins        int32
	beams       int32
	pings       int32
	heading     float32
	pitch       float32
	roll        float32
	waterTemp   float32
	voltage     float32
	hasVoltage  bool
	vesselSpeed float64
	hasBottom   bool
}

// TUI model
type model struct {
	connInfo      string
	statsInterval int
	showAll       bool
	stats         *rtb.Statistics
	errorLog      []errorLogEntry
	maxLogEntries int
	synchronized  bool
	sourceEnded   bool
	width         int
	height        int
	quitting      bool
	latest        *ensembleSummary
	profile       table.Model
}

// Messages
type tickMsg time.Time
type frameMsg frameEvent
type sourceMsg struct {
	err error
}

// formatDuration formats a duration as a human-friendly string
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "0 seconds"
	}

	seconds := int64(d / time.Second)
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	seconds %= 60
	minutes %= 60
	hours %= 24

	plural := func(n int64, unit string) string {
		if n == 1 {
			return "1 " + unit
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}

	parts := []string{}
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, plural(seconds, "second"))
	}

	// Join with commas and "and" for last item
	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	last := parts[len(parts)-1]
	rest := strings.Join(parts[:len(parts)-1], ", ")
	return rest + ", and " + last
}

func newProfileTable() table.Model {
	columns := []table.Column{
		{Title: "Bin", Width: 4},
		{Title: "Depth m", Width: 8},
		{Title: "East", Width: 7},
		{Title: "North", Width: 7},
		{Title: "Vert", Width: 7},
		{Title: "Mag m/s", Width: 8},
		{Title: "Dir", Width: 6},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(maxProfileRows),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = lipgloss.NewStyle()
	t.SetStyles(s)
	return t
}

func initialModel(connInfo string, statsInterval int, showAll bool) model {
	return model{
		connInfo:      connInfo,
		statsInterval: statsInterval,
		showAll:       showAll,
		stats:         rtb.NewStatistics(),
		errorLog:      make([]errorLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
		profile:       newProfileTable(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.stats.CalculateRates()
		return m, tickCmd()

	case sourceMsg:
		m.sourceEnded = true
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("SOURCE ERROR: %v", msg.err), true)
		} else {
			m.addLogEntry("Source ended", false)
		}

	case frameMsg:
		if msg.err != nil {
			m.stats.Update(nil, msg.err, nil)
			m.addLogEntry(fmt.Sprintf("FRAME ERROR: %v", msg.err), true)
			return m, nil
		}

		if !m.synchronized {
			m.synchronized = true
			m.addLogEntry(fmt.Sprintf("Synchronized at ensemble %d", msg.ens.Number), false)
		}

		m.stats.Update(msg.ens, nil, msg.validationErrors)
		m.summarize(msg.ens)

		if len(msg.validationErrors) > 0 {
			for _, err := range msg.validationErrors {
				m.addLogEntry(fmt.Sprintf("Ensemble %d: %s", msg.ens.Number, err.Message), true)
			}
		} else if m.showAll {
			m.addLogEntry(fmt.Sprintf("Ensemble %d (valid)", msg.ens.Number), false)
		}
	}

	return m, nil
}

func (m *model) addLogEntry(message string, isError bool) {
	entry := errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.errorLog = append(m.errorLog, entry)

	// Keep only last N entries
	if len(m.errorLog) > m.maxLogEntries {
		m.errorLog = m.errorLog[len(m.errorLog)-m.maxLogEntries:]
	}
}

// summarize keeps the latest ensemble's headline values and velocity profile
func (m *model) summarize(ens *rtb.Ensemble) {
	s := &ensembleSummary{number: ens.Number}

	if d := ens.EnsembleData; d != nil {
		s.time = d.DateTimeString()
		s.serial = d.SerialNumber
		s.firmware = d.FirmwareString()
		s.status = d.StatusString()
		s.bins, s.beams, s.pings = d.NumBins, d.NumBeams, d.ActualPingCount
	}
	if a := ens.AncillaryData; a != nil {
		s.heading, s.pitch, s.roll, s.waterTemp = a.Heading, a.Pitch, a.Roll, a.WaterTemp
	}
	if ss := ens.SystemSetup; ss != nil {
		s.voltage = ss.Voltage
		s.hasVoltage = true
	}
	if bt := ens.BottomTrack; bt != nil {
		s.vesselSpeed = bt.VesselSpeed()
		s.hasBottom = !rtb.IsBadVelocity(float32(s.vesselSpeed))
	}
	m.latest = s

	m.profile.SetRows(profileRows(ens))
}

// profileRows formats the earth velocity profile, one row per bin
func profileRows(ens *rtb.Ensemble) []table.Row {
	ev := ens.EarthVelocity
	if ev == nil {
		return nil
	}

	var blank, binSize float32
	if a := ens.AncillaryData; a != nil {
		blank, binSize = a.FirstBinRange, a.BinSize
	}

	mags := ev.Magnitudes()
	dirs := ev.Directions()
	cell := func(row []float32, i int) string {
		if i >= len(row) || rtb.IsBadVelocity(row[i]) {
			return "-"
		}
		return fmt.Sprintf("%.3f", row[i])
	}
	value := func(v float64, format string) string {
		if rtb.IsBadVelocity(float32(v)) {
			return "-"
		}
		return fmt.Sprintf(format, v)
	}

	rows := []table.Row{}
	for bin, row := range ev.Velocities {
		if bin >= maxProfileRows {
			break
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", bin),
			fmt.Sprintf("%.2f", rtb.BinDepth(blank, binSize, bin)),
			cell(row, 0),
			cell(row, 1),
			cell(row, 2),
			value(mags[bin], "%.3f"),
			value(dirs[bin], "%.1f"),
		})
	}
	return rows
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("ADCPSTAT - ERROR DETECTION"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Mode: %s | Up: %s | Press 'q' to quit",
		m.connInfo, func() string {
			if m.showAll {
				return "All ensembles"
			}
			return "Errors only"
		}(), formatDuration(time.Since(m.stats.StartTime)))))
	s.WriteString("\n\n")

	// Sync status
	switch {
	case m.sourceEnded:
		s.WriteString(warningStyle.Render("■ Source ended"))
	case !m.synchronized:
		s.WriteString(warningStyle.Render("⏳ Waiting for synchronization..."))
	default:
		s.WriteString(statsValueStyle.Render("✓ Synchronized"))
	}
	s.WriteString("\n\n")

	// Statistics
	m.stats.CalculateRates()
	totalErrors := m.stats.ErrorCount()
	var validPercent, errorPercent float64
	if m.stats.TotalFrames > 0 {
		validPercent = float64(m.stats.ValidEnsembles) * 100.0 / float64(m.stats.TotalFrames)
		errorPercent = float64(totalErrors) * 100.0 / float64(m.stats.TotalFrames)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Total:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.TotalFrames)),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", m.stats.ValidEnsembles, validPercent)),
		statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", totalErrors, errorPercent)),
	))

	if m.stats.ChecksumErrors > 0 || m.stats.PayloadSizeErrors > 0 || m.stats.DecodeErrors > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
			statsLabelStyle.Render("Checksum:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.ChecksumErrors)),
			statsLabelStyle.Render("Size:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.PayloadSizeErrors)),
			statsLabelStyle.Render("Decode:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.DecodeErrors)),
		))
	}

	if m.stats.AnomalousEnsembles > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s (%s: %d, %s: %d, %s: %d, %s: %d, %s: %d, %s: %d)\n",
			statsLabelStyle.Render("Anomalous:"), warningStyle.Render(fmt.Sprintf("%d", m.stats.AnomalousEnsembles)),
			headerStyle.Render("status"), m.stats.StatusErrors,
			headerStyle.Render("voltage"), m.stats.VoltageErrors,
			headerStyle.Render("tilt"), m.stats.TiltErrors,
			headerStyle.Render("amplitude"), m.stats.AmplitudeErrors,
			headerStyle.Render("correlation"), m.stats.CorrelationErrors,
			headerStyle.Render("shape"), m.stats.ShapeMismatches,
		))
	}

	if m.stats.MissingEnsembles > 0 || m.stats.TimeJumps > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			statsLabelStyle.Render("Missing:"), warningStyle.Render(fmt.Sprintf("%d", m.stats.MissingEnsembles)),
			statsLabelStyle.Render("Time Jumps:"), warningStyle.Render(fmt.Sprintf("%d", m.stats.TimeJumps)),
		))
	}

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Ensemble Rate:"), statsValueStyle.Render(fmt.Sprintf("%.2f ens/s", m.stats.EnsembleRate)),
		statsLabelStyle.Render("Error Rate:"), func() string {
			if m.stats.ErrorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.2f err/s", m.stats.ErrorRate))
			}
			return statsValueStyle.Render(fmt.Sprintf("%.2f err/s", m.stats.ErrorRate))
		}(),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Latest ensemble (only shown once one has been decoded)
	if e := m.latest; e != nil {
		s.WriteString(statsLabelStyle.Render(fmt.Sprintf("Latest Ensemble %d:", e.number)))
		s.WriteString("\n")

		ensContent := strings.Builder{}
		ensContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
			statsLabelStyle.Render("Time:"), statsValueStyle.Render(e.time),
			statsLabelStyle.Render("Serial:"), statsValueStyle.Render(e.serial),
			statsLabelStyle.Render("Firmware:"), statsValueStyle.Render(e.firmware),
		))
		ensContent.WriteString(fmt.Sprintf("%s %d   %s %d   %s %d   %s %s\n",
			statsLabelStyle.Render("Bins:"), e.bins,
			statsLabelStyle.Render("Beams:"), e.beams,
			statsLabelStyle.Render("Pings:"), e.pings,
			statsLabelStyle.Render("Status:"), statsValueStyle.Render(e.status),
		))
		ensContent.WriteString(fmt.Sprintf("%s %.1f°   %s %.1f°   %s %.1f°   %s %.1f°C",
			statsLabelStyle.Render("Heading:"), e.heading,
			statsLabelStyle.Render("Pitch:"), e.pitch,
			statsLabelStyle.Render("Roll:"), e.roll,
			statsLabelStyle.Render("Water:"), e.waterTemp,
		))
		if e.hasVoltage {
			ensContent.WriteString(fmt.Sprintf("   %s %.2f V", statsLabelStyle.Render("Voltage:"), e.voltage))
		}
		if e.hasBottom {
			ensContent.WriteString(fmt.Sprintf("   %s %.3f m/s", statsLabelStyle.Render("Boat:"), e.vesselSpeed))
		}

		s.WriteString(boxStyle.Render(ensContent.String()))
		s.WriteString("\n")

		if len(m.profile.Rows()) > 0 {
			s.WriteString(boxStyle.Render(m.profile.View()))
			s.WriteString("\n")
		}
		s.WriteString("\n")
	}

	// Error log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	// Calculate how many log entries we can show
	logHeight := m.height - 30 // Reserve space for header, stats and profile
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.errorLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.errorLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.errorLog); i++ {
			entry := m.errorLog[i]
			timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}
