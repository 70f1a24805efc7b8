package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"licensesync/internal/api"
	"licensesync/internal/license"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func statusLines(status api.Status, driver string, colorize bool) []string {
	lines := renderSectionHeader("licensesync", colorize)

	if status.HasCheckpoint {
		lines = append(lines, renderStatusLine("Checkpoint", statusOK, status.Checkpoint, colorize))
	} else {
		lines = append(lines, renderStatusLine("Checkpoint", statusWarn, "none (next run is a full sync)", colorize))
	}
	if status.Running {
		lines = append(lines, renderStatusLine("Ingest", statusInfo, "running", colorize))
	} else {
		lines = append(lines, renderStatusLine("Ingest", statusInfo, "idle", colorize))
	}

	counts := status.Counts
	lines = append(lines, renderStatusLine("Store", statusInfo, driver, colorize))
	lines = append(lines, renderStatusLine("Licenses", statusInfo,
		fmt.Sprintf("%d (%d provisional)", counts.Licenses, counts.Provisional), colorize))
	lines = append(lines, renderStatusLine("Customers", statusInfo, fmt.Sprintf("%d", counts.Customers), colorize))
	lines = append(lines, renderStatusLine("Audit rows", statusInfo, fmt.Sprintf("%d", counts.AuditRows), colorize))

	if len(status.RecentRuns) > 0 {
		last := status.RecentRuns[0]
		kind := statusOK
		message := fmt.Sprintf("%s %s..%s", last.Status, last.FromDate, last.ToDate)
		if last.Status != license.RunSucceeded {
			kind = statusError
			if last.Error != "" {
				message += ": " + last.Error
			}
		} else if last.Failed > 0 {
			kind = statusWarn
			message += fmt.Sprintf(" (%d rows failed)", last.Failed)
		}
		lines = append(lines, renderStatusLine("Last run", kind, message, colorize))
	}
	return lines
}

func runsTable(runs []api.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.StartedAt,
			run.FromDate + " .. " + run.ToDate,
			run.Status,
			strconv.Itoa(run.Fetched),
			strconv.Itoa(run.Upserted),
			strconv.Itoa(run.Failed),
		})
	}
	return renderTable([]column{
		textColumn("Started"), textColumn("Window"), textColumn("Status"),
		numericColumn("Fetched"), numericColumn("Upserted"), numericColumn("Failed"),
	}, rows, "")
}
