package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"audioconv/internal/api"
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
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
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

// dependencyLines renders one line per dependency preceded by a summary.
// Missing optional dependencies are warnings, missing required ones errors.
func dependencyLines(statuses []api.DependencyStatus, colorize bool) []string {
	var missing []string
	lines := make([]string, 0, len(statuses)+1)
	for _, dep := range statuses {
		switch {
		case dep.Available:
			detail := "Ready"
			if dep.Command != "" {
				detail = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, detail, colorize))
		case dep.Optional:
			lines = append(lines, renderStatusLine(dep.Name, statusWarn, fallbackDetail(dep.Detail), colorize))
		default:
			missing = append(missing, dep.Name)
			lines = append(lines, renderStatusLine(dep.Name, statusError, fallbackDetail(dep.Detail), colorize))
		}
	}

	summary := renderStatusLine("Summary", statusOK, fmt.Sprintf("%d of %d available", len(statuses)-len(missing), len(statuses)), colorize)
	if len(missing) > 0 {
		summary = renderStatusLine("Summary", statusError, fmt.Sprintf("%d required missing", len(missing)), colorize)
	}
	return append([]string{summary}, lines...)
}

func directoryLines(checks []api.CheckResult, colorize bool) []string {
	lines := make([]string, 0, len(checks))
	for _, check := range checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
	return lines
}

func outputLines(stats *api.OutputStats, colorize bool) []string {
	if stats == nil {
		return []string{renderStatusLine("Catalog", statusWarn, "Unavailable", colorize)}
	}
	failedKind := statusOK
	if stats.Failed > 0 {
		failedKind = statusWarn
	}
	return []string{
		renderStatusLine("Converted", statusInfo, fmt.Sprintf("%d (%s)", stats.Converted, formatBytes(stats.TotalBytes)), colorize),
		renderStatusLine("Failed", failedKind, fmt.Sprintf("%d", stats.Failed), colorize),
		renderStatusLine("Downloads", statusInfo, fmt.Sprintf("%d", stats.TotalDownloads), colorize),
	}
}

func fallbackDetail(detail string) string {
	if strings.TrimSpace(detail) == "" {
		return "not available"
	}
	return detail
}
