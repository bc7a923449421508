package cmd

import (
	"strings"

	"github.com/fatih/color"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
)

func formatStatusWithColor(status string) string {
	switch strings.ToLower(status) {
	case "ok", "success", "completed", "done":
		return colorSuccess(status)
	case "error", "fail", "failed":
		return colorError(status)
	case "cancelled", "offline":
		return colorWarn(status)
	default:
		return status
	}
}

// formatGradeWithColor colors a quantum grade by band.
func formatGradeWithColor(grade string) string {
	switch {
	case strings.HasPrefix(grade, "A"):
		return colorSuccess(grade)
	case strings.HasPrefix(grade, "B"), strings.HasPrefix(grade, "C"):
		return colorInfo(grade)
	case grade == "D":
		return colorWarn(grade)
	case grade == "":
		return "-"
	default:
		return colorError(grade)
	}
}
