package colorutil

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	colorCritical = color.New(color.FgRed, color.Bold)
	colorHigh     = color.New(color.FgYellow, color.Bold)
	colorMedium   = color.New(color.FgYellow)
	colorLow      = color.New(color.FgCyan)
	colorSafe     = color.New(color.FgGreen)
)

// ApplyNoColor disables color output
func ApplyNoColor() {
	color.NoColor = true
}

// ColorizeSeverity returns the severity string with appropriate color
func ColorizeSeverity(severity string) string {
	switch severity {
	case "critical":
		return colorCritical.Sprint(severity)
	case "warning":
		return colorMedium.Sprint(severity)
	default:
		return severity
	}
}

// ColorizeRiskLevel returns the risk level string with appropriate color
func ColorizeRiskLevel(level string) string {
	switch level {
	case "CRITICAL":
		return colorCritical.Sprint(level)
	case "HIGH":
		return colorHigh.Sprint(level)
	case "MEDIUM":
		return colorMedium.Sprint(level)
	case "LOW":
		return colorLow.Sprint(level)
	case "SAFE":
		return colorSafe.Sprint(level)
	default:
		return level
	}
}

// PrintRiskLevel prints a risk level label with color
func PrintRiskLevel(label string, count int) {
	switch label {
	case "CRITICAL":
		colorCritical.Printf("  %-10s %d\n", label+":", count)
	case "HIGH":
		colorHigh.Printf("  %-10s %d\n", label+":", count)
	case "MEDIUM":
		colorMedium.Printf("  %-10s %d\n", label+":", count)
	case "LOW":
		colorLow.Printf("  %-10s %d\n", label+":", count)
	case "SAFE":
		colorSafe.Printf("  %-10s %d\n", label+":", count)
	default:
		fmt.Printf("  %-10s %d\n", label+":", count)
	}
}

// ColorizePackageRisk returns a colored package string based on risk score
func ColorizePackageRisk(pkgInfo string, riskScore int) string {
	switch {
	case riskScore >= 100:
		return colorCritical.Sprint(pkgInfo)
	case riskScore >= 60:
		return colorHigh.Sprint(pkgInfo)
	case riskScore >= 30:
		return colorMedium.Sprint(pkgInfo)
	case riskScore >= 10:
		return colorLow.Sprint(pkgInfo)
	default:
		return colorSafe.Sprint(pkgInfo)
	}
}
