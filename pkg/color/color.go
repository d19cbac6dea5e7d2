package color

import (
	"fmt"
	"hash/fnv"
	"os"
	"strings"
)

// ANSI color codes
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	Italic = "\033[3m"
	Under  = "\033[4m"
)

// Foreground colors
const (
	Black   = "\033[30m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	White   = "\033[37m"
)

// Bright foreground colors
const (
	BrightBlack   = "\033[90m"
	BrightRed     = "\033[91m"
	BrightGreen   = "\033[92m"
	BrightYellow  = "\033[93m"
	BrightBlue    = "\033[94m"
	BrightMagenta = "\033[95m"
	BrightCyan    = "\033[96m"
	BrightWhite   = "\033[97m"
)

// Fixed colors for the pipeline roles so transcripts read consistently.
var roleColors = map[string]string{
	"researcher": BrightCyan,
	"planner":    BrightYellow,
	"executor":   BrightGreen,
	"critic":     BrightMagenta,
	"assistant":  BrightBlue,
}

// Fallback palette for labels outside the fixed role set.
var paletteColors = []string{
	BrightRed,
	BrightGreen,
	BrightYellow,
	BrightBlue,
	BrightMagenta,
	BrightCyan,
	Red,
	Green,
	Yellow,
	Blue,
	Magenta,
	Cyan,
}

// isColorSupported checks if the terminal supports color output
func isColorSupported() bool {
	// https://no-color.org/
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	term := os.Getenv("TERM")
	if term == "" || term == "dumb" {
		return false
	}
	if os.Getenv("CI") != "" {
		return false
	}
	colorTerm := os.Getenv("COLORTERM")
	if colorTerm == "truecolor" || colorTerm == "24bit" {
		return true
	}
	if strings.Contains(term, "color") ||
		strings.Contains(term, "ansi") ||
		strings.Contains(term, "xterm") ||
		strings.Contains(term, "screen") {
		return true
	}
	return false
}

// Colorize applies color to text
func Colorize(text, color string) string {
	if !isColorSupported() {
		return text
	}
	return color + text + Reset
}

// GetRoleColor returns a consistent color for the given role label.
func GetRoleColor(role string) string {
	if !isColorSupported() {
		return ""
	}
	if c, ok := roleColors[strings.ToLower(role)]; ok {
		return c
	}

	// Hash unknown labels so each one keeps a stable color.
	h := fnv.New32a()
	h.Write([]byte(role))
	return paletteColors[int(h.Sum32())%len(paletteColors)]
}

// FormatRolePrefix formats the role prefix with color
func FormatRolePrefix(role string) string {
	color := GetRoleColor(role)
	prefix := fmt.Sprintf("[%s]", role)

	if color == "" {
		return prefix
	}

	return Colorize(prefix, color)
}

// RolePrintf prints formatted text with a colored role prefix
func RolePrintf(role, format string, args ...interface{}) {
	prefix := FormatRolePrefix(role)
	message := fmt.Sprintf(format, args...)
	fmt.Printf("%s %s", prefix, message)
}

// RolePrintln prints text with a colored role prefix and newline
func RolePrintln(role, text string) {
	prefix := FormatRolePrefix(role)
	fmt.Printf("%s %s\n", prefix, text)
}
