package ui

import "os"

// ColorScheme holds ANSI color codes for terminal output
type ColorScheme struct {
	Reset   string
	Bold    string
	Dim     string
	Green   string
	Yellow  string
	Red     string
	Magenta string
	Cyan    string
}

// Paint wraps s in color, resetting afterwards. Empty colors leave s as is.
func (c ColorScheme) Paint(color, s string) string {
	if color == "" {
		return s
	}
	return color + s + c.Reset
}

// StatusColor picks a color for an HTTP status code
func (c ColorScheme) StatusColor(code int) string {
	switch {
	case code >= 500:
		return c.Red
	case code >= 400:
		return c.Yellow
	case code >= 300:
		return c.Cyan
	default:
		return c.Green
	}
}

// Colors is the global color scheme instance
var Colors = initColors()

// initColors honours NO_COLOR and TERM=dumb
func initColors() ColorScheme {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return ColorScheme{}
	}
	return ColorScheme{
		Reset:   "\033[0m",
		Bold:    "\033[1m",
		Dim:     "\033[2m",
		Green:   "\033[32m",
		Yellow:  "\033[33m",
		Red:     "\033[31m",
		Magenta: "\033[35m",
		Cyan:    "\033[36m",
	}
}
