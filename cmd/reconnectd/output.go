package main

import (
	"fmt"
	"os"
)

// ANSI SGR codes for terminal output. All status output goes to stderr so
// that capture's transcript and JSON stay clean on stdout.
const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
)

func paint(code, s string) string {
	if noColor {
		return s
	}
	return code + s + ansiReset
}

func printLine(code, prefix, format string, args ...any) {
	fmt.Fprintln(os.Stderr, paint(code, prefix+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { printLine(ansiGreen, "✓ ", format, args...) }

func printError(format string, args ...any) { printLine(ansiRed, "✗ ", format, args...) }

func printWarning(format string, args ...any) { printLine(ansiYellow, "⚠ ", format, args...) }

func printStep(format string, args ...any) { printLine(ansiCyan, "→ ", format, args...) }

// printStatus writes an indented "Label: value" line, as used by status
// and reconcile.
func printStatus(label, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s %s\n", paint(ansiBold, label+":"), fmt.Sprintf(format, args...))
}
