package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"injtracker/internal/domain"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
)

func colorize(noColor bool, color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(w io.Writer, noColor bool, format string, args ...any) {
	fmt.Fprintln(w, colorize(noColor, colorGreen, "✓ "+fmt.Sprintf(format, args...)))
}

func printError(w io.Writer, noColor bool, format string, args ...any) {
	fmt.Fprintln(w, colorize(noColor, colorRed, "✗ "+fmt.Sprintf(format, args...)))
}

func printWarning(w io.Writer, noColor bool, format string, args ...any) {
	fmt.Fprintln(w, colorize(noColor, colorYellow, "⚠ "+fmt.Sprintf(format, args...)))
}

func printStatus(w io.Writer, noColor bool, label, format string, args ...any) {
	fmt.Fprintf(w, "  %s %s\n", colorize(noColor, colorBold, label+":"), fmt.Sprintf(format, args...))
}

// scoreColor renders text in the heatmap color of s using 24-bit ANSI.
func scoreColor(noColor bool, s domain.Score, text string) string {
	if noColor || s.IsOutside() {
		return text
	}
	c := domain.ScoreColor(s)
	return fmt.Sprintf("\033[38;2;%d;%d;%dm%s%s", c.R, c.G, c.B, text, colorReset)
}

// scoreBar draws v in [0, 1] as a ten-cell bar.
func scoreBar(v float64) string {
	n := int(v*10 + 0.5)
	if n < 0 {
		n = 0
	}
	if n > 10 {
		n = 10
	}
	return strings.Repeat("█", n) + strings.Repeat("·", 10-n)
}

// fieldGlyph is the character used for one heatmap cell: blank outside the
// body, x in the exclusion zone, 0-9 for the score.
func fieldGlyph(s domain.Score) string {
	if s.IsOutside() {
		return " "
	}
	if s.IsExcluded() {
		return "x"
	}
	v, _ := s.Value()
	d := int(v * 10)
	if d > 9 {
		d = 9
	}
	if d < 0 {
		d = 0
	}
	return strconv.Itoa(d)
}

func renderField(w io.Writer, noColor bool, f domain.Field) {
	for gy := 0; gy < f.Resolution; gy++ {
		var b strings.Builder
		for gx := 0; gx < f.Resolution; gx++ {
			s := f.At(gx, gy)
			b.WriteString(scoreColor(noColor, s, fieldGlyph(s)))
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}
}

func formatInjection(inj domain.Injection) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %-16s %5s mg", inj.Date.Local().Format("2006-01-02 15:04"), inj.Site, inj.Dose)
	if inj.Weight != nil {
		fmt.Fprintf(&b, "  %.1f kg", *inj.Weight)
	}
	if inj.Notes != "" {
		fmt.Fprintf(&b, "  %q", inj.Notes)
	}
	fmt.Fprintf(&b, "  [%s]", inj.ID)
	return b.String()
}
