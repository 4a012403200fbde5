package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the stanza banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"      _                          ", "#818cf8"},
		{"  ___| |_ __ _ _ __  ______ _    ", "#a78bfa"},
		{" / __| __/ _` | '_ \\|_  / _` |   ", "#c084fc"},
		{" \\__ \\ || (_| | | | |/ / (_| |   ", "#e879f9"},
		{" |___/\\__\\__,_|_| |_/___\\__,_|   ", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  v"+strings.TrimSpace(version)).Faint())
	fmt.Fprintln(w)
}
