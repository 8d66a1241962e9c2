package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the compositor banner with a teal-to-amber gradient.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text, color string
	}{
		{"   ___                                _ _             ", "#2dd4bf"},
		{"  / __\\___  _ __ ___  _ __   ___  ___(_) |_ ___  _ __ ", "#5eead4"},
		{" / /  / _ \\| '_ ` _ \\| '_ \\ / _ \\/ __| | __/ _ \\| '__|", "#a3e635"},
		{"/ /__| (_) | | | | | | |_) | (_) \\__ \\ | || (_) | |   ", "#facc15"},
		{"\\____/\\___/|_| |_| |_| .__/ \\___/|___/_|\\__\\___/|_|   ", "#fbbf24"},
		{"                     |_|                              ", "#f59e0b"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  "+version).Faint())
	fmt.Fprintln(w)
}
