package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the scorebridge banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{`                        _          _     _            `, "#34d399"},
		{`  ___  ___ ___  _ __ ___| |__  _ __(_) __| | __ _  ___ `, "#2dd4bf"},
		{` / __|/ __/ _ \| '__/ _ \ '_ \| '__| |/ _' |/ _' |/ _ \`, "#22d3ee"},
		{` \__ \ (_| (_) | | |  __/ |_) | |  | | (_| | (_| |  __/`, "#38bdf8"},
		{` |___/\___\___/|_|  \___|_.__/|_|  |_|\__,_|\__, |\___|`, "#60a5fa"},
		{`                                            |___/      `, "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
