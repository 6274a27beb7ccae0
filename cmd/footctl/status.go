package main

import (
	"fmt"
	"io"
	"strings"

	"footctl/internal/decoder"
)

// statusRenderer rewrites a single status line in place showing the last
// command byte, both pedal values and the button states.
type statusRenderer struct {
	w io.Writer
	// width of the previously written line, so shorter lines overwrite
	// leftovers from longer ones
	lastWidth int
}

func newStatusRenderer(w io.Writer) *statusRenderer {
	return &statusRenderer{w: w}
}

// render shows the current device state
func (r *statusRenderer) render(cmd byte, snap decoder.Snapshot) {
	r.write(formatStatus(cmd, snap))
}

// renderError shows a read failure on the status line, reference style
func (r *statusRenderer) renderError(err error) {
	r.write(fmt.Sprintf("Error while reading command: %v", err))
}

func (r *statusRenderer) write(line string) {
	width := len(line)
	if pad := r.lastWidth - width; pad > 0 {
		line += strings.Repeat(" ", pad)
	}

	fmt.Fprintf(r.w, "\r%s", line)
	r.lastWidth = width
}

// formatStatus renders the state the way the controller's service tool does:
// command byte, pedal values as hex pairs and one column per button.
func formatStatus(cmd byte, snap decoder.Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "CMD:%02X ", cmd)
	fmt.Fprintf(&b, "Exp1:%02X%02X ", snap.Pedals[0][0], snap.Pedals[0][1])
	fmt.Fprintf(&b, "Exp2:%02X%02X ", snap.Pedals[1][0], snap.Pedals[1][1])
	b.WriteString("Button:")

	for _, pressed := range snap.Buttons {
		if pressed {
			b.WriteByte('*')
		} else {
			b.WriteByte(' ')
		}
	}

	return b.String()
}
