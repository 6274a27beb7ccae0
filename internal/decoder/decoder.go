// Package decoder turns the foot controller's byte stream into device state
// updates. Every protocol unit starts with one command byte whose high nibble
// selects the command family; the pedal family is followed by a fixed 2-byte
// payload pulled from the transport within the same decode step.
package decoder

import (
	"fmt"

	"go.uber.org/zap"

	"footctl/internal/transport"
)

// Command byte families. The low nibble carries the operand: pedal index
// (bit 0) for pedal reads, button number for button events.
const (
	cmdPedal  = 0xE0
	cmdButton = 0xF0

	// buttonReset is the low nibble that clears all buttons at once.
	buttonReset = 0x0F
)

// Line is the byte source the decoder pulls from. *transport.Port satisfies
// it.
type Line interface {
	Receive(buf []byte, timeoutMS int) (int, error)
}

// EventKind tags the result of a single decode step.
type EventKind int

const (
	// EventIgnored covers unrecognized commands and the defined-but-unmapped
	// button codes 12-14. Not an error; unknown opcodes are expected from
	// newer devices.
	EventIgnored EventKind = iota
	// EventPedal is a pedal value update (or a failed attempt at one, see
	// Event.PayloadErr).
	EventPedal
	// EventButton is a single button press.
	EventButton
	// EventButtonsReset cleared all buttons.
	EventButtonsReset
)

// Event is the tagged result of decoding one command byte.
type Event struct {
	Command byte
	Kind    EventKind

	// Pedal and Value are set for EventPedal. PayloadErr is non-nil when the
	// 2-byte payload read failed; the stored pedal value was left unchanged.
	Pedal      int
	Value      [2]byte
	PayloadErr error

	// Button is set for EventButton.
	Button int
}

// Config controls the decoder's read timeouts, in milliseconds.
type Config struct {
	// CommandTimeout bounds the wait for the next command byte. The
	// reference loop uses the shortest finite wait, 1 ms.
	CommandTimeout int
	// PayloadTimeout bounds the pedal payload read; non-blocking by default.
	PayloadTimeout int
}

// Decoder drives the transport and owns the device state.
type Decoder struct {
	line   Line
	state  *State
	logger *zap.Logger
	config Config
}

// New returns a decoder reading from line with zeroed device state.
func New(line Line, config Config, logger *zap.Logger) *Decoder {
	return &Decoder{
		line:   line,
		state:  NewState(),
		logger: logger,
		config: config,
	}
}

// State exposes the device state for display. The caller must only read it
// between decode steps.
func (d *Decoder) State() *State {
	return d.state
}

// Next reads and decodes one command byte, pulling payload bytes from the
// transport as the command family requires, and applies the result to the
// device state.
//
// A failed command-byte read is returned as an error without touching state;
// the caller is expected to back off briefly and call Next again. A failed
// pedal payload read does NOT produce an error here: the event carries it in
// PayloadErr, keeping the failure local to that one pedal update.
func (d *Decoder) Next() (Event, error) {
	var cmd [1]byte
	if _, err := d.line.Receive(cmd[:], d.config.CommandTimeout); err != nil {
		return Event{}, fmt.Errorf("reading command byte: %w", err)
	}

	ev := Event{Command: cmd[0]}

	switch cmd[0] & 0xF0 {
	case cmdPedal:
		d.readPedal(&ev, int(cmd[0]&0x01))
	case cmdButton:
		d.readButton(&ev, int(cmd[0]&0x0F))
	default:
		// Unknown command family: ignore, never an error.
	}

	return ev, nil
}

// readPedal pulls the fixed 2-byte payload for the selected pedal. The stored
// value is only overwritten once both bytes have arrived; a short or failed
// read leaves it untouched and surfaces the failure on the event.
func (d *Decoder) readPedal(ev *Event, pedal int) {
	ev.Kind = EventPedal
	ev.Pedal = pedal

	var payload [2]byte
	n, err := d.line.Receive(payload[:], d.config.PayloadTimeout)
	if err != nil {
		ev.PayloadErr = err
		ev.Value = d.state.Pedal(pedal)
		d.logger.Warn("Pedal payload read failed",
			zap.Int("pedal", pedal),
			zap.Int("bytes_read", n),
			zap.Error(err),
		)
		return
	}

	d.state.setPedal(pedal, payload)
	ev.Value = payload
}

func (d *Decoder) readButton(ev *Event, button int) {
	switch {
	case button == buttonReset:
		d.state.resetButtons()
		ev.Kind = EventButtonsReset
	case button < ButtonCount:
		d.state.pressButton(button)
		ev.Kind = EventButton
		ev.Button = button
	default:
		// Codes 12-14 frame correctly but map to no button. Accepted as
		// no-ops; the hardware is not known to emit them.
		ev.Kind = EventIgnored
	}
}

var _ Line = (*transport.Port)(nil)
