package decoder

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"footctl/internal/transport"
)

type lineStep struct {
	data []byte
	n    int // overrides len(data) when err is set
	err  error
}

// scriptLine feeds the decoder a scripted byte stream and records the
// timeouts requested for each read.
type scriptLine struct {
	steps    []lineStep
	timeouts []int
}

func (l *scriptLine) Receive(buf []byte, timeoutMS int) (int, error) {
	l.timeouts = append(l.timeouts, timeoutMS)

	if len(l.steps) == 0 {
		return 0, transport.ErrTimeout
	}
	step := l.steps[0]
	l.steps = l.steps[1:]

	if step.err != nil {
		return copy(buf, step.data[:step.n]), step.err
	}
	return copy(buf, step.data), nil
}

func newTestDecoder(steps ...lineStep) (*Decoder, *scriptLine) {
	line := &scriptLine{steps: steps}
	d := New(line, Config{CommandTimeout: 1, PayloadTimeout: 0}, zap.NewNop())
	return d, line
}

func (d *Decoder) mustNext(t *testing.T) Event {
	t.Helper()
	ev, err := d.Next()
	require.NoError(t, err)
	return ev
}

func TestUnknownCommandsIgnored(t *testing.T) {
	// High nibbles 0x0-0xD never mutate state.
	for high := 0; high <= 0xD; high++ {
		cmd := byte(high<<4 | 0x07)
		d, _ := newTestDecoder(lineStep{data: []byte{cmd}})

		ev := d.mustNext(t)
		require.Equal(t, EventIgnored, ev.Kind, "command %#02x", cmd)
		require.Equal(t, cmd, ev.Command)
		require.Equal(t, Snapshot{}, d.State().Snapshot(), "command %#02x must not mutate state", cmd)
	}
}

func TestButtonPressSetsExactlyOne(t *testing.T) {
	for button := 0; button < ButtonCount; button++ {
		d, _ := newTestDecoder(lineStep{data: []byte{byte(0xF0 | button)}})

		ev := d.mustNext(t)
		require.Equal(t, EventButton, ev.Kind)
		require.Equal(t, button, ev.Button)

		snap := d.State().Snapshot()
		for i := 0; i < ButtonCount; i++ {
			require.Equal(t, i == button, snap.Buttons[i], "button %d after command for %d", i, button)
		}
	}
}

func TestButtonPressOnlySets(t *testing.T) {
	// Individual button codes never clear other buttons.
	d, _ := newTestDecoder(
		lineStep{data: []byte{0xF0}},
		lineStep{data: []byte{0xF5}},
		lineStep{data: []byte{0xF0}},
	)

	d.mustNext(t)
	d.mustNext(t)
	d.mustNext(t)

	snap := d.State().Snapshot()
	require.True(t, snap.Buttons[0])
	require.True(t, snap.Buttons[5])
}

func TestUnmappedButtonCodesAreNoOps(t *testing.T) {
	for _, low := range []int{12, 13, 14} {
		d, _ := newTestDecoder(
			lineStep{data: []byte{0xF3}},
			lineStep{data: []byte{byte(0xF0 | low)}},
		)

		d.mustNext(t)
		ev := d.mustNext(t)
		require.Equal(t, EventIgnored, ev.Kind, "button code %d", low)

		snap := d.State().Snapshot()
		require.True(t, snap.Buttons[3], "existing state must survive the no-op")
	}
}

func TestResetClearsAllButtons(t *testing.T) {
	d, _ := newTestDecoder(
		lineStep{data: []byte{0xF0}},
		lineStep{data: []byte{0xF7}},
		lineStep{data: []byte{0xFB}},
		lineStep{data: []byte{0xFF}},
	)

	d.mustNext(t)
	d.mustNext(t)
	d.mustNext(t)

	ev := d.mustNext(t)
	require.Equal(t, EventButtonsReset, ev.Kind)
	require.Equal(t, [ButtonCount]bool{}, d.State().Snapshot().Buttons)
}

func TestPedalUpdate(t *testing.T) {
	d, _ := newTestDecoder(
		lineStep{data: []byte{0xE0}},
		lineStep{data: []byte{0x12, 0x34}},
	)

	ev := d.mustNext(t)
	require.Equal(t, EventPedal, ev.Kind)
	require.Equal(t, 0, ev.Pedal)
	require.NoError(t, ev.PayloadErr)
	require.Equal(t, [2]byte{0x12, 0x34}, ev.Value)

	snap := d.State().Snapshot()
	require.Equal(t, [2]byte{0x12, 0x34}, snap.Pedals[0])
	require.Equal(t, [2]byte{}, snap.Pedals[1], "other pedal must be untouched")
}

func TestPedalIndexFromLowBit(t *testing.T) {
	d, _ := newTestDecoder(
		lineStep{data: []byte{0xE1}},
		lineStep{data: []byte{0xAB, 0xCD}},
	)

	ev := d.mustNext(t)
	require.Equal(t, 1, ev.Pedal)
	require.Equal(t, [2]byte{0xAB, 0xCD}, d.State().Snapshot().Pedals[1])
	require.Equal(t, [2]byte{}, d.State().Snapshot().Pedals[0])
}

func TestPedalPayloadTimeoutLeavesValue(t *testing.T) {
	d, _ := newTestDecoder(
		lineStep{data: []byte{0xE0}},
		lineStep{data: []byte{0x11, 0x22}},
		lineStep{data: []byte{0xE0}},
		lineStep{data: []byte{0x99}, n: 1, err: transport.ErrTimeout},
	)

	d.mustNext(t)

	ev, err := d.Next()
	require.NoError(t, err, "payload failure stays local to the pedal update")
	require.Equal(t, EventPedal, ev.Kind)
	require.ErrorIs(t, ev.PayloadErr, transport.ErrTimeout)
	require.Equal(t, [2]byte{0x11, 0x22}, ev.Value, "event reports the value still in effect")
	require.Equal(t, [2]byte{0x11, 0x22}, d.State().Snapshot().Pedals[0],
		"partial payload must not overwrite the pedal value")
}

func TestCommandReadErrorPropagates(t *testing.T) {
	d, _ := newTestDecoder(lineStep{err: transport.ErrRead, data: []byte{}})

	_, err := d.Next()
	require.ErrorIs(t, err, transport.ErrRead)
	require.Equal(t, Snapshot{}, d.State().Snapshot())
}

func TestCommandTimeoutPropagates(t *testing.T) {
	d, _ := newTestDecoder()

	_, err := d.Next()
	require.ErrorIs(t, err, transport.ErrTimeout)
}

func TestConfiguredTimeoutsAreUsed(t *testing.T) {
	line := &scriptLine{steps: []lineStep{
		{data: []byte{0xE0}},
		{data: []byte{0x01, 0x02}},
	}}
	d := New(line, Config{CommandTimeout: 1, PayloadTimeout: 0}, zap.NewNop())

	d.mustNext(t)
	require.Equal(t, []int{1, 0}, line.timeouts,
		"command byte uses the short bounded timeout, payload the non-blocking one")
}
