package decoder

// PedalCount and ButtonCount describe the controller hardware: two expression
// pedals reporting 2-byte raw values and twelve footswitch buttons.
const (
	PedalCount  = 2
	ButtonCount = 12
)

// State is the in-memory snapshot of the controller. It has exactly one
// writer, the Decoder, and is never mutated concurrently.
type State struct {
	pedals  [PedalCount][2]byte
	buttons [ButtonCount]bool
}

// NewState returns a zeroed controller state: pedals at 0x0000, no buttons
// pressed.
func NewState() *State {
	return &State{}
}

// Pedal returns the raw 2-byte value of pedal i.
func (s *State) Pedal(i int) [2]byte {
	return s.pedals[i]
}

// Button reports whether button i is pressed.
func (s *State) Button(i int) bool {
	return s.buttons[i]
}

// Snapshot returns a copy of the whole state, safe to hand to a renderer.
func (s *State) Snapshot() Snapshot {
	return Snapshot{Pedals: s.pedals, Buttons: s.buttons}
}

// Snapshot is a value copy of State.
type Snapshot struct {
	Pedals  [PedalCount][2]byte
	Buttons [ButtonCount]bool
}

func (s *State) setPedal(i int, value [2]byte) {
	s.pedals[i] = value
}

// pressButton sets a single button. Buttons are only ever set individually;
// clearing happens atomically for all of them via resetButtons.
func (s *State) pressButton(i int) {
	s.buttons[i] = true
}

func (s *State) resetButtons() {
	s.buttons = [ButtonCount]bool{}
}
