package keypad

import "fmt"

// Code is the raw 4-bit vector presented by the decoder board. Bit 0 is the
// first configured GPIO line. Zero means no key is pressed.
type Code uint8

// Key identifies a recognized keypad key.
type Key int

const (
	Key0 Key = iota
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyClear
	KeyConfirm
	KeyYellow
	KeyBlue
	KeyRed
)

// codeTable maps the decoder board's wire codes to keys. Bit 0 is the first
// configured line; the all-zero code means "released".
var codeTable = map[Code]Key{
	0b1010: Key0,
	0b1101: Key1,
	0b1001: Key2,
	0b0101: Key3,
	0b1100: Key4,
	0b1000: Key5,
	0b0100: Key6,
	0b1111: Key7,
	0b1011: Key8,
	0b0111: Key9,
	0b1110: KeyClear,
	0b0110: KeyConfirm,
	0b0001: KeyYellow,
	0b0010: KeyBlue,
	0b0011: KeyRed,
}

// Digit returns the numeric value of a digit key.
func (k Key) Digit() (int, bool) {
	if k >= Key0 && k <= Key9 {
		return int(k), true
	}
	return 0, false
}

func (k Key) String() string {
	if digit, ok := k.Digit(); ok {
		return fmt.Sprintf("digit-%d", digit)
	}
	switch k {
	case KeyClear:
		return "clear"
	case KeyConfirm:
		return "confirm"
	case KeyYellow:
		return "yellow"
	case KeyBlue:
		return "blue"
	case KeyRed:
		return "red"
	default:
		return fmt.Sprintf("key(%d)", int(k))
	}
}

// Event is one de-duplicated key press.
type Event struct {
	Key Key
}

// Decoder detects key-down transitions between sampled codes. A key fires once
// per press; held keys stay silent until all keys are released. Codes outside
// the table (transient multi-key overlap) neither fire nor disturb the latched
// state, so bounce between two valid codes cannot produce spurious events.
type Decoder struct {
	prev Code
}

// Feed consumes one sampled code and reports the key event it produced, if any.
func (d *Decoder) Feed(code Code) (Event, bool) {
	code &= 0x0F
	if code == d.prev {
		return Event{}, false
	}
	if code == 0 {
		d.prev = 0
		return Event{}, false
	}
	key, known := codeTable[code]
	if !known {
		return Event{}, false
	}
	d.prev = code
	return Event{Key: key}, true
}

// Reset clears the latched state, as if all keys were released.
func (d *Decoder) Reset() {
	d.prev = 0
}

// Codes returns every recognized wire code, for exercising the full table.
func Codes() []Code {
	codes := make([]Code, 0, len(codeTable))
	for code := range codeTable {
		codes = append(codes, code)
	}
	return codes
}
