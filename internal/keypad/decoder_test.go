package keypad_test

import (
	"testing"

	"jukebox/internal/keypad"
)

func TestDecoderEmitsOncePerTransition(t *testing.T) {
	for _, code := range keypad.Codes() {
		var decoder keypad.Decoder

		event, ok := decoder.Feed(code)
		if !ok {
			t.Fatalf("code %04b: expected event on first press", code)
		}
		first := event.Key

		// Held key stays silent.
		for i := 0; i < 5; i++ {
			if _, ok := decoder.Feed(code); ok {
				t.Fatalf("code %04b: event fired while held", code)
			}
		}

		// Release re-arms edge detection.
		if _, ok := decoder.Feed(0); ok {
			t.Fatalf("code %04b: release produced an event", code)
		}
		event, ok = decoder.Feed(code)
		if !ok || event.Key != first {
			t.Fatalf("code %04b: expected repeat press to fire %v again, got (%v, %v)", code, first, event.Key, ok)
		}
	}
}

func TestDecoderDigitMapping(t *testing.T) {
	seen := map[int]bool{}
	for _, code := range keypad.Codes() {
		var decoder keypad.Decoder
		event, ok := decoder.Feed(code)
		if !ok {
			t.Fatalf("code %04b not recognized", code)
		}
		if digit, isDigit := event.Key.Digit(); isDigit {
			if seen[digit] {
				t.Fatalf("digit %d mapped by two codes", digit)
			}
			seen[digit] = true
		}
	}
	for digit := 0; digit <= 9; digit++ {
		if !seen[digit] {
			t.Fatalf("digit %d has no code", digit)
		}
	}
}

func TestDecoderDirectTransitionBetweenKeys(t *testing.T) {
	var decoder keypad.Decoder

	if event, ok := decoder.Feed(0b1101); !ok || event.Key != keypad.Key1 {
		t.Fatalf("expected Key1, got (%v, %v)", event.Key, ok)
	}
	// A new valid code without an intervening release still fires.
	if event, ok := decoder.Feed(0b1001); !ok || event.Key != keypad.Key2 {
		t.Fatalf("expected Key2, got (%v, %v)", event.Key, ok)
	}
}

func TestDecoderResetRearmsLatchedKey(t *testing.T) {
	var decoder keypad.Decoder
	if event, ok := decoder.Feed(0b0011); !ok || event.Key != keypad.KeyRed {
		t.Fatalf("expected KeyRed, got (%v, %v)", event.Key, ok)
	}
	if _, ok := decoder.Feed(0b0011); ok {
		t.Fatal("latched code fired again without release")
	}
	decoder.Reset()
	if event, ok := decoder.Feed(0b0011); !ok || event.Key != keypad.KeyRed {
		t.Fatalf("expected KeyRed after reset, got (%v, %v)", event.Key, ok)
	}
}
