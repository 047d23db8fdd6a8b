// Package keypad turns the raw 4-bit code from the keypad decoder board into
// discrete key events, sampling GPIO lines and de-duplicating held keys.
package keypad
