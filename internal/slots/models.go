package slots

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TrackSlot is a numbered jukebox slot holding one track.
type TrackSlot struct {
	Number    int
	Name      string
	AudioPath string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SampleSlot is a soundboard slot addressed by bank and key.
type SampleSlot struct {
	Bank      int
	Key       string
	Name      string
	AudioPath string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SampleKeys lists the keypad keys that can hold a sample within a bank.
var SampleKeys = []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "R", "G"}

var sampleKeySet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(SampleKeys))
	for _, key := range SampleKeys {
		set[key] = struct{}{}
	}
	return set
}()

// ValidSampleKey reports whether key can address a sample slot.
func ValidSampleKey(key string) bool {
	_, ok := sampleKeySet[strings.ToUpper(strings.TrimSpace(key))]
	return ok
}

// NormalizeSampleKey canonicalizes a sample key for storage lookups.
func NormalizeSampleKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// TrackFileName returns the on-disk base name for a track slot.
func TrackFileName(number int, name string) string {
	return fmt.Sprintf("%d_%s.mp3", number, SanitizeName(name))
}

// SampleFileName returns the on-disk base name for a sample slot.
func SampleFileName(key, name string) string {
	return fmt.Sprintf("%s_%s.wav", NormalizeSampleKey(key), SanitizeName(name))
}

// ParseTrackFileName extracts the slot number and display name from a
// "{number}_{name}.mp3" base name.
func ParseTrackFileName(base string) (int, string, bool) {
	if !strings.EqualFold(filepath.Ext(base), ".mp3") {
		return 0, "", false
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	numberPart, namePart, found := strings.Cut(stem, "_")
	if !found {
		return 0, "", false
	}
	number, err := strconv.Atoi(numberPart)
	if err != nil || number < 0 {
		return 0, "", false
	}
	return number, namePart, true
}

// ParseSampleFileName extracts the key and display name from a
// "{key}_{name}.wav" base name.
func ParseSampleFileName(base string) (string, string, bool) {
	if !strings.EqualFold(filepath.Ext(base), ".wav") {
		return "", "", false
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	keyPart, namePart, found := strings.Cut(stem, "_")
	if !found || !ValidSampleKey(keyPart) {
		return "", "", false
	}
	return NormalizeSampleKey(keyPart), namePart, true
}

// stripMarks decomposes accented characters and drops the combining marks,
// so downloaded titles like "Beyoncé" survive as "Beyonce".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SanitizeName strips characters that are unsafe in slot file names.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "untitled"
	}
	if stripped, _, err := transform.String(stripMarks, name); err == nil {
		name = stripped
	}
	var builder strings.Builder
	builder.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == '-' || r == '.' || r == ' ':
			builder.WriteRune(r)
		default:
			builder.WriteByte('_')
		}
	}
	return strings.TrimSpace(builder.String())
}
