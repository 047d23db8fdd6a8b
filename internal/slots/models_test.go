package slots_test

import (
	"testing"

	"jukebox/internal/slots"
)

func TestParseTrackFileName(t *testing.T) {
	cases := []struct {
		base   string
		number int
		name   string
		ok     bool
	}{
		{"42_Blue Monday.mp3", 42, "Blue Monday", true},
		{"0_Zero.mp3", 0, "Zero", true},
		{"7_Some_Name.mp3", 7, "Some_Name", true},
		{"noprefix.mp3", 0, "", false},
		{"12_Missing.wav", 0, "", false},
		{"-3_Negative.mp3", 0, "", false},
	}
	for _, tc := range cases {
		number, name, ok := slots.ParseTrackFileName(tc.base)
		if ok != tc.ok || number != tc.number || name != tc.name {
			t.Fatalf("ParseTrackFileName(%q) = (%d, %q, %v), want (%d, %q, %v)",
				tc.base, number, name, ok, tc.number, tc.name, tc.ok)
		}
	}
}

func TestParseSampleFileName(t *testing.T) {
	cases := []struct {
		base string
		key  string
		name string
		ok   bool
	}{
		{"R_Horn.wav", "R", "Horn", true},
		{"3_Kick.wav", "3", "Kick", true},
		{"g_Chime.wav", "G", "Chime", true},
		{"Z_Unknown.wav", "", "", false},
		{"R_Horn.mp3", "", "", false},
	}
	for _, tc := range cases {
		key, name, ok := slots.ParseSampleFileName(tc.base)
		if ok != tc.ok || key != tc.key || name != tc.name {
			t.Fatalf("ParseSampleFileName(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.base, key, name, ok, tc.key, tc.name, tc.ok)
		}
	}
}

func TestSanitizeName(t *testing.T) {
	if got := slots.SanitizeName("AC/DC: Back in Black?"); got != "AC_DC_ Back in Black_" {
		t.Fatalf("SanitizeName = %q", got)
	}
	if got := slots.SanitizeName("   "); got != "untitled" {
		t.Fatalf("SanitizeName of blank = %q", got)
	}
	if got := slots.SanitizeName("Beyoncé - Déjà Vu"); got != "Beyonce - Deja Vu" {
		t.Fatalf("SanitizeName of accented title = %q", got)
	}
}

func TestValidSampleKey(t *testing.T) {
	for _, key := range slots.SampleKeys {
		if !slots.ValidSampleKey(key) {
			t.Fatalf("expected %q to be valid", key)
		}
	}
	for _, key := range []string{"Z", "", "10", "RR"} {
		if slots.ValidSampleKey(key) {
			t.Fatalf("expected %q to be invalid", key)
		}
	}
}
