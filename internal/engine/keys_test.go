package engine

import (
	"testing"

	"github.com/go-rod/rod/lib/input"
)

func TestChordKeysOrder(t *testing.T) {
	chord := Chord{
		Key:       "A",
		Modifiers: Modifiers{Ctrl: true, Shift: true},
	}

	keys := chord.Keys()
	want := []string{"Control", "Shift", "A"}
	if len(keys) != len(want) {
		t.Fatalf("Keys length = %d, want %d", len(keys), len(want))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestChordKeysAllModifiers(t *testing.T) {
	chord := Chord{
		Key:       "Tab",
		Modifiers: Modifiers{Ctrl: true, Alt: true, Shift: true, Meta: true},
	}

	// Modifier order is fixed so the same request always produces
	// the same dispatch.
	want := "Control+Alt+Shift+Meta+Tab"
	if got := chord.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestChordStringBareKey(t *testing.T) {
	chord := Chord{Key: "Enter"}
	if got := chord.String(); got != "Enter" {
		t.Errorf("String() = %q, want %q", got, "Enter")
	}
}

func TestLookupKeyNamed(t *testing.T) {
	tests := []struct {
		name string
		want input.Key
	}{
		{"Enter", input.Enter},
		{"Escape", input.Escape},
		{"ArrowDown", input.ArrowDown},
		{"Control", input.ControlLeft},
		{"Meta", input.MetaLeft},
	}
	for _, tt := range tests {
		got, ok := lookupKey(tt.name)
		if !ok {
			t.Errorf("lookupKey(%q) should resolve", tt.name)
			continue
		}
		if got != tt.want {
			t.Errorf("lookupKey(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestLookupKeySingleRune(t *testing.T) {
	got, ok := lookupKey("a")
	if !ok {
		t.Fatal("single characters should resolve directly")
	}
	if got != input.Key('a') {
		t.Errorf("lookupKey(\"a\") = %v, want %v", got, input.Key('a'))
	}
}

func TestLookupKeyUnknown(t *testing.T) {
	if _, ok := lookupKey("NotAKey"); ok {
		t.Error("unknown multi-character names should fail")
	}
}
