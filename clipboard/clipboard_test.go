package clipboard

import (
	"testing"

	cb "github.com/atotto/clipboard"

	"chord/hotkey"
)

func TestCopyDefinitionRejectsEmpty(t *testing.T) {
	if _, err := CopyDefinition(hotkey.Definition{}); err == nil {
		t.Error("expected an error for an empty definition")
	}
}

func TestCopyDefinitionRoundTrip(t *testing.T) {
	if !Available() {
		t.Skip("no clipboard utility")
	}
	def := hotkey.MustParse("Ctrl+Alt+K")
	text, err := CopyDefinition(def)
	if err != nil {
		t.Skipf("clipboard not usable here: %v", err)
	}
	got, err := cb.ReadAll()
	if err != nil {
		t.Skipf("clipboard not readable here: %v", err)
	}
	if got != text {
		t.Errorf("read %q, copied %q", got, text)
	}
}
