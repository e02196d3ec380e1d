// Package clipboard copies accelerator strings so they can be pasted into
// other applications' settings.
package clipboard

import (
	"errors"
	"fmt"

	cb "github.com/atotto/clipboard"

	"chord/hotkey"
)

var ErrUnsupported = errors.New("no clipboard utility found (install xclip, xsel or wl-clipboard)")

func Available() bool { return !cb.Unsupported }

func Copy(text string) error {
	if cb.Unsupported {
		return ErrUnsupported
	}
	return cb.WriteAll(text)
}

// CopyDefinition puts the portable accelerator of def on the clipboard and
// returns the text copied.
func CopyDefinition(def hotkey.Definition) (string, error) {
	if def.IsZero() {
		return "", fmt.Errorf("clipboard: empty definition")
	}
	text := def.Accelerator()
	if err := Copy(text); err != nil {
		return "", fmt.Errorf("clipboard: %w", err)
	}
	return text, nil
}
