//go:build linux

package login

import (
	"fmt"
	"os"
	"path/filepath"
)

func entryPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "autostart", appName+".desktop")
}

func Enabled() bool {
	_, err := os.Stat(entryPath())
	return err == nil
}

func Enable(argv []string) error {
	path := entryPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create autostart dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(desktopEntry(argv)), 0644); err != nil {
		return fmt.Errorf("write autostart entry: %w", err)
	}
	return nil
}

func Disable() error {
	if err := os.Remove(entryPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove autostart entry: %w", err)
	}
	return nil
}
