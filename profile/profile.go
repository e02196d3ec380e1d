// Package profile persists hotkey bindings in a TOML or YAML file and
// turns file edits into reload lists.
package profile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"chord/hotkey"
)

// Entry is one binding as written in the file.
type Entry struct {
	ID          string `toml:"id,omitempty" yaml:"id,omitempty"`
	Keys        string `toml:"keys" yaml:"keys"`
	Description string `toml:"description,omitempty" yaml:"description,omitempty"`
}

type document struct {
	Hotkeys []Entry `toml:"hotkey" yaml:"hotkey"`
}

var idSpace = uuid.MustParse("6f1d5a52-4c1e-4c55-9a57-3c1b0e0c9d10")

// DefaultPath is profile.toml in the user config directory.
func DefaultPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "chord", "profile.toml")
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Load reads path and returns its bindings rendered in style. A missing
// file is an empty profile. Entries without an id get one derived from
// their keys, so the same line keeps the same id across reloads.
func Load(path string, style hotkey.Style) ([]hotkey.Binding, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return Decode(raw, isYAML(path), style)
}

// Decode parses a profile document.
func Decode(raw []byte, asYAML bool, style hotkey.Style) ([]hotkey.Binding, error) {
	var doc document
	if asYAML {
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
	} else {
		if _, err := toml.Decode(string(raw), &doc); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
	}

	out := make([]hotkey.Binding, 0, len(doc.Hotkeys))
	seen := make(map[hotkey.BindingID]int, len(doc.Hotkeys))
	for i, e := range doc.Hotkeys {
		def, err := hotkey.ParseStyled(style, e.Keys, e.Description)
		if err != nil {
			return nil, fmt.Errorf("hotkey %d: %w", i+1, err)
		}
		id := hotkey.BindingID(e.ID)
		if id == "" {
			id = hotkey.BindingID(uuid.NewSHA1(idSpace, []byte(def.Accelerator())).String())
		}
		if prev, dup := seen[id]; dup {
			return nil, fmt.Errorf("hotkey %d: id %q already used by hotkey %d", i+1, id, prev)
		}
		seen[id] = i + 1
		out = append(out, hotkey.NewBinding(id, def))
	}
	return out, nil
}

// Encode renders bindings as a profile document.
func Encode(bs []hotkey.Binding, asYAML bool) ([]byte, error) {
	doc := document{Hotkeys: make([]Entry, 0, len(bs))}
	for _, b := range bs {
		doc.Hotkeys = append(doc.Hotkeys, Entry{
			ID:          string(b.ID),
			Keys:        b.Definition.Accelerator(),
			Description: b.Definition.Description(),
		})
	}
	if asYAML {
		return yaml.Marshal(doc)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes bs to path through a temp file and rename.
func Save(path string, bs []hotkey.Binding) (err error) {
	data, err := Encode(bs, isYAML(path))
	if err != nil {
		return fmt.Errorf("save profile: encode: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("save profile: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".profile.tmp.*")
	if err != nil {
		return fmt.Errorf("save profile: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("save profile: write: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("save profile: sync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("save profile: close: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("save profile: rename: %w", err)
	}
	return nil
}

// Changes is the difference between two profile loads.
type Changes struct {
	Removed []hotkey.BindingID
	Added   []hotkey.Binding // new ids and ids whose keys changed
}

func (c Changes) Empty() bool { return len(c.Removed) == 0 && len(c.Added) == 0 }

// Diff compares an old and new load. A binding whose keys changed appears
// in both lists so the host can unregister before registering again.
func Diff(old, cur []hotkey.Binding) Changes {
	prev := make(map[hotkey.BindingID]hotkey.Definition, len(old))
	for _, b := range old {
		prev[b.ID] = b.Definition
	}
	var ch Changes
	kept := make(map[hotkey.BindingID]bool, len(cur))
	for _, b := range cur {
		kept[b.ID] = true
		def, ok := prev[b.ID]
		if ok && def.Equal(b.Definition) {
			continue
		}
		if ok {
			ch.Removed = append(ch.Removed, b.ID)
		}
		ch.Added = append(ch.Added, b)
	}
	for _, b := range old {
		if !kept[b.ID] {
			ch.Removed = append(ch.Removed, b.ID)
		}
	}
	return ch
}
