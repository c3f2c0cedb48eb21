package widget

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Mode selects what the widget shows.
type Mode int

const (
	ModeBattery Mode = iota
	ModeRAM

	modeCount = 2
)

func (m Mode) String() string {
	switch m {
	case ModeBattery:
		return "battery"
	case ModeRAM:
		return "ram"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Next cycles Battery -> RAM -> Battery.
func (m Mode) Next() Mode {
	return Mode((int(m) + 1) % modeCount)
}

// State is the persisted widget state.
type State struct {
	CurrentMode Mode  `yaml:"current_mode"`
	LastUpdated int64 `yaml:"last_updated"` // unix ms
}

// StateStore keeps State in a YAML file.
type StateStore struct {
	Path string
}

// Load returns the zero State when the file does not exist yet. Unknown
// modes fall back to battery.
func (s StateStore) Load() (State, error) {
	var st State
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("read widget state: %w", err)
	}
	if err := yaml.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("parse widget state: %w", err)
	}
	if st.CurrentMode < 0 || st.CurrentMode >= modeCount {
		st.CurrentMode = ModeBattery
	}
	return st, nil
}

// Save replaces the file atomically.
func (s StateStore) Save(st State) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode widget state: %w", err)
	}
	return writeAtomic(s.Path, data)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
