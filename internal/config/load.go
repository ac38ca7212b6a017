package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// maxConfigBytes bounds config.jsonc; anything larger is not a hand-written
// settings file.
const maxConfigBytes = 1 << 20

// Loaded is the effective configuration and where it came from.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	// Exists is false when Config holds defaults because Path was absent.
	Exists bool
}

// Load resolves the config path and layers the file over Default. A missing
// file is not an error; meowspeak runs on defaults and says so.
func Load(explicitPath string) (Loaded, error) {
	path, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}
	loaded := Loaded{Path: path, Config: Default()}

	content, err := readConfigFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		loaded.Warnings = []Warning{{Message: fmt.Sprintf("config file %q not found; using defaults", path)}}
		return loaded, nil
	}
	if err != nil {
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg, warnings, err := Parse(content, loaded.Config)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	loaded.Config = cfg
	loaded.Warnings = warnings
	loaded.Exists = true
	return loaded, nil
}

func readConfigFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", errors.New("path is a directory")
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigBytes+1))
	if err != nil {
		return "", err
	}
	if len(content) > maxConfigBytes {
		return "", errors.New("file exceeds 1MiB")
	}
	return string(content), nil
}
