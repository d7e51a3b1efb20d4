package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the config file created inside the data directory.
const FileName = "config.yml"

// Validate is the strict check run before a config is written.
func Validate(cfg Config) error {
	_, v := NormalizeAndValidate(cfg)
	if v.OK() {
		return nil
	}
	return errors.New("config validation failed:\n- " + strings.Join(v.Errors, "\n- "))
}

// SaveAtomic validates cfg and replaces path with it. The previous file is
// kept as path.bak.
func SaveAtomic(path string, cfg Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	b, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("config marshal: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		bak := path + ".bak"
		_ = os.Remove(bak)
		if err := os.Rename(path, bak); err != nil {
			return fmt.Errorf("config backup: %w", err)
		}
	}
	return writeFileAtomic(path, b)
}

// EnsureUserConfig writes the built-in config to <dataDir>/config.yml unless
// the file exists. created reports whether it was written now.
func EnsureUserConfig(dataDir string) (path string, created bool, err error) {
	path = filepath.Join(dataDir, FileName)
	switch _, err := os.Stat(path); {
	case err == nil:
		return path, false, nil
	case !errors.Is(err, fs.ErrNotExist):
		return "", false, err
	}
	if err := writeFileAtomic(path, defaultConfig); err != nil {
		return "", false, err
	}
	return path, true, nil
}

// writeFileAtomic writes data to a temp file next to path and renames it
// into place, so readers never see a partial file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
