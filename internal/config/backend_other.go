//go:build !darwin

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// xdgDir resolves an XDG base directory, falling back to fallback under $HOME.
func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}

// PersistentDataDir is where `serve --persist` keeps its database.
func PersistentDataDir() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", ".local", "share"), "jobportal")
}

func secretHint(account string) string {
	return fmt.Sprintf(" or the secrets file %s (service: jobportal, account: %s)", secretsFilePath(), account)
}

// yamlBackend keeps settings as flat dotted keys in
// $XDG_CONFIG_HOME/jobportal/config.yaml.
type yamlBackend struct {
	path   string
	values map[string]any
}

func newPlatformBackend() ConfigBackend {
	b := &yamlBackend{
		path:   filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "jobportal", "config.yaml"),
		values: map[string]any{},
	}
	if err := b.read(); err != nil {
		slog.Warn("ignoring config file, using defaults", "path", b.path, "error", err)
	}
	return b
}

func (b *yamlBackend) read() error {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, &b.values); err != nil {
		return fmt.Errorf("parsing: %w", err)
	}
	if b.values == nil {
		b.values = map[string]any{}
	}
	return nil
}

// write replaces the file atomically so a crash never leaves half a config.
func (b *yamlBackend) write() error {
	data, err := yaml.Marshal(b.values)
	if err != nil {
		return err
	}
	return writeFileAtomic(b.path, data)
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (b *yamlBackend) GetString(key string) (string, bool, error) {
	v, ok := b.values[key]
	if !ok {
		return "", false, nil
	}
	if s, isString := v.(string); isString {
		return s, true, nil
	}
	return fmt.Sprint(v), true, nil
}

func (b *yamlBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.values[key]
	if !ok {
		return 0, false, nil
	}
	switch n := v.(type) {
	case int:
		return n, true, nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, true, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return i, true, nil
	}
	return 0, true, fmt.Errorf("%s: expected an integer, got %T", key, v)
}

func (b *yamlBackend) SetString(key, val string) error {
	b.values[key] = val
	return b.write()
}

func (b *yamlBackend) SetInt(key string, val int) error {
	b.values[key] = val
	return b.write()
}

func (b *yamlBackend) Delete(key string) error {
	if _, ok := b.values[key]; !ok {
		return nil
	}
	delete(b.values, key)
	return b.write()
}
