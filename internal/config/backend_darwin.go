//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// On macOS settings live in the user defaults database under this domain.
const defaultsDomain = "com.kalambet.jobportal"

// PersistentDataDir is where `serve --persist` keeps its database:
// ~/Library/Application Support/jobportal, or ./jobportal-data without a home.
func PersistentDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "jobportal-data"
	}
	return filepath.Join(home, "Library", "Application Support", "jobportal")
}

func secretHint(account string) string {
	return fmt.Sprintf(", or store it with `security add-generic-password -s jobportal -a %s -w`", account)
}

// defaultsBackend drives the `defaults` tool. Every portal setting is a
// plain string or integer value in one domain.
type defaultsBackend struct {
	domain string
}

func newPlatformBackend() ConfigBackend {
	return defaultsBackend{domain: defaultsDomain}
}

func (b defaultsBackend) run(verb, key string, extra ...string) ([]byte, error) {
	args := append([]string{verb, b.domain, key}, extra...)
	return exec.Command("defaults", args...).CombinedOutput()
}

// lookup returns ok=false when the domain has no value for key; `defaults`
// reports that with exit status 1.
func (b defaultsBackend) lookup(key string) (string, bool, error) {
	out, err := b.run("read", key)
	val := strings.TrimSpace(string(out))
	var exit *exec.ExitError
	switch {
	case err == nil:
		return val, true, nil
	case errors.As(err, &exit) && exit.ExitCode() == 1:
		return "", false, nil
	default:
		return "", false, fmt.Errorf("defaults read %s %s: %w (%s)", b.domain, key, err, val)
	}
}

func (b defaultsBackend) write(key, kind, val string) error {
	if out, err := b.run("write", key, kind, val); err != nil {
		return fmt.Errorf("defaults write %s %s: %w (%s)", b.domain, key, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (b defaultsBackend) GetString(key string) (string, bool, error) {
	return b.lookup(key)
}

func (b defaultsBackend) GetInt(key string) (int, bool, error) {
	val, ok, err := b.lookup(key)
	if !ok || err != nil {
		return 0, ok, err
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, true, fmt.Errorf("setting %s is %q, want an integer", key, val)
	}
	return n, true, nil
}

func (b defaultsBackend) SetString(key, val string) error {
	return b.write(key, "-string", val)
}

func (b defaultsBackend) SetInt(key string, val int) error {
	return b.write(key, "-int", strconv.Itoa(val))
}

func (b defaultsBackend) Delete(key string) error {
	_, ok, err := b.lookup(key)
	if err != nil || !ok {
		return err
	}
	if out, err := b.run("delete", key); err != nil {
		return fmt.Errorf("defaults delete %s %s: %w (%s)", b.domain, key, err, strings.TrimSpace(string(out)))
	}
	return nil
}
