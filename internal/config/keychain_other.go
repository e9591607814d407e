//go:build !darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// secrets maps service -> account -> value. Without a system keychain the
// secrets live in a 0600 YAML file next to the persistent data.
type secrets map[string]map[string]string

func secretsFilePath() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", ".local", "share"), "jobportal", "secrets.yaml")
}

func readSecrets() (secrets, error) {
	data, err := os.ReadFile(secretsFilePath())
	if err != nil {
		return nil, err
	}
	var s secrets
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing secrets file: %w", err)
	}
	return s, nil
}

func keychainExec(service, account string) ([]byte, error) {
	s, err := readSecrets()
	if err != nil {
		return nil, fmt.Errorf("secrets file not available: %w", err)
	}
	val, ok := s[service][account]
	if !ok {
		return nil, fmt.Errorf("no secret %s/%s", service, account)
	}
	return []byte(val), nil
}

func keychainSet(service, account, value string) error {
	s, err := readSecrets()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if s == nil {
		s = secrets{}
	}
	if s[service] == nil {
		s[service] = map[string]string{}
	}
	s[service][account] = value

	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return writeFileAtomic(secretsFilePath(), data)
}
