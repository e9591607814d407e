//go:build darwin

package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestSecretHint_NamesKeychainAccount(t *testing.T) {
	hint := secretHint("admin_password")
	if !strings.Contains(hint, "-s jobportal -a admin_password") {
		t.Errorf("hint = %q", hint)
	}
}

func TestPersistentDataDir(t *testing.T) {
	t.Setenv("HOME", "/Users/ada")
	want := filepath.Join("/Users/ada", "Library", "Application Support", "jobportal")
	if got := PersistentDataDir(); got != want {
		t.Errorf("PersistentDataDir() = %q, want %q", got, want)
	}
}
