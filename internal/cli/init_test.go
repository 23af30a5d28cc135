package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("KHARCHA_TEST_TIMEZONE=Asia/Kolkata\nKHARCHA_TEST_PORT=9000\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	// Registered with t.Setenv so both are restored afterwards.
	t.Setenv("KHARCHA_TEST_TIMEZONE", "")
	os.Unsetenv("KHARCHA_TEST_TIMEZONE")
	t.Setenv("KHARCHA_TEST_PORT", "8081")

	LoadEnvFile(path)

	if got := os.Getenv("KHARCHA_TEST_TIMEZONE"); got != "Asia/Kolkata" {
		t.Errorf("KHARCHA_TEST_TIMEZONE = %q, want value from file", got)
	}
	if got := os.Getenv("KHARCHA_TEST_PORT"); got != "8081" {
		t.Errorf("KHARCHA_TEST_PORT = %q, existing variables must win", got)
	}
}

func TestLoadEnvFileMissing(t *testing.T) {
	LoadEnvFile(filepath.Join(t.TempDir(), "absent.env"))
}

func TestSetupLogger(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	if logger := SetupLogger("test"); logger == nil {
		t.Fatal("SetupLogger() returned nil")
	}
}
