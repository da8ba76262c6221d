package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSecret(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	return path
}

func TestLoadPrefersFile(t *testing.T) {
	path := writeSecret(t, "  from-file\n")

	got, err := Load(Source{Name: "api key", File: path, Value: "inline"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-file" {
		t.Fatalf("expected file secret, got %q", got)
	}
}

func TestLoadUsesEnvFile(t *testing.T) {
	path := writeSecret(t, "from-env-file")
	t.Setenv("CV_EVALUATOR_TEST_SECRET_FILE", path)

	got, err := Load(Source{Name: "password", Env: "CV_EVALUATOR_TEST_SECRET_FILE"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-env-file" {
		t.Fatalf("expected env file secret, got %q", got)
	}
}

func TestLoadFallsBackToValue(t *testing.T) {
	got, err := Load(Source{Name: "password", Value: " inline "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "inline" {
		t.Fatalf("expected inline secret, got %q", got)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(Source{Name: "password"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	empty := writeSecret(t, "   \n")
	_, err := Load(Source{Name: "api key", File: empty})
	if err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Fatalf("expected empty file error, got %v", err)
	}
	if errors.Is(err, ErrNotConfigured) {
		t.Fatalf("empty file must not be reported as not configured")
	}

	_, err = Load(Source{Name: "api key", File: filepath.Join(t.TempDir(), "missing")})
	if err == nil || !strings.Contains(err.Error(), "reading api key") {
		t.Fatalf("expected read error, got %v", err)
	}
}
