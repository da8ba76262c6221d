package logger

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  operation  ", Value: "  login  "},
		StringField{Key: "ignored", Value: "   "},
		StringField{Key: "   ", Value: "empty key"},
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}

	if fields[0].Key != "operation" || fields[0].String != "login" {
		t.Fatalf("unexpected operation field: %+v", fields[0])
	}

	empty := StringFields()
	if len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestWithFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	enriched := WithFields(logger, zap.String("foo", "bar"))
	enriched.Info("test log")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx["foo"] != "bar" {
		t.Fatalf("expected field to be bar, got %q", ctx["foo"])
	}

	enriched = WithFields(nil, zap.String("baz", "qux"))
	if enriched == nil {
		t.Fatalf("expected fallback logger when nil provided")
	}

	// Ensure logging with the fallback logger does not panic.
	enriched.Info("another log")
}

func TestWithOperation(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithOperation(zap.New(core), "register", "jane@example.com").Info("test log")
	WithOperation(zap.New(core), "logout", "").Info("test log")

	entries := observed.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	first := entries[0].ContextMap()
	if first[FieldOperation] != "register" || first[FieldEmail] != "jane@example.com" {
		t.Fatalf("unexpected fields: %v", first)
	}

	second := entries[1].ContextMap()
	if _, ok := second[FieldEmail]; ok {
		t.Fatalf("did not expect email field for empty value: %v", second)
	}
}

func TestTokenNeverLogsFullValue(t *testing.T) {
	token := "eyJhbGciOiJIUzI1NiJ9.payload.signature"

	field := Token("access_token", token)
	if field.String == token {
		t.Fatalf("expected token to be truncated")
	}
	if !strings.HasPrefix(token, strings.TrimSuffix(field.String, "...")) {
		t.Fatalf("unexpected preview: %q", field.String)
	}

	if got := Token("access_token", "  ").String; got != "" {
		t.Fatalf("expected empty preview, got %q", got)
	}
}
