package postgres

import (
	"strings"
	"testing"

	"compsbot/internal/config"
)

func TestDSN_PassthroughForFullDSN(t *testing.T) {
	for _, dsn := range []string{"postgres://u:p@h:5432/db", "postgresql://u@h/db"} {
		got, err := DSN(config.PostgresConfig{Host: dsn})
		if err != nil {
			t.Fatalf("DSN(%q): %v", dsn, err)
		}
		if got != dsn {
			t.Fatalf("expected passthrough, got %q", got)
		}
	}
}

func TestDSN_BuildsURL(t *testing.T) {
	cfg := config.PostgresConfig{Host: "db.internal", User: "comps", Password: "s3cret", Database: "compsbot", SSLMode: "disable"}
	got, err := DSN(cfg)
	if err != nil {
		t.Fatalf("DSN: %v", err)
	}
	for _, want := range []string{"postgres://", "comps:s3cret@", "db.internal:5432", "/compsbot", "sslmode=disable"} {
		if !strings.Contains(got, want) {
			t.Fatalf("DSN %q missing %q", got, want)
		}
	}
}

func TestDSN_CustomPortAndNoPassword(t *testing.T) {
	cfg := config.PostgresConfig{Host: "db", Port: 6432, User: "comps", Database: "compsbot"}
	got, err := DSN(cfg)
	if err != nil {
		t.Fatalf("DSN: %v", err)
	}
	if !strings.Contains(got, "db:6432") {
		t.Fatalf("expected custom port in %q", got)
	}
	if strings.Contains(got, ":@") {
		t.Fatalf("unexpected empty password marker in %q", got)
	}
}

func TestDSN_IPv6HostGetsBracketed(t *testing.T) {
	cfg := config.PostgresConfig{Host: "::1", User: "comps", Database: "compsbot"}
	got, err := DSN(cfg)
	if err != nil {
		t.Fatalf("DSN: %v", err)
	}
	if !strings.Contains(got, "[::1]:5432") {
		t.Fatalf("expected bracketed IPv6 host in %q", got)
	}
}

func TestDSN_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.PostgresConfig
	}{
		{"empty host", config.PostgresConfig{User: "u", Database: "d"}},
		{"empty database", config.PostgresConfig{Host: "h", User: "u"}},
		{"empty user", config.PostgresConfig{Host: "h", Database: "d"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DSN(tc.cfg); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestOpen_BadConfig(t *testing.T) {
	if _, err := Open(config.PostgresConfig{}); err == nil {
		t.Fatalf("expected error for empty config")
	}
}
