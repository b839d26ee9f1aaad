package database_test

import (
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/shiftmatch/pkg/database"
)

func TestFinalizeDefaults(t *testing.T) {
	cfg := database.Config{User: "shiftmatch"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"host", cfg.Host, "localhost"},
		{"port", cfg.Port, 5432},
		{"name", cfg.Name, "shiftmatch"},
		{"ssl_mode", cfg.SSLMode, "disable"},
		{"max_open_conns", cfg.MaxOpenConns, 25},
		{"max_idle_conns", cfg.MaxIdleConns, 5},
		{"conn_max_lifetime", cfg.ConnMaxLifetime, "15m"},
		{"conn_timeout", cfg.ConnTimeout, "5s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %v, want %v", tt.got, tt.expected)
			}
		})
	}
}

func TestFinalizeEnvOverrides(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "db.internal")
	t.Setenv("TEST_DB_PORT", "6432")
	t.Setenv("TEST_DB_USER", "attrib")
	t.Setenv("TEST_DB_MAX_OPEN", "40")
	t.Setenv("TEST_DB_TIMEOUT", "10s")

	env := &database.Env{
		Host:         "TEST_DB_HOST",
		Port:         "TEST_DB_PORT",
		User:         "TEST_DB_USER",
		MaxOpenConns: "TEST_DB_MAX_OPEN",
		ConnTimeout:  "TEST_DB_TIMEOUT",
	}

	cfg := database.Config{}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.Host != "db.internal" {
		t.Errorf("host: got %s, want db.internal", cfg.Host)
	}
	if cfg.Port != 6432 {
		t.Errorf("port: got %d, want 6432", cfg.Port)
	}
	if cfg.User != "attrib" {
		t.Errorf("user: got %s, want attrib", cfg.User)
	}
	if cfg.MaxOpenConns != 40 {
		t.Errorf("max_open_conns: got %d, want 40", cfg.MaxOpenConns)
	}
	if cfg.ConnTimeoutDuration() != 10*time.Second {
		t.Errorf("conn_timeout: got %v, want 10s", cfg.ConnTimeoutDuration())
	}
}

func TestFinalizeValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     database.Config
		wantErr string
	}{
		{"missing user", database.Config{}, "user required"},
		{"invalid conn_max_lifetime", database.Config{User: "u", ConnMaxLifetime: "bad"}, "invalid conn_max_lifetime"},
		{"invalid conn_timeout", database.Config{User: "u", ConnTimeout: "bad"}, "invalid conn_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := database.Config{Host: "localhost", Port: 5432, Name: "shiftmatch", User: "base"}
	base.Merge(&database.Config{Host: "replica", Port: 5433})

	if base.Host != "replica" || base.Port != 5433 {
		t.Errorf("overlay not applied: %s:%d", base.Host, base.Port)
	}
	if base.User != "base" || base.Name != "shiftmatch" {
		t.Errorf("zero overlay fields overwrote base: %+v", base)
	}
}

func TestDsn(t *testing.T) {
	cfg := database.Config{
		Host:     "localhost",
		Port:     5432,
		Name:     "shiftmatch",
		User:     "attrib",
		Password: "secret",
		SSLMode:  "disable",
	}

	want := "host=localhost port=5432 dbname=shiftmatch user=attrib password=secret sslmode=disable"
	if got := cfg.Dsn(); got != want {
		t.Errorf("dsn:\ngot  %s\nwant %s", got, want)
	}
}

func TestURL(t *testing.T) {
	cfg := database.Config{
		Host:     "db",
		Port:     5432,
		Name:     "shiftmatch",
		User:     "attrib",
		Password: "p@ss",
		SSLMode:  "require",
	}

	want := "postgres://attrib:p%40ss@db:5432/shiftmatch?sslmode=require"
	if got := cfg.URL(); got != want {
		t.Errorf("url:\ngot  %s\nwant %s", got, want)
	}
}
