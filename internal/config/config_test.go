package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if cfg.Server.Bin != "redis-server" {
		t.Errorf("Server.Bin = %q, want %q", cfg.Server.Bin, "redis-server")
	}
	if cfg.Server.Daemonize {
		t.Error("Server.Daemonize should be false by default")
	}
	if cfg.Server.GracePeriodSeconds != 5 {
		t.Errorf("Server.GracePeriodSeconds = %d, want 5", cfg.Server.GracePeriodSeconds)
	}
	if cfg.Server.StrictKill {
		t.Error("Server.StrictKill should be false by default")
	}

	if !cfg.Logging.Enabled {
		t.Error("Logging.Enabled should be true by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
}

func TestGracePeriod(t *testing.T) {
	s := ServerConfig{GracePeriodSeconds: 7}
	if got := s.GracePeriod(); got != 7*time.Second {
		t.Errorf("GracePeriod() = %v, want 7s", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:      "empty bin",
			mutate:    func(c *Config) { c.Server.Bin = "" },
			wantField: "server.bin",
		},
		{
			name:      "negative grace period",
			mutate:    func(c *Config) { c.Server.GracePeriodSeconds = -1 },
			wantField: "server.grace_period_seconds",
		},
		{
			name:      "invalid setting name",
			mutate:    func(c *Config) { c.Server.Settings = map[string]string{"--port": "6379"} },
			wantField: "server.settings",
		},
		{
			name:      "daemonize as setting",
			mutate:    func(c *Config) { c.Server.Settings = map[string]string{"daemonize": "yes"} },
			wantField: "server.settings",
		},
		{
			name:      "invalid log level",
			mutate:    func(c *Config) { c.Logging.Level = "loud" },
			wantField: "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := cfg.Validate()

			if tt.wantField == "" {
				if len(errs) != 0 {
					t.Fatalf("Validate() = %v, want no errors", errs)
				}
				return
			}
			if len(errs) == 0 {
				t.Fatalf("Validate() = no errors, want error on %s", tt.wantField)
			}
			found := false
			for _, e := range errs {
				if e.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("Validate() = %v, want error on field %s", errs, tt.wantField)
			}
		})
	}
}

func TestValidationErrorsError(t *testing.T) {
	errs := ValidationErrors{
		{Field: "server.bin", Value: "", Message: "server executable must not be empty"},
	}
	if got := errs.Error(); got != "server.bin: server executable must not be empty (got: )" {
		t.Errorf("single error string = %q", got)
	}

	errs = append(errs, ValidationError{Field: "logging.level", Value: "loud", Message: "bad level"})
	got := errs.Error()
	if got == "" || got == errs[0].Error() {
		t.Errorf("multi error string = %q, want combined message", got)
	}
}

func TestResolve(t *testing.T) {
	// A real executable somewhere on PATH so LookPath succeeds.
	dir := t.TempDir()
	bin := filepath.Join(dir, "fake-server")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir)

	tests := []struct {
		name     string
		server   ServerConfig
		wantBin  string
		wantArgs []string
	}{
		{
			name:     "bare binary",
			server:   ServerConfig{Bin: "fake-server"},
			wantBin:  bin,
			wantArgs: []string{},
		},
		{
			name:     "absolute binary skips lookup",
			server:   ServerConfig{Bin: bin},
			wantBin:  bin,
			wantArgs: []string{},
		},
		{
			name: "settings become sorted flag pairs",
			server: ServerConfig{
				Bin: "fake-server",
				Settings: map[string]string{
					"port": "6379",
					"bind": "127.0.0.1",
				},
			},
			wantBin:  bin,
			wantArgs: []string{"--bind", "127.0.0.1", "--port", "6379"},
		},
		{
			name: "empty setting value becomes bare flag",
			server: ServerConfig{
				Bin:      "fake-server",
				Settings: map[string]string{"verbose": ""},
			},
			wantBin:  bin,
			wantArgs: []string{"--verbose"},
		},
		{
			name: "conf file comes first",
			server: ServerConfig{
				Bin:      "fake-server",
				Conf:     "/etc/redis/redis.conf",
				Settings: map[string]string{"port": "6379"},
			},
			wantBin:  bin,
			wantArgs: []string{"/etc/redis/redis.conf", "--port", "6379"},
		},
		{
			name:     "daemonize appends flag",
			server:   ServerConfig{Bin: "fake-server", Daemonize: true},
			wantBin:  bin,
			wantArgs: []string{"--daemonize", "yes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.server.Resolve()
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got.Bin != tt.wantBin {
				t.Errorf("Bin = %q, want %q", got.Bin, tt.wantBin)
			}
			if len(got.Args) != len(tt.wantArgs) {
				t.Fatalf("Args = %v, want %v", got.Args, tt.wantArgs)
			}
			for i := range tt.wantArgs {
				if got.Args[i] != tt.wantArgs[i] {
					t.Errorf("Args[%d] = %q, want %q", i, got.Args[i], tt.wantArgs[i])
				}
			}
			if got.Daemonize != tt.server.Daemonize {
				t.Errorf("Daemonize = %v, want %v", got.Daemonize, tt.server.Daemonize)
			}
		})
	}
}

func TestResolve_MissingBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	_, err := (&ServerConfig{Bin: "no-such-server"}).Resolve()
	if err == nil {
		t.Fatal("Resolve() with missing binary = nil error")
	}
}
