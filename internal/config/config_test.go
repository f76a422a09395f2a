package config

import (
	"bytes"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg, err := LoadWith(nil)
	if err != nil {
		t.Fatalf("LoadWith(nil) error: %v", err)
	}
	assert.EqualValues(t, DefaultAppConfig, *cfg)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("IMEIGEN_ADDR", ":9090")
	t.Setenv("IMEIGEN_BACKEND", "memory")
	t.Setenv("IMEIGEN_SEED", "42")
	t.Setenv("IMEIGEN_LOG_LEVEL", "debug")
	t.Setenv("IMEIGEN_LOG_FORMAT", "json")
	t.Setenv("IMEIGEN_METRICS_FLUSH", "250ms")
	t.Setenv("IMEIGEN_SNAPSHOT_INTERVAL", "0s")
	t.Setenv("IMEIGEN_SNAPSHOT_KEEP", "0")
	t.Setenv("IMEIGEN_MAX_BATCH", "500")
	cfg, err := LoadWith(nil)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 250*time.Millisecond, cfg.MetricsFlush)
	assert.Zero(t, cfg.SnapshotInterval)
	assert.Equal(t, 500, cfg.MaxBatch)
}

func TestOverridesWinOverEnv(t *testing.T) {
	t.Setenv("IMEIGEN_DATA_DIR", "from-env")
	cfg, err := LoadWith(map[string]string{"data_dir": "from-flag", "backend": ""})
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.DataDir)
	assert.Equal(t, BackendSQLite, cfg.Backend, "empty override must not clear the value")
}

func TestLogLevelHook(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":  slog.LevelDebug,
		" INFO ": slog.LevelInfo,
		"warn":   slog.LevelWarn,
		"error":  slog.LevelError,
		"warn+2": slog.LevelWarn + 2,
	}
	for in, want := range cases {
		t.Setenv("IMEIGEN_LOG_LEVEL", in)
		cfg, err := LoadWith(nil)
		if err != nil {
			t.Fatalf("level %q: %v", in, err)
		}
		if cfg.LogLevel != want {
			t.Fatalf("level %q: got %v want %v", in, cfg.LogLevel, want)
		}
	}
	for _, bad := range []string{"", "loud"} {
		t.Setenv("IMEIGEN_LOG_LEVEL", bad)
		if _, err := LoadWith(nil); err == nil {
			t.Fatalf("expected error for level %q", bad)
		}
	}
}

func TestInvalidValues(t *testing.T) {
	cases := map[string]string{
		"IMEIGEN_BACKEND":       "postgres",
		"IMEIGEN_LOG_FORMAT":    "xml",
		"IMEIGEN_METRICS_FLUSH": "0s",
		"IMEIGEN_MAX_BATCH":     "0",
		"IMEIGEN_SNAPSHOT_KEEP": "-1",
		"IMEIGEN_SEED":          "not-a-number",
		"IMEIGEN_ADDR":          "localhost:8080",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := LoadWith(nil); err == nil {
				t.Fatalf("expected error for %s=%q", key, val)
			}
		})
	}
}

func TestSnapshotIntervalDisabledWithDefaultKeep(t *testing.T) {
	cfg, err := LoadWith(map[string]string{"snapshot_interval": "0"})
	if err != nil {
		t.Fatalf("disabling snapshots must load cleanly: %v", err)
	}
	if cfg.SnapshotInterval != 0 || cfg.SnapshotKeep != DefaultAppConfig.SnapshotKeep {
		t.Fatalf("unexpected snapshot settings interval=%v keep=%d", cfg.SnapshotInterval, cfg.SnapshotKeep)
	}

	t.Setenv("IMEIGEN_SNAPSHOT_INTERVAL", "0s")
	t.Setenv("IMEIGEN_SNAPSHOT_KEEP", "3")
	cfg, err = LoadWith(nil)
	if err != nil {
		t.Fatalf("keep without interval must load cleanly: %v", err)
	}
	if cfg.SnapshotKeep != 3 {
		t.Fatalf("SnapshotKeep = %d, want 3", cfg.SnapshotKeep)
	}
}

func TestValidPaths(t *testing.T) {
	valid := []string{
		"data",
		"/var/lib/imeigen",
		"./data",
		"relative/path/to/data",
		"nested/dir/structure",
	}
	for _, p := range valid {
		t.Setenv("IMEIGEN_DATA_DIR", p)
		cfg, err := LoadWith(nil)
		if err != nil {
			t.Errorf("expected valid path %q, got error: %v", p, err)
			continue
		}
		if cfg.DataDir != p {
			t.Errorf("expected DataDir %q, got %q", p, cfg.DataDir)
		}
	}
}

func TestInvalidPaths(t *testing.T) {
	invalid := []string{
		"",
		".",
		"/",
		"//",
		"../data",
		"data/..",
		"data/../../../etc",
	}
	for _, p := range invalid {
		t.Setenv("IMEIGEN_DATA_DIR", p)
		if _, err := LoadWith(nil); err == nil {
			t.Errorf("expected error for invalid path %q, got nil", p)
		}
	}
}

func TestValidIPPort(t *testing.T) {
	type sample struct {
		Addr string `validate:"ip_port"`
	}

	v := validator.New()
	if err := v.RegisterValidation("ip_port", validIPPort); err != nil {
		t.Fatalf("register validation: %v", err)
	}

	tests := []struct {
		name  string
		addr  string
		valid bool
	}{
		{name: "empty", addr: "", valid: false},
		{name: "missing_port", addr: "127.0.0.1", valid: false},
		{name: "missing_port_after_colon", addr: "127.0.0.1:", valid: false},
		{name: "just_colon_port", addr: ":8080", valid: true},
		{name: "loopback_ipv4", addr: "127.0.0.1:8080", valid: true},
		{name: "any_ipv4_low_port", addr: "0.0.0.0:1", valid: true},
		{name: "ipv6_loopback", addr: "[::1]:8080", valid: true},
		{name: "ipv6_any", addr: "[::]:443", valid: true},
		{name: "unbracketed_ipv6", addr: "::1:8080", valid: false},
		{name: "hostname_not_ip", addr: "localhost:8080", valid: false},
		{name: "invalid_host_chars", addr: "not_an_ip!:80", valid: false},
		{name: "non_numeric_port", addr: "127.0.0.1:http", valid: false},
		{name: "port_zero", addr: "127.0.0.1:0", valid: false},
		{name: "port_max_valid", addr: "127.0.0.1:65535", valid: true},
		{name: "port_overflow", addr: "127.0.0.1:65536", valid: false},
		{name: "negative_port", addr: "127.0.0.1:-1", valid: false},
		{name: "multi_leading_zero_port", addr: "127.0.0.1:00080", valid: true},
		{name: "space_prefixed", addr: " :8080", valid: false},
		{name: "trailing_space", addr: "127.0.0.1:8080 ", valid: false},
		{name: "embedded_space", addr: "127.0. 0.1:8080", valid: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := sample{Addr: tc.addr}
			err := v.Struct(&s)
			if tc.valid && err != nil {
				t.Fatalf("expected valid, got error: %v", err)
			}
			if !tc.valid && err == nil {
				t.Fatalf("expected error, got nil")
			}
		})
	}
}

func TestSQLiteDSN(t *testing.T) {
	params := "?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000&_synchronous=FULL"
	tests := []struct {
		name    string
		dataDir string
	}{
		{name: "default_config", dataDir: DefaultAppConfig.DataDir},
		{name: "relative_no_slash", dataDir: "data"},
		{name: "relative_trailing_slash", dataDir: "data/"},
		{name: "absolute_no_slash", dataDir: "/var/lib/imeigen"},
		{name: "absolute_trailing_slash", dataDir: "/var/lib/imeigen/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultAppConfig
			c.DataDir = tt.dataDir
			got := c.SQLiteDSN()
			want := "file:" + filepath.Join(tt.dataDir, "imei.db") + params
			assert.Equal(t, want, got, "expected DSN mismatch")
			assert.Contains(t, got, "_busy_timeout=5000")
			assert.Equal(t, 1, strings.Count(got, "?"), "expected exactly one '?' in DSN")
		})
	}
	c := DefaultAppConfig
	assert.Equal(t, filepath.Join("data", "snapshots"), c.SnapshotDir())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	c := DefaultAppConfig
	c.LogFormat = "json"
	c.LogLevel = slog.LevelWarn
	log := c.NewLogger(&buf)
	log.Info("hidden")
	log.Warn("shown", "k", "v")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)

	buf.Reset()
	c.LogFormat = "text"
	c.NewLogger(&buf).Warn("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}

func TestLoadDefaultError(t *testing.T) {
	orig := defaultLoader
	t.Cleanup(func() { defaultLoader = orig })
	defaultLoader = func(k *koanf.Koanf) error {
		assert.NotNil(t, k)
		return assert.AnError
	}
	_, err := LoadWith(nil)
	if !errors.Is(err, assert.AnError) {
		t.Fatalf("expected assert.AnError, got: %v", err)
	}
}

func TestLoadEnvError(t *testing.T) {
	orig := envLoader
	t.Cleanup(func() { envLoader = orig })
	envLoader = func(k *koanf.Koanf) error {
		assert.NotNil(t, k)
		return assert.AnError
	}
	_, err := LoadWith(nil)
	if !errors.Is(err, assert.AnError) {
		t.Fatalf("expected assert.AnError, got: %v", err)
	}
}

func TestRegisterValidationFails(t *testing.T) {
	orig := registerValidators
	t.Cleanup(func() { registerValidators = orig })
	registerValidators = func(v *validator.Validate) error {
		assert.NotNil(t, v)
		return assert.AnError
	}
	_, err := LoadWith(nil)
	if !errors.Is(err, assert.AnError) {
		t.Fatalf("expected assert.AnError, got: %v", err)
	}
}
