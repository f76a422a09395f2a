// Package config provides layered configuration loading for imeigen.
// It merges Defaults -> Environment Variables -> command-line overrides, then
// validates the result.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variables before they are mapped to
// configuration keys (IMEIGEN_DATA_DIR -> data_dir).
const EnvPrefix = "IMEIGEN_"

// Backend names.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config holds the merged runtime configuration.
type Config struct {
	Addr             string        `koanf:"addr" validate:"required,ip_port"`
	DataDir          string        `koanf:"data_dir" validate:"required,data_dir"`
	Backend          string        `koanf:"backend" validate:"oneof=sqlite memory"`
	Seed             uint64        `koanf:"seed"`
	LogLevel         slog.Level    `koanf:"log_level"`
	LogFormat        string        `koanf:"log_format" validate:"oneof=text json"`
	MetricsFlush     time.Duration `koanf:"metrics_flush" validate:"gt=0"`
	MetricsToken     string        `koanf:"metrics_token"`
	SnapshotInterval time.Duration `koanf:"snapshot_interval" validate:"gte=0"`
	SnapshotKeep     int           `koanf:"snapshot_keep" validate:"gte=0"`
	SnapshotFormat   string        `koanf:"snapshot_format" validate:"oneof=csv yaml"`
	MaxBatch         int           `koanf:"max_batch" validate:"gte=1,lte=10000"`
}

// DefaultAppConfig is the lowest configuration layer.
var DefaultAppConfig = Config{
	Addr:             "127.0.0.1:8080",
	DataDir:          "./data",
	Backend:          BackendSQLite,
	Seed:             0,
	LogLevel:         slog.LevelInfo,
	LogFormat:        "text",
	MetricsFlush:     5 * time.Second,
	SnapshotInterval: time.Hour,
	SnapshotKeep:     24,
	SnapshotFormat:   "csv",
	MaxBatch:         100,
}

// defaultLoader, envLoader and registerValidators are package variables so
// tests can substitute failing implementations.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DefaultAppConfig, "koanf"), nil)
}

var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), value
		},
	}), nil)
}

var registerValidators = func(v *validator.Validate) error {
	if err := v.RegisterValidation("ip_port", validIPPort); err != nil {
		return err
	}
	return v.RegisterValidation("data_dir", validDataDir)
}

// LoadWith reads defaults, environment variables and then overrides, keyed by
// configuration key (for example "data_dir"). Empty override values are ignored
// so unset flags never clear a setting.
func LoadWith(overrides map[string]string) (*Config, error) {
	k := koanf.New(".")
	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	for key, val := range overrides {
		if val == "" {
			continue
		}
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("override %s: %w", key, err)
		}
	}

	var cfg Config
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				StringToLogLevel(),
				mapstructure.StringToTimeDurationHookFunc(),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	v := validator.New()
	if err := registerValidators(v); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}
	if err := v.Struct(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SQLiteDSN returns the catalog database DSN inside DataDir.
func (c *Config) SQLiteDSN() string {
	return "file:" + filepath.Join(c.DataDir, "imei.db") + "?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000&_synchronous=FULL"
}

// SnapshotDir returns the directory holding catalog snapshots.
func (c *Config) SnapshotDir() string {
	return filepath.Join(c.DataDir, "snapshots")
}

// validIPPort accepts "host:port" where host is empty or a literal IP and
// port is in 1..65535.
func validIPPort(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" || strings.ContainsAny(s, " \t") {
		return false
	}
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return false
	}
	if host != "" && net.ParseIP(host) == nil {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// validDataDir rejects the filesystem root, the working directory itself and
// any path with a ".." segment.
func validDataDir(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return false
	}
	for _, seg := range strings.Split(filepath.ToSlash(s), "/") {
		if seg == ".." {
			return false
		}
	}
	clean := filepath.Clean(s)
	return clean != "." && clean != string(os.PathSeparator)
}
