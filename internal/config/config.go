// Package config resolves the scorebridge configuration from defaults, an
// optional YAML file and SCOREBRIDGE_* environment variables, in that order.
package config

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/aretw0/scorebridge/pkg/adapters/process"
	"github.com/aretw0/scorebridge/pkg/bridge"
	"github.com/aretw0/scorebridge/pkg/session"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SCOREBRIDGE_"

// Storage backends.
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageRedis  = "redis"
)

// Worker modes.
const (
	WorkerProcess = "process"
	WorkerPipe    = "pipe"
)

// Config is the complete configuration.
type Config struct {
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	Server   ServerConfig          `mapstructure:"server" yaml:"server"`
	Bridge   BridgeConfig          `mapstructure:"bridge" yaml:"bridge"`
	Runtime  process.RuntimeConfig `mapstructure:"runtime" yaml:"runtime"`
	Storage  StorageConfig         `mapstructure:"storage" yaml:"storage"`
	Examples ExamplesConfig        `mapstructure:"examples" yaml:"examples"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	CORSOrigins     []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	Metrics         bool          `mapstructure:"metrics" yaml:"metrics"`
}

// BridgeConfig configures the worker supervisor.
type BridgeConfig struct {
	InitTimeout time.Duration `mapstructure:"init_timeout" yaml:"init_timeout"`
	EvalTimeout time.Duration `mapstructure:"eval_timeout" yaml:"eval_timeout"`
	BaseURL     string        `mapstructure:"base_url" yaml:"base_url"`
	// Worker is "process" (a child scorebridge worker) or "pipe" (in-process).
	Worker      string        `mapstructure:"worker" yaml:"worker"`
	GracePeriod time.Duration `mapstructure:"grace_period" yaml:"grace_period"`
}

// StorageConfig selects where sessions and saves live.
type StorageConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Dir     string `mapstructure:"dir" yaml:"dir"`

	RedisAddr     string        `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db" yaml:"redis_db"`
	RedisPrefix   string        `mapstructure:"redis_prefix" yaml:"redis_prefix"`
	TTL           time.Duration `mapstructure:"ttl" yaml:"ttl"`

	// EncryptionKey enables AES-256-GCM at rest: 32 bytes, hex or base64.
	EncryptionKey string `mapstructure:"encryption_key" yaml:"encryption_key"`
	// FallbackKeys decrypt documents written before a key rotation.
	FallbackKeys []string `mapstructure:"fallback_keys" yaml:"fallback_keys"`

	LockTTL time.Duration `mapstructure:"lock_ttl" yaml:"lock_ttl"`
}

// ExamplesConfig locates the example library.
type ExamplesConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "text",
		Server: ServerConfig{
			Addr:            ":8080",
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: 5 * time.Second,
			Metrics:         true,
		},
		Bridge: BridgeConfig{
			InitTimeout: bridge.DefaultInitTimeout,
			EvalTimeout: bridge.DefaultEvalTimeout,
			Worker:      WorkerProcess,
			GracePeriod: bridge.DefaultGracePeriod,
		},
		Runtime: process.DefaultRuntimeConfig(),
		Storage: StorageConfig{
			Backend:     StorageMemory,
			Dir:         filepath.Join(".scorebridge", "data"),
			RedisAddr:   "localhost:6379",
			RedisPrefix: "scorebridge:",
			LockTTL:     session.DefaultLockTTL,
		},
		Examples: ExamplesConfig{
			Dir: "library",
		},
	}
}

// Load resolves the configuration. path may be empty; a missing file is an
// error only when explicit is true. environ is usually os.Environ().
func Load(path string, explicit bool, environ []string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			var raw map[string]any
			if err := yaml.Unmarshal(data, &raw); err != nil {
				return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
			}
			if err := decode(raw, &cfg); err != nil {
				return cfg, fmt.Errorf("invalid config file %s: %w", path, err)
			}
		case os.IsNotExist(err) && !explicit:
		default:
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := decode(fromEnv(environ), &cfg); err != nil {
		return cfg, fmt.Errorf("invalid %s environment: %w", EnvPrefix, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks enumerations and key material.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case StorageMemory, StorageFile, StorageRedis:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Bridge.Worker {
	case WorkerProcess, WorkerPipe:
	default:
		return fmt.Errorf("unknown worker mode %q", c.Bridge.Worker)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if _, _, err := c.Storage.Keys(); err != nil {
		return err
	}
	return nil
}

// Keys decodes the encryption keys. active is nil when encryption is off.
func (s StorageConfig) Keys() (active []byte, fallback [][]byte, err error) {
	if s.EncryptionKey == "" {
		return nil, nil, nil
	}
	if active, err = decodeKey(s.EncryptionKey); err != nil {
		return nil, nil, fmt.Errorf("encryption_key: %w", err)
	}
	for i, k := range s.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("fallback_keys[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	if key, err := hex.DecodeString(s); err == nil && len(key) == 32 {
		return key, nil
	}
	if key, err := base64.StdEncoding.DecodeString(s); err == nil && len(key) == 32 {
		return key, nil
	}
	return nil, fmt.Errorf("key must be 32 bytes encoded as hex or base64")
}

func decode(input map[string]any, cfg *Config) error {
	if len(input) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		// Lists and maps from a later layer replace the earlier ones.
		ZeroFields: true,
		Result:     cfg,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// fromEnv builds a nested map from SCOREBRIDGE_* variables. Only keys that
// exist in Config are recognized, e.g. SCOREBRIDGE_BRIDGE_EVAL_TIMEOUT.
func fromEnv(environ []string) map[string]any {
	known := map[string][]string{}
	envKeys(reflect.TypeOf(Config{}), nil, known)

	out := map[string]any{}
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		path, ok := known[strings.TrimPrefix(name, EnvPrefix)]
		if !ok {
			continue
		}
		node := out
		for _, p := range path[:len(path)-1] {
			next, ok := node[p].(map[string]any)
			if !ok {
				next = map[string]any{}
				node[p] = next
			}
			node = next
		}
		node[path[len(path)-1]] = value
	}
	return out
}

var durationType = reflect.TypeOf(time.Duration(0))

func envKeys(t reflect.Type, prefix []string, out map[string][]string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if tag == "" || tag == "-" {
			continue
		}
		path := append(append([]string{}, prefix...), tag)
		switch {
		case f.Type.Kind() == reflect.Struct && f.Type != durationType:
			envKeys(f.Type, path, out)
		case f.Type.Kind() == reflect.Map:
			// Maps cannot be addressed by a single variable.
		default:
			out[strings.ToUpper(strings.Join(path, "_"))] = path
		}
	}
}
