package avi

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	pkgerrors "github.com/pkg/errors"
)

// Config holds the knobs the avixer CLI and library callers can tune,
// loaded the way go-musicfox's config.Manager does it: a YAML file
// first, then environment variables layered on top. Grounded on
// v2/pkg/config/manager.go's LoadFromFile/LoadFromEnv split.
type Config struct {
	// MinReloadSkipBytes defaults to reloadMinSkip. It is loaded like
	// the other keys, but the demuxer does not read it.
	MinReloadSkipBytes int64 `koanf:"min_reload_skip_bytes"`
	// LogLevel is one of debug/info/warn/error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`
}

// DefaultConfig returns the values used when no config file or
// environment override is present.
func DefaultConfig() Config {
	return Config{
		MinReloadSkipBytes: reloadMinSkip,
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// envPrefix is the environment-variable namespace avixer reads
// overrides from, e.g. AVIXER_LOG_LEVEL=debug.
const envPrefix = "AVIXER_"

// LoadConfig builds a Config starting from DefaultConfig, optionally
// loading path (if non-empty) as YAML, then applying any AVIXER_*
// environment variables on top.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()
	if err := k.Load(structProvider(cfg), nil); err != nil {
		return cfg, pkgerrors.Wrap(err, "avi: loading config defaults")
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return cfg, pkgerrors.Wrapf(err, "avi: loading config file %s", path)
			}
		} else if !os.IsNotExist(err) {
			return cfg, pkgerrors.Wrapf(err, "avi: stat config file %s", path)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return cfg, pkgerrors.Wrap(err, "avi: loading environment overrides")
	}

	var out Config
	if err := k.Unmarshal("", &out); err != nil {
		return cfg, pkgerrors.Wrap(err, "avi: unmarshaling config")
	}
	return out, nil
}

// structProvider adapts a plain Config into a koanf.Provider so
// DefaultConfig's values seed the koanf instance before file/env
// layers are merged on top (koanf has no built-in "load a struct"
// provider, so this is a minimal inline one).
type structProviderImpl struct{ cfg Config }

func structProvider(cfg Config) koanf.Provider { return structProviderImpl{cfg: cfg} }

func (s structProviderImpl) ReadBytes() ([]byte, error) {
	return nil, pkgerrors.New("avi: structProvider does not support ReadBytes")
}

func (s structProviderImpl) Read() (map[string]interface{}, error) {
	return map[string]interface{}{
		"min_reload_skip_bytes": s.cfg.MinReloadSkipBytes,
		"log_level":             s.cfg.LogLevel,
		"log_format":            s.cfg.LogFormat,
	}, nil
}
