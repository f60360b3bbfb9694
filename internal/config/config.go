package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/bamsammich/fanout/internal/pattern"
)

// Config represents the optional fanout configuration file.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
	Transfer TransferConfig `toml:"transfer"`
	Theme    ThemeConfig    `toml:"theme"`
}

// DefaultsConfig holds persistent flag defaults.
type DefaultsConfig struct {
	Verify      *bool   `toml:"verify"`
	Digest      *string `toml:"digest"`
	Cache       *string `toml:"cache"`
	BWLimit     *string `toml:"bwlimit"`
	ZeroCopy    *bool   `toml:"zero_copy"`
	Evict       *string `toml:"evict"`
	Preallocate *bool   `toml:"preallocate"`
}

// TransferConfig tunes slice adaptation.
type TransferConfig struct {
	InitialSlice   *string `toml:"initial_slice"`
	MaxSlice       *string `toml:"max_slice"`
	TargetInterval *string `toml:"target_interval"`
}

// ThemeConfig holds optional color overrides for the summary line.
type ThemeConfig struct {
	OK    *string `toml:"ok"`
	Fail  *string `toml:"fail"`
	Muted *string `toml:"muted"`
}

// Tuning is the parsed form of TransferConfig. Zero fields mean "engine
// default".
type Tuning struct {
	InitialSlice   int64
	MaxSlice       int64
	TargetInterval time.Duration
}

// Parse converts the size and duration strings.
func (t TransferConfig) Parse() (Tuning, error) {
	var out Tuning
	var err error
	if t.InitialSlice != nil {
		if out.InitialSlice, err = pattern.ParseSize(*t.InitialSlice); err != nil {
			return Tuning{}, fmt.Errorf("initial_slice: %w", err)
		}
	}
	if t.MaxSlice != nil {
		if out.MaxSlice, err = pattern.ParseSize(*t.MaxSlice); err != nil {
			return Tuning{}, fmt.Errorf("max_slice: %w", err)
		}
	}
	if t.TargetInterval != nil {
		if out.TargetInterval, err = time.ParseDuration(*t.TargetInterval); err != nil {
			return Tuning{}, fmt.Errorf("target_interval: %w", err)
		}
		if out.TargetInterval < time.Millisecond {
			return Tuning{}, fmt.Errorf("target_interval: %s is below 1ms", out.TargetInterval)
		}
	}
	return out, nil
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "fanout", "config.toml")
}

// Load reads the config file from the XDG path. Returns a zero Config
// (no error) if the file does not exist. Config is always optional.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}
	return LoadFile(path)
}

// LoadFile reads a config file from path. A missing file yields a zero
// Config.
func LoadFile(path string) (Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}
