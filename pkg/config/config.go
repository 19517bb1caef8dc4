// Package config loads the application configuration: built-in defaults,
// overridden by the JSON configuration file, overridden by command-line
// flags (applied by the caller).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/JimmyDurandWesolowski/pycom/pkg/layout"
	"github.com/JimmyDurandWesolowski/pycom/pkg/logging"
	"github.com/JimmyDurandWesolowski/pycom/pkg/serialio"
)

// Config is the full application configuration, read-only after Load.
type Config struct {
	Colors      bool              `mapstructure:"colors"`
	HistorySave bool              `mapstructure:"history_save"`
	Project     string            `mapstructure:"project"`
	Scrollback  int               `mapstructure:"scrollback"`
	Logging     logging.Config    `mapstructure:"logging"`
	Interface   []layout.PaneSpec `mapstructure:"interface"`
	Serial      serialio.Config   `mapstructure:"serial"`
}

// Pane name conventions the engine relies on.
const (
	PaneSerial  = "serial"
	PaneCommand = "command"
	PaneError   = "error"
)

// DefaultPath returns ~/.config/pycom/config.json.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", "pycom", "config.json")
}

// defaultInterface is the built-in three pane layout: commands on the left
// half, serial output on the right half, a three line information strip at
// the bottom.
func defaultInterface() []map[string]any {
	return []map[string]any{
		{
			"name":   PaneError,
			"title":  "Information",
			"lines":  "3",
			"cols":   "{cols}",
			"posy":   "{lines} - 3",
			"posx":   "0",
			"cursor": false,
		},
		{
			"name":   PaneSerial,
			"title":  "Serial",
			"lines":  "{lines} - 3",
			"cols":   "{cols} // 2",
			"posy":   "0",
			"posx":   "{cols} // 2",
			"cursor": false,
		},
		{
			"name":   PaneCommand,
			"title":  "Commands",
			"lines":  "{lines} - 3",
			"cols":   "{cols} // 2",
			"posy":   "0",
			"posx":   "0",
			"cursor": true,
			"prompt": true,
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("colors", true)
	v.SetDefault("history_save", true)
	v.SetDefault("project", "DEFAULT")
	v.SetDefault("scrollback", 1000)
	v.SetDefault("interface", defaultInterface())

	serial := serialio.DefaultConfig()
	v.SetDefault("serial.port", serial.Port)
	v.SetDefault("serial.baudrate", serial.BaudRate)
	v.SetDefault("serial.bytesize", serial.ByteSize)
	v.SetDefault("serial.parity", serial.Parity)
	v.SetDefault("serial.stopbits", serial.StopBits)
	v.SetDefault("serial.ratelimit", serial.RateLimit)

	log := logging.DefaultConfig()
	v.SetDefault("logging.file", log.File)
	v.SetDefault("logging.max_size_mb", log.MaxSizeMB)
	v.SetDefault("logging.backups", log.Backups)
	v.SetDefault("logging.level", log.Level)
}

// Load reads the configuration at path, or the default location when path
// is empty. A missing file at the default location is not an error; an
// explicitly given path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")
	setDefaults(v)

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	v.SetConfigFile(path)

	// A missing file at the default location just means defaults apply.
	if err := v.ReadInConfig(); err != nil {
		if explicit || !os.IsNotExist(underlying(err)) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	// Geometry fields accept both JSON ints and expression strings; the
	// weakly typed decode turns the former into the latter.
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func underlying(err error) error {
	type unwrapper interface{ Unwrap() error }
	for {
		u, ok := err.(unwrapper)
		if !ok {
			return err
		}
		inner := u.Unwrap()
		if inner == nil {
			return err
		}
		err = inner
	}
}

// Validate checks the configuration invariants the engine depends on:
// valid serial and logging settings, unique pane names, a serial output
// pane and at least one prompt pane.
func (c *Config) Validate() error {
	if c.Project == "" {
		return fmt.Errorf("project name cannot be empty")
	}
	if c.Scrollback <= 0 {
		return fmt.Errorf("scrollback must be positive, got: %d", c.Scrollback)
	}
	if err := c.Serial.Validate(); err != nil {
		return fmt.Errorf("invalid serial config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}

	if len(c.Interface) == 0 {
		return fmt.Errorf("interface must define at least one pane")
	}
	seen := make(map[string]bool)
	prompts := 0
	serialPanes := 0
	for _, spec := range c.Interface {
		if spec.Name == "" {
			return fmt.Errorf("pane name cannot be empty")
		}
		if seen[spec.Name] {
			return fmt.Errorf("duplicate pane name %q", spec.Name)
		}
		seen[spec.Name] = true
		if spec.Prompt {
			prompts++
		}
		if spec.Name == PaneSerial {
			serialPanes++
		}
	}
	if prompts == 0 {
		return fmt.Errorf("interface must define at least one pane with a prompt")
	}
	if serialPanes != 1 {
		return fmt.Errorf("interface must define exactly one %q pane, got %d", PaneSerial, serialPanes)
	}
	return nil
}
