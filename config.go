package midiplayer

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

type (
	Config struct {
		Assets             string          `yaml:"assets"`
		OSC                OSCConfig       `yaml:"osc"`
		Device             string          `yaml:"device"`
		DefaultDeviceIndex int             `yaml:"default_device_index"`
		Speed              float64         `yaml:"speed"`
		MinSpeed           float64         `yaml:"min_speed"`
		MaxSpeed           float64         `yaml:"max_speed"`
		Randomize          RandomizeConfig `yaml:"randomize"`
		BuiltinSynth       bool            `yaml:"builtin_synth"`
	}

	OSCConfig struct {
		Address string `yaml:"address"`
		Port    int    `yaml:"port"`
	}

	RandomizeConfig struct {
		Enabled         bool   `yaml:"enabled"`
		Seed            uint64 `yaml:"seed"` // 0 = seeded from the clock
		RandomizeParams `yaml:",inline"`
	}
)

//go:embed config.yml
var defaultConfig []byte

const ConfigFileName = "config.yml"

// DefaultConfig returns the configuration embedded in the binary.
func DefaultConfig() Config {
	var c Config
	if err := yaml.Unmarshal(defaultConfig, &c); err != nil {
		panic(fmt.Sprintf("embedded config.yml is invalid: %v", err))
	}
	return c
}

// DefaultConfigPath returns the per-user config file location, or "" if the
// user config directory cannot be determined.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "MidiPlayer", ConfigFileName)
}

// ReadConfig returns the default configuration overridden by the fields set
// in the file at path. A missing file is not an error. If the file cannot be
// parsed, the defaults are returned together with the error, so the caller
// can warn and continue.
func ReadConfig(path string) (Config, error) {
	c := DefaultConfig()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("could not read config file %v: %w", path, err)
	}
	user := c
	if err := yaml.Unmarshal(data, &user); err != nil {
		return c, fmt.Errorf("could not parse config file %v: %w", path, err)
	}
	if err := user.Validate(); err != nil {
		return c, fmt.Errorf("invalid config file %v: %w", path, err)
	}
	return user, nil
}

func (c *Config) Validate() error {
	if c.OSC.Port < 0 || c.OSC.Port > 65535 {
		return fmt.Errorf("osc port %d out of range", c.OSC.Port)
	}
	if c.MinSpeed <= 0 || c.MaxSpeed < c.MinSpeed {
		return fmt.Errorf("speed range [%v, %v] is invalid", c.MinSpeed, c.MaxSpeed)
	}
	if c.Speed < c.MinSpeed || c.Speed > c.MaxSpeed {
		return fmt.Errorf("speed %v outside [%v, %v]", c.Speed, c.MinSpeed, c.MaxSpeed)
	}
	p := c.Randomize.NoteShiftProbability
	if p < 0 || p > 1 {
		return fmt.Errorf("note shift probability %v outside [0, 1]", p)
	}
	return nil
}

// OSCAddr returns the UDP address the OSC server listens on.
func (c *Config) OSCAddr() string {
	return net.JoinHostPort(c.OSC.Address, strconv.Itoa(c.OSC.Port))
}
