// Package config loads the exaplot configuration file.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

const (
	// FileEnv names the configuration file when no path is given.
	FileEnv = "EXAPLOT_CONFIG"
	// PathEnv replaces the runtime search paths. The runtime reads it itself,
	// so search_paths from the file are dropped when it is set.
	PathEnv = "EXAPLOT_PATH"
)

// Datafile drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config is the file-level configuration. Zero fields take the values of
// Default.
type Config struct {
	Prefix      string   `toml:"prefix"`
	SearchPaths []string `toml:"search_paths"`
	LogLevel    string   `toml:"log_level"`
	Datafile    Datafile `toml:"datafile"`
	Run         Run      `toml:"run"`

	// File is the path the configuration was read from, if any.
	File string `toml:"-"`
}

// Datafile configures run data persistence.
type Datafile struct {
	Enabled bool `toml:"enabled"`
	// Path may contain {timestamp}, expanded when a run starts.
	Path       string `toml:"path"`
	Driver     string `toml:"driver"`
	BufferSize int    `toml:"buffer_size"`
}

// Run configures the command-line host.
type Run struct {
	WatchDebounce time.Duration `toml:"watch_debounce"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Datafile: Datafile{
			Enabled: true,
			Path:    "exaplot-{timestamp}.db",
			Driver:  DriverSQLite,
		},
		Run: Run{WatchDebounce: 200 * time.Millisecond},
	}
}

// DefaultFile returns the per-user configuration file location.
func DefaultFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "exaplot", "config.toml")
}

// Load reads the configuration at path. An empty path falls back to
// $EXAPLOT_CONFIG and then to DefaultFile; only a missing default file is
// not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := true
	if path == "" {
		path = os.Getenv(FileEnv)
	}
	if path == "" {
		path = DefaultFile()
		explicit = false
	}

	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		switch {
		case err == nil:
			cfg.File = path
			if keys := md.Undecoded(); len(keys) > 0 {
				return nil, errors.Errorf("config %s: unknown key %s", path, keys[0])
			}
		case os.IsNotExist(err) && !explicit:
		default:
			return nil, errors.Wrapf(err, "config %s", path)
		}
	}

	if os.Getenv(PathEnv) != "" {
		cfg.SearchPaths = nil
	}
	cfg.fill()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fill restores defaults for fields a file left empty.
func (c *Config) fill() {
	d := Default()
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Datafile.Path == "" {
		c.Datafile.Path = d.Datafile.Path
	}
	if c.Datafile.Driver == "" {
		c.Datafile.Driver = d.Datafile.Driver
	}
	if c.Run.WatchDebounce <= 0 {
		c.Run.WatchDebounce = d.Run.WatchDebounce
	}
	for i, p := range c.SearchPaths {
		c.SearchPaths[i] = expandHome(p)
	}
	c.Prefix = expandHome(c.Prefix)
}

// Validate checks field values.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.Datafile.Driver {
	case DriverSQLite, DriverMemory:
	default:
		return errors.Errorf("config: unknown datafile driver %q", c.Datafile.Driver)
	}
	if c.Datafile.BufferSize < 0 {
		return errors.New("config: datafile buffer_size must not be negative")
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, errors.Wrap(err, "config: log_level")
	}
	return l, nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
