// Package config loads critpath settings from TOML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/pelletier/go-toml/v2"
)

const (
	// FileName is the project-level config file looked up in the working directory.
	FileName = ".critpath.toml"
	// GlobalFileName is the config file inside the global config directory.
	GlobalFileName = "config.toml"
)

// Config holds every setting that can also be given as a command-line flag.
type Config struct {
	Format    string `toml:"format"`
	OutputDir string `toml:"output_dir"`
	DotBin    string `toml:"dot_bin"`
	RankDir   string `toml:"rankdir"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	Model     string `toml:"model"`
	Delimiter string `toml:"delimiter"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Format:    "png",
		OutputDir: ".",
		DotBin:    "dot",
		RankDir:   "LR",
		LogLevel:  "info",
		LogFormat: "text",
		Model:     "claude-sonnet-4-5",
		Delimiter: ";",
	}
}

// DelimiterRune returns the CSV field delimiter as a single rune.
func (c *Config) DelimiterRune() (rune, error) {
	r, size := utf8.DecodeRuneInString(c.Delimiter)
	if r == utf8.RuneError || size != len(c.Delimiter) {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", c.Delimiter)
	}
	if r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("invalid delimiter %q", c.Delimiter)
	}
	return r, nil
}

// Marshal encodes c as TOML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// Loader loads configuration from TOML files.
type Loader struct {
	projectDir    string // directory holding .critpath.toml
	globalConfDir string // e.g. ~/.config/critpath
}

// NewLoader creates a Loader for the given project directory.
func NewLoader(projectDir string) *Loader {
	return &Loader{
		projectDir:    projectDir,
		globalConfDir: defaultGlobalConfigDir(),
	}
}

// NewLoaderWithGlobalDir creates a Loader with a custom global config directory.
func NewLoaderWithGlobalDir(projectDir, globalConfDir string) *Loader {
	return &Loader{
		projectDir:    projectDir,
		globalConfDir: globalConfDir,
	}
}

func defaultGlobalConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "critpath")
}

// Load returns the merged configuration: defaults <- global <- project.
// Missing files are skipped.
func (l *Loader) Load() (*Config, error) {
	base := Default()

	var paths []string
	if l.globalConfDir != "" {
		paths = append(paths, filepath.Join(l.globalConfDir, GlobalFileName))
	}
	paths = append(paths, filepath.Join(l.projectDir, FileName))

	for _, path := range paths {
		cfg, err := loadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		merge(base, cfg)
	}
	return base, nil
}

// LoadFile returns the defaults overlaid with a single explicit file.
// Unlike Load, a missing file is an error.
func LoadFile(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	base := Default()
	merge(base, cfg)
	return base, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("config %s: unknown key:\n%s", path, strict.String())
		}
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// merge copies every non-empty field of src over dst.
func merge(dst, src *Config) {
	set := func(d *string, s string) {
		if s != "" {
			*d = s
		}
	}
	set(&dst.Format, src.Format)
	set(&dst.OutputDir, src.OutputDir)
	set(&dst.DotBin, src.DotBin)
	set(&dst.RankDir, src.RankDir)
	set(&dst.LogLevel, src.LogLevel)
	set(&dst.LogFormat, src.LogFormat)
	set(&dst.Model, src.Model)
	set(&dst.Delimiter, src.Delimiter)
}
