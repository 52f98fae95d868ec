package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"upack.dev/cli/internal/core/engine"
)

const (
	EnvConfigPath    = "UPACK_CONFIG"
	EnvEngineRoot    = "UPACK_ENGINE_ROOT"
	EnvPluginFile    = "UPACK_PLUGIN_FILE"
	EnvPackageRoot   = "UPACK_PACKAGE_ROOT"
	EnvVersionPrefix = "UPACK_VERSION_PREFIX"
	EnvLogLevel      = "UPACK_LOG_LEVEL"
	EnvToolScript    = "UPACK_TOOL_SCRIPT"
	EnvWatch         = "UPACK_WATCH_ENGINE_ROOT"

	DefaultLogFileName = "build_log.txt"
	DefaultGridColumns = 4
)

type Config struct {
	EngineRoot  string `yaml:"engine_root"`
	PluginFile  string `yaml:"plugin_file"`
	PackageRoot string `yaml:"package_root"`

	VersionPrefix string            `yaml:"version_prefix"`
	LogFileName   string            `yaml:"log_file_name"`
	ToolScript    string            `yaml:"tool_script"`
	ExtraArgs     []string          `yaml:"extra_args"`
	ToolEnv       map[string]string `yaml:"tool_env"`

	GridColumns     int           `yaml:"grid_columns"`
	WatchEngineRoot bool          `yaml:"watch_engine_root"`
	DrainTimeout    time.Duration `yaml:"drain_timeout"`
	StopGrace       time.Duration `yaml:"stop_grace"`

	LogLevel       string `yaml:"log_level"`
	DiagnosticsLog string `yaml:"diagnostics_log"`
	Debug          bool   `yaml:"-"`

	// Path is the file the config was read from, empty when none was found
	Path string `yaml:"-"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		EngineRoot:      defaultEngineRoot(),
		VersionPrefix:   engine.DefaultVersionPrefix,
		LogFileName:     DefaultLogFileName,
		GridColumns:     DefaultGridColumns,
		WatchEngineRoot: true,
		DrainTimeout:    5 * time.Second,
		StopGrace:       5 * time.Second,
		LogLevel:        "info",
		DiagnosticsLog:  filepath.Join(Dir(), "upack.log"),
	}
}

// Dir returns the per-user configuration directory (~/.upack)
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".upack"
	}
	return filepath.Join(home, ".upack")
}

func defaultEngineRoot() string {
	if runtime.GOOS != "windows" {
		return ""
	}
	root := `C:\Program Files\Epic Games`
	if info, err := os.Stat(root); err == nil && info.IsDir() {
		return root
	}
	return ""
}

// Load builds the configuration from defaults, a .env file in the working
// directory, the YAML config file and UPACK_* environment variables, in
// increasing precedence. configPath overrides the file location.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	// Variables already set in the environment win over .env entries.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	if configPath == "" {
		configPath = os.Getenv(EnvConfigPath)
	}
	explicit := configPath != ""
	if !explicit {
		configPath = filepath.Join(Dir(), "config.yaml")
	}

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
		cfg.Path = configPath
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// no config file is fine
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	setString(EnvEngineRoot, &c.EngineRoot)
	setString(EnvPluginFile, &c.PluginFile)
	setString(EnvPackageRoot, &c.PackageRoot)
	setString(EnvVersionPrefix, &c.VersionPrefix)
	setString(EnvLogLevel, &c.LogLevel)
	setString(EnvToolScript, &c.ToolScript)

	if v, ok := os.LookupEnv(EnvWatch); ok && v != "" {
		watch, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvWatch, err)
		}
		c.WatchEngineRoot = watch
	}
	return nil
}

// Validate reports every problem with the configuration
func (c *Config) Validate() error {
	var problems []string

	if c.VersionPrefix == "" {
		problems = append(problems, "version_prefix cannot be empty")
	}
	if c.LogFileName == "" || filepath.Base(c.LogFileName) != c.LogFileName {
		problems = append(problems, fmt.Sprintf("log_file_name must be a plain file name, got %q", c.LogFileName))
	}
	if c.GridColumns < 1 {
		problems = append(problems, "grid_columns must be at least 1")
	}
	if c.DrainTimeout < 0 {
		problems = append(problems, "drain_timeout cannot be negative")
	}
	if c.StopGrace < 0 {
		problems = append(problems, "stop_grace cannot be negative")
	}
	for key := range c.ToolEnv {
		if key == "" || strings.ContainsAny(key, "=\x00") {
			problems = append(problems, fmt.Sprintf("tool_env: invalid variable name %q", key))
		}
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("log_level: %v", err))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
