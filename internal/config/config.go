// Package config resolves swarm's runtime configuration from (highest to
// lowest priority): command-line flags, environment variables (SWARM_*),
// project config (.swarm/config.yaml in cwd), home config
// (~/.swarmrc.yaml), and built-in defaults.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all resolved swarm settings.
type Config struct {
	// StateDir is the root of the state directory (registry, logs, workflows).
	StateDir string `yaml:"state_dir"`

	// Output is the default render format hint: "json" renders JSON, any
	// other value renders a table.
	Output string `yaml:"output"`

	// Verbose enables verbose diagnostic output.
	Verbose bool `yaml:"verbose"`

	// TmuxCommand is the binary used by the session backend.
	TmuxCommand string `yaml:"tmux_command"`

	// KillGrace is the delay between TERM and KILL in the direct backend.
	KillGrace time.Duration `yaml:"kill_grace"`

	// ReadyPollInterval is the readiness detector's poll interval.
	ReadyPollInterval time.Duration `yaml:"ready_poll_interval"`

	// MonitorPollInterval is the workflow monitor loop's poll interval.
	MonitorPollInterval time.Duration `yaml:"monitor_poll_interval"`
}

const (
	defaultOutput              = "table"
	defaultTmuxCommand         = "tmux"
	defaultKillGrace           = 5 * time.Second
	defaultReadyPollInterval   = 150 * time.Millisecond
	defaultMonitorPollInterval = 1 * time.Second
)

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		StateDir:             defaultStateDir(),
		Output:               defaultOutput,
		Verbose:              false,
		TmuxCommand:          defaultTmuxCommand,
		KillGrace:            defaultKillGrace,
		ReadyPollInterval:    defaultReadyPollInterval,
		MonitorPollInterval:  defaultMonitorPollInterval,
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".swarm"
	}
	return filepath.Join(home, ".swarm")
}

// Load loads configuration with proper precedence:
// flags > env > project > home > defaults.
func Load(flagOverrides *Config) *Config {
	cfg := Default()

	if home, err := loadFromPath(homeConfigPath()); err == nil && home != nil {
		cfg = merge(cfg, home)
	}
	if project, err := loadFromPath(projectConfigPath()); err == nil && project != nil {
		cfg = merge(cfg, project)
	}

	cfg = applyEnv(cfg)

	if flagOverrides != nil {
		cfg = merge(cfg, flagOverrides)
	}
	return cfg
}

func homeConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".swarmrc.yaml")
}

func projectConfigPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(cwd, ".swarm", "config.yaml")
}

func loadFromPath(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv applies environment variable overrides per spec.md §6: SWARM_DIR
// overrides the state root; the remaining SWARM_* variables are this
// implementation's ambient additions.
func applyEnv(cfg *Config) *Config {
	if v := strings.TrimSpace(os.Getenv("SWARM_DIR")); v != "" {
		cfg.StateDir = v
	}
	if v := strings.TrimSpace(os.Getenv("SWARM_OUTPUT")); v != "" {
		cfg.Output = v
	}
	if v := os.Getenv("SWARM_VERBOSE"); v == "true" || v == "1" {
		cfg.Verbose = true
	}
	if v := strings.TrimSpace(os.Getenv("SWARM_TMUX_COMMAND")); v != "" {
		cfg.TmuxCommand = v
	}
	if v := strings.TrimSpace(os.Getenv("SWARM_KILL_GRACE")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.KillGrace = d
		}
	}
	return cfg
}

// merge merges src into dst, with non-zero src values taking precedence.
func merge(dst, src *Config) *Config {
	if src.StateDir != "" {
		dst.StateDir = src.StateDir
	}
	if src.Output != "" {
		dst.Output = src.Output
	}
	if src.Verbose {
		dst.Verbose = true
	}
	if src.TmuxCommand != "" {
		dst.TmuxCommand = src.TmuxCommand
	}
	if src.KillGrace != 0 {
		dst.KillGrace = src.KillGrace
	}
	if src.ReadyPollInterval != 0 {
		dst.ReadyPollInterval = src.ReadyPollInterval
	}
	if src.MonitorPollInterval != 0 {
		dst.MonitorPollInterval = src.MonitorPollInterval
	}
	return dst
}
