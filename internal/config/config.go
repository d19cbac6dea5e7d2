package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultDir is the per-project configuration directory.
	DefaultDir = ".devguild"
	// DefaultFile is the configuration file name inside DefaultDir.
	DefaultFile = "config.yaml"
)

// Config holds the runtime configuration. Values come from defaults, then
// the YAML config file, then DEVGUILD_* environment overrides, in that order.
type Config struct {
	LogLevel     string             `yaml:"log_level"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Memory       MemoryConfig       `yaml:"memory"`
	Gateway      GatewayConfig      `yaml:"gateway"`
	Storage      StorageConfig      `yaml:"storage"`
	Server       ServerConfig       `yaml:"server"`
	Notify       NotifyConfig       `yaml:"notify"`
	Tools        ToolsConfig        `yaml:"tools"`
	Hooks        []HookConfig       `yaml:"hooks,omitempty"`
}

// HookConfig declares a shell command bound to an event type.
type HookConfig struct {
	Name    string `yaml:"name"`
	Event   string `yaml:"event"`
	Command string `yaml:"command"`
	// Timeout is in seconds. Zero means the 30 second default.
	Timeout int `yaml:"timeout,omitempty"`
}

type OrchestratorConfig struct {
	// ComplexityThreshold is the score at or above which a task runs in
	// multi mode.
	ComplexityThreshold float64 `yaml:"complexity_threshold"`
	// MaxIterations bounds the critic revision loop.
	MaxIterations int `yaml:"max_iterations"`
	// MaxPlanSteps bounds the number of steps the planner accepts.
	MaxPlanSteps int `yaml:"max_plan_steps"`
}

type MemoryConfig struct {
	ShortCapacity   int `yaml:"short_capacity"`
	ShortTTLSeconds int `yaml:"short_ttl_seconds"`
}

type GatewayConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type StorageConfig struct {
	Type    string `yaml:"type"`
	BaseDir string `yaml:"base_dir"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `yaml:"s3_bucket"`
	S3Prefix string `yaml:"s3_prefix"`
	S3Region string `yaml:"s3_region"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	// APIKey guards the HTTP API. Empty disables the check.
	APIKey string `yaml:"api_key"`
}

type NotifyConfig struct {
	VAPIDPublicKey  string `yaml:"vapid_public_key"`
	VAPIDPrivateKey string `yaml:"vapid_private_key"`
	Subscriber      string `yaml:"subscriber"`
}

type ToolsConfig struct {
	// Enabled restricts the registered tools. Empty means all tools.
	Enabled []string `yaml:"enabled"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Orchestrator: OrchestratorConfig{
			ComplexityThreshold: 7.0,
			MaxIterations:       10,
			MaxPlanSteps:        15,
		},
		Memory: MemoryConfig{
			ShortCapacity:   1000,
			ShortTTLSeconds: 3600,
		},
		Gateway: GatewayConfig{
			Provider:    "claude",
			Model:       "claude-sonnet-4-5",
			Temperature: 0.7,
			MaxTokens:   4096,
		},
		Storage: StorageConfig{
			Type:     "local",
			BaseDir:  filepath.Join(DefaultDir, "data"),
			S3Prefix: "devguild/",
			S3Region: "ap-northeast-1",
		},
		Server: ServerConfig{
			Host: "",
			Port: "3200",
		},
	}
}

// Load reads the config file at path (if it exists), applies it over the
// defaults, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults only.
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	env, err := LoadEnv()
	if err != nil {
		return nil, err
	}
	env.apply(cfg)
	return cfg, nil
}

// DefaultPath returns the config file path under the current directory.
func DefaultPath() string {
	return filepath.Join(DefaultDir, DefaultFile)
}
