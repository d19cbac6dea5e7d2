package config

import (
	"fmt"
	"log/slog"

	"github.com/kelseyhightower/envconfig"
)

const namespace = "DEVGUILD"

// Env holds environment overrides. Pointer fields distinguish "unset" from
// zero values so only exported variables override the file config.
type Env struct {
	LogLevel            *string  `envconfig:"LOG_LEVEL"`
	ComplexityThreshold *float64 `envconfig:"COMPLEXITY_THRESHOLD"`
	MaxIterations       *int     `envconfig:"MAX_ITERATIONS"`
	MaxPlanSteps        *int     `envconfig:"MAX_PLAN_STEPS"`
	MemoryCapacity      *int     `envconfig:"MEMORY_CAPACITY"`
	MemoryTTLSeconds    *int     `envconfig:"MEMORY_TTL_SECONDS"`
	Provider            *string  `envconfig:"PROVIDER"`
	Model               *string  `envconfig:"MODEL"`
	StorageType         *string  `envconfig:"STORAGE_TYPE"`
	StorageBaseDir      *string  `envconfig:"STORAGE_BASE_DIR"`
	S3Bucket            *string  `envconfig:"S3_BUCKET"`
	S3Prefix            *string  `envconfig:"S3_PREFIX"`
	S3Region            *string  `envconfig:"S3_REGION"`
	HTTPHost            *string  `envconfig:"HTTP_HOST"`
	HTTPPort            *string  `envconfig:"HTTP_PORT"`
	APIKey              *string  `envconfig:"API_KEY"`
}

// LoadEnv reads DEVGUILD_* environment variables.
func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func (e *Env) apply(cfg *Config) {
	if e == nil {
		return
	}
	if e.LogLevel != nil {
		cfg.LogLevel = *e.LogLevel
	}
	if e.ComplexityThreshold != nil {
		cfg.Orchestrator.ComplexityThreshold = *e.ComplexityThreshold
	}
	if e.MaxIterations != nil {
		cfg.Orchestrator.MaxIterations = *e.MaxIterations
	}
	if e.MaxPlanSteps != nil {
		cfg.Orchestrator.MaxPlanSteps = *e.MaxPlanSteps
	}
	if e.MemoryCapacity != nil {
		cfg.Memory.ShortCapacity = *e.MemoryCapacity
	}
	if e.MemoryTTLSeconds != nil {
		cfg.Memory.ShortTTLSeconds = *e.MemoryTTLSeconds
	}
	if e.Provider != nil {
		cfg.Gateway.Provider = *e.Provider
	}
	if e.Model != nil {
		cfg.Gateway.Model = *e.Model
	}
	if e.StorageType != nil {
		cfg.Storage.Type = *e.StorageType
	}
	if e.StorageBaseDir != nil {
		cfg.Storage.BaseDir = *e.StorageBaseDir
	}
	if e.S3Bucket != nil {
		cfg.Storage.S3Bucket = *e.S3Bucket
	}
	if e.S3Prefix != nil {
		cfg.Storage.S3Prefix = *e.S3Prefix
	}
	if e.S3Region != nil {
		cfg.Storage.S3Region = *e.S3Region
	}
	if e.HTTPHost != nil {
		cfg.Server.Host = *e.HTTPHost
	}
	if e.HTTPPort != nil {
		cfg.Server.Port = *e.HTTPPort
	}
	if e.APIKey != nil {
		cfg.Server.APIKey = *e.APIKey
	}
}

// SlogLevel parses LogLevel, defaulting to info on bad input.
func (c *Config) SlogLevel() slog.Level {
	if c == nil {
		return slog.LevelInfo
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
