package main

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "MCPDG"

type Config struct {
	DevGuildAddr string `envconfig:"DEVGUILD_ADDR" default:"http://localhost:3200"`
	APIKey       string `envconfig:"API_KEY"`
}

func NewConfig() (*Config, error) {
	c := &Config{}
	err := envconfig.Process(envPrefix, c)
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}
	return c, nil
}
