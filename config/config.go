// Copyright 2024 The nitrohost Authors
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"
)

type Config struct {
	// See zap.Config
	Log *zap.Config `yaml:"log"`
	// Address for the http control server to listen on
	ControlListenAddr string `yaml:"controlListenAddr"`
	// Enclave lifecycle and channel configuration
	Enclave EnclaveConfig `yaml:"enclave"`
	// Export metrics over OTLP (endpoint from the standard
	// OTEL_EXPORTER_OTLP_* environment variables)
	OTLPMetrics bool `yaml:"otlpMetrics"`
}

// validate returns a list of validation errors, or empty if there are no errors.
type validator interface{ validate() []string }

func (c *Config) validate() error {
	validators := []validator{&c.Enclave}
	var errs []string
	for _, validator := range validators {
		errs = append(errs, validator.validate()...)
	}
	if len(errs) != 0 {
		return fmt.Errorf("invalid config: %v", strings.Join(errs, ","))
	}
	return nil
}

// Read parses the yaml file at the provided path into a Config
func Read(path string) (*Config, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	withenv := []byte(os.ExpandEnv(string(bs)))
	c, err := unmarshal(withenv)
	if err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func unmarshal(bs []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(bs, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default provides reasonable default parameters that may be overridden by a config file
func Default() *Config {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config := zap.Config{
		Level:             zap.NewAtomicLevelAt(zap.DebugLevel),
		Development:       true,
		Encoding:          "console",
		EncoderConfig:     encoderConfig,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: true,
	}

	return &Config{
		Log:               &config,
		ControlListenAddr: "localhost:8081",
		Enclave:           DefaultEnclave(),
	}
}
