// Copyright 2024 The nitrohost Authors
// SPDX-License-Identifier: MIT

package config

import (
	"time"

	"github.com/enclaverun/nitrohost/util"
)

type EnclaveConfig struct {
	// Path to the nitro CLI binary. AMI images do not all install it
	// in the same place, so the path is configuration.
	CLIPath string `yaml:"cliPath"`
	// Number of vCPUs given to the enclave
	CPUCount int `yaml:"cpuCount"`
	// Memory given to the enclave, in MiB
	MemoryMiB uint32 `yaml:"memoryMiB"`
	// vsock port the enclave image listens on
	Port uint32 `yaml:"port"`
	// Launch the enclave with the CLI debug console attached
	DebugMode bool `yaml:"debugMode"`
	// How long to wait for the enclave channel to accept a connection
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
	// Largest frame accepted from the enclave. Zero disables the bound.
	MaxMessageBytes uint64 `yaml:"maxMessageBytes"`
	// Policy for retrying CLI invocations
	Retry util.RetryPolicy `yaml:"retry"`
}

func (c *EnclaveConfig) validate() []string {
	var errs []string
	if c.CLIPath == "" {
		errs = append(errs, "enclave.cliPath must be set")
	}
	if c.CPUCount <= 0 {
		errs = append(errs, "enclave.cpuCount must be positive")
	}
	if c.MemoryMiB == 0 {
		errs = append(errs, "enclave.memoryMiB must be positive")
	}
	if c.Port == 0 {
		errs = append(errs, "enclave.port must be set")
	}
	if c.ConnectTimeout <= 0 {
		errs = append(errs, "enclave.connectTimeout must be positive")
	}
	return errs
}

// DefaultEnclave mirrors the nitro CLI's documented defaults plus the
// original host behavior (1s fixed retry, 30s connect deadline).
func DefaultEnclave() EnclaveConfig {
	return EnclaveConfig{
		CLIPath:         "/usr/bin/nitro-cli",
		CPUCount:        2,
		MemoryMiB:       512,
		Port:            5005,
		ConnectTimeout:  time.Second * 30,
		MaxMessageBytes: 64 << 20,
		Retry: util.RetryPolicy{
			MinSleep: time.Second,
			MaxSleep: time.Second,
		},
	}
}
