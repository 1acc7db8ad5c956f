// Copyright 2024 The nitrohost Authors
// SPDX-License-Identifier: MIT

package config

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestConfig(t *testing.T) {
	var yaml = `
log:
  level: info
enclave:
  cliPath: /opt/nitro/nitro-cli
  memoryMiB: 2048
  connectTimeout: 10s
  retry:
    minSleep: 500ms
    maxSleep: 5s
`
	conf, err := unmarshal([]byte(yaml))
	if err != nil {
		t.Fatal(err)
	}
	if conf.Log.Level.Level() != zap.InfoLevel {
		t.Errorf("conf.level=%v, want %v", conf.Log.Level.Level(), zap.InfoLevel)
	}
	if conf.Log.Encoding != "console" {
		t.Errorf("conf.encoding=%v, want %v", conf.Log.Encoding, "console")
	}
	if conf.Enclave.CLIPath != "/opt/nitro/nitro-cli" {
		t.Errorf("conf.enclave.cliPath=%v, want /opt/nitro/nitro-cli", conf.Enclave.CLIPath)
	}
	if conf.Enclave.MemoryMiB != 2048 {
		t.Errorf("conf.enclave.memoryMiB=%v, want 2048", conf.Enclave.MemoryMiB)
	}
	if conf.Enclave.ConnectTimeout != 10*time.Second {
		t.Errorf("conf.enclave.connectTimeout=%v, want 10s", conf.Enclave.ConnectTimeout)
	}
	if conf.Enclave.Retry.MinSleep != 500*time.Millisecond {
		t.Errorf("conf.enclave.retry.minSleep=%v, want 500ms", conf.Enclave.Retry.MinSleep)
	}
	// unset fields keep defaults
	if conf.Enclave.CPUCount != 2 {
		t.Errorf("conf.enclave.cpuCount=%v, want default 2", conf.Enclave.CPUCount)
	}
}

func TestValidate(t *testing.T) {
	conf := Default()
	if err := conf.validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	conf.Enclave.Port = 0
	conf.Enclave.CPUCount = 0
	if err := conf.validate(); err == nil {
		t.Error("validate accepted zero port and cpu count")
	}
}
