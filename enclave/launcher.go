// Copyright 2024 The nitrohost Authors
// SPDX-License-Identifier: MIT

package enclave

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// runner invokes the enclave control CLI. Tests substitute a scripted
// implementation; production uses execRunner.
type runner interface {
	run(ctx context.Context, args ...string) (stdout []byte, err error)
}

// ExitStatusError reports that the CLI ran to completion but exited
// with a non-success status. It is distinct from a failure to invoke
// the CLI at all, which callers treat as transient.
type ExitStatusError struct {
	Status int
	Stderr []byte
}

func (e *ExitStatusError) Error() string {
	return fmt.Sprintf("enclave CLI exited with status %d: %s", e.Status, bytes.TrimSpace(e.Stderr))
}

type execRunner struct {
	path string
}

func (r execRunner) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &ExitStatusError{Status: exitErr.ExitCode(), Stderr: stderr.Bytes()}
		}
		return nil, fmt.Errorf("invoking %s: %w", r.path, err)
	}
	return stdout.Bytes(), nil
}

// ErrMalformedReport reports a run-enclave result that cannot be
// trusted: missing or non-numeric channel address. This indicates a
// CLI version mismatch rather than operational flakiness and is never
// retried.
var ErrMalformedReport = errors.New("enclave: malformed launch report")

// launchReport is the subset of the CLI's run-enclave JSON output the
// host consumes.
type launchReport struct {
	EnclaveID  string  `json:"EnclaveID"`
	EnclaveCID *uint32 `json:"EnclaveCID"`
}

// parseLaunchReport extracts the enclave identifier and the channel
// context ID from the CLI's report.
func parseLaunchReport(out []byte) (id string, cid uint32, err error) {
	var report launchReport
	if err := json.Unmarshal(out, &report); err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrMalformedReport, err)
	}
	if report.EnclaveCID == nil {
		return "", 0, fmt.Errorf("%w: missing EnclaveCID", ErrMalformedReport)
	}
	id = strings.Trim(strings.TrimSpace(report.EnclaveID), `"`)
	if id == "" {
		return "", 0, fmt.Errorf("%w: missing EnclaveID", ErrMalformedReport)
	}
	return id, *report.EnclaveCID, nil
}
