// Copyright 2024 The nitrohost Authors
// SPDX-License-Identifier: MIT

// Package enclave manages the lifecycle of one AWS Nitro enclave: it
// launches the image through the nitro CLI, connects the framed vsock
// channel into it, and guarantees a termination attempt on teardown.
package enclave

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/hashicorp/go-metrics"

	"github.com/enclaverun/nitrohost/config"
	"github.com/enclaverun/nitrohost/framing"
	"github.com/enclaverun/nitrohost/logger"
	"github.com/enclaverun/nitrohost/util"
)

var (
	launchRetries    = []string{"enclave", "launch", "retries"}
	terminateRetries = []string{"enclave", "terminate", "retries"}
)

// Enclave is a handle to a running enclave instance. It is returned
// fully constructed or not at all: enclave launched, identity known,
// channel connected. The identity is immutable and the channel is
// exclusively owned by the handle.
type Enclave struct {
	enclaveID string
	conn      net.Conn
	framer    *framing.Framer

	cli   runner
	retry util.RetryPolicy

	closeOnce sync.Once
}

var _ Transport = (*Enclave)(nil)

// New launches the enclave image at eifPath and connects to its
// channel. Failures to invoke the CLI and non-success exit statuses
// are retried per cfg.Retry; a malformed launch report and a connect
// timeout are permanent. Cancelling ctx stops the retry loop. New can
// block for a long time and should not run on a latency-sensitive
// path.
func New(ctx context.Context, cfg config.EnclaveConfig, eifPath string) (*Enclave, error) {
	return newEnclave(ctx, cfg, eifPath, execRunner{path: cfg.CLIPath}, dialVsock)
}

func newEnclave(ctx context.Context, cfg config.EnclaveConfig, eifPath string, cli runner, dial dialer) (*Enclave, error) {
	args := []string{
		"run-enclave",
		"--eif-path", eifPath,
		"--cpu-count", strconv.Itoa(cfg.CPUCount),
		"--memory", strconv.FormatUint(uint64(cfg.MemoryMiB), 10),
	}
	if cfg.DebugMode {
		args = append(args, "--debug-mode=true")
	}
	out, err := util.RetrySupplier(ctx, cfg.Retry, func() ([]byte, error) {
		out, err := cli.run(ctx, args...)
		if err != nil {
			metrics.IncrCounter(launchRetries, 1)
			logger.Warnw("run-enclave failed, will retry", "error", err)
		}
		return out, err
	})
	if err != nil {
		return nil, fmt.Errorf("launching enclave: %w", err)
	}
	enclaveID, cid, err := parseLaunchReport(out)
	if err != nil {
		logger.Errorw("unusable launch report", "report", string(out), "error", err)
		return nil, err
	}
	e := &Enclave{
		enclaveID: enclaveID,
		cli:       cli,
		retry:     cfg.Retry,
	}
	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	conn, err := dial(dialCtx, cid, cfg.Port)
	if err != nil {
		// The enclave is already running; reclaim it before failing
		// so no handle-less instance keeps billing the host.
		e.terminate()
		return nil, fmt.Errorf("connecting to enclave channel (cid %d port %d): %w", cid, cfg.Port, err)
	}
	e.conn = conn
	e.framer = framing.New(conn, cfg.MaxMessageBytes)
	logger.Infow("enclave running", "enclaveId", enclaveID, "cid", cid, "port", cfg.Port)
	return e, nil
}

// EnclaveID returns the CLI-assigned identifier of the running
// instance.
func (e *Enclave) EnclaveID() string {
	return e.enclaveID
}

// Send transmits buf to the enclave as one frame. Transport failures
// propagate as-is and leave the channel unusable.
func (e *Enclave) Send(buf []byte) error {
	return e.framer.Send(buf)
}

// Receive blocks for the next frame from the enclave.
func (e *Enclave) Receive() ([]byte, error) {
	return e.framer.Receive()
}

// Close tears the enclave down: the channel is closed and the CLI is
// asked to terminate the instance, regardless of channel health.
// Close never fails and is safe to call more than once; after the
// first call the handle is dead.
func (e *Enclave) Close() {
	e.closeOnce.Do(func() {
		if e.conn != nil {
			e.conn.Close()
		}
		e.terminate()
	})
}

// terminate invokes terminate-enclave until the invocation itself
// succeeds. A non-success exit status is not retried: it most often
// means the enclave is already gone, and looping on it would hang
// shutdown.
func (e *Enclave) terminate() {
	err := e.retry.Do(context.Background(), func() error {
		_, err := e.cli.run(context.Background(), "terminate-enclave", "--enclave-id", e.enclaveID)
		var exitErr *ExitStatusError
		if errors.As(err, &exitErr) {
			logger.Warnw("terminate-enclave reported failure; the enclave may need manual termination",
				"enclaveId", e.enclaveID, "status", exitErr.Status, "stderr", string(exitErr.Stderr))
			return nil
		}
		if err != nil {
			metrics.IncrCounter(terminateRetries, 1)
			logger.Warnw("could not invoke terminate-enclave, will retry", "enclaveId", e.enclaveID, "error", err)
		}
		return err
	})
	if err != nil {
		logger.Errorw("terminate-enclave was never invoked; terminate the enclave manually",
			"enclaveId", e.enclaveID, "error", err)
	}
}
