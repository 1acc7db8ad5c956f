// Copyright 2024 The nitrohost Authors
// SPDX-License-Identifier: MIT

package enclave

// Transport is the application-facing surface of an enclave handle:
// ordered, framed byte buffers over the enclave channel, plus
// teardown. The channel carries one logical conversation at a time;
// callers serialize Send/Receive pairs themselves.
type Transport interface {
	Send(buf []byte) error
	Receive() ([]byte, error)
	Close()
}
