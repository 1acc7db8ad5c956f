// Copyright 2024 The nitrohost Authors
// SPDX-License-Identifier: MIT

package enclave

import (
	"context"
	"errors"
	"net"

	"github.com/mdlayher/vsock"
)

// ErrConnectTimeout reports that the enclave channel did not accept a
// connection within the configured deadline. A stuck connect means a
// stuck control plane; the caller decides whether to abort.
var ErrConnectTimeout = errors.New("enclave: timed out connecting to enclave channel")

// dialer opens the duplex channel to a launched enclave.
type dialer func(ctx context.Context, cid, port uint32) (net.Conn, error)

// dialVsock connects AF_VSOCK under ctx's deadline. vsock.Dial has no
// context support, so the dial runs in a goroutine whose socket is
// closed if the deadline fires first.
func dialVsock(ctx context.Context, cid, port uint32) (net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := vsock.Dial(cid, port, nil)
		ch <- result{conn, err}
	}()
	select {
	case res := <-ch:
		return res.conn, res.err
	case <-ctx.Done():
		go func() {
			if res := <-ch; res.conn != nil {
				res.conn.Close()
			}
		}()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrConnectTimeout
		}
		return nil, ctx.Err()
	}
}
