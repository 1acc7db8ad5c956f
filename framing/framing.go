// Copyright 2024 The nitrohost Authors
// SPDX-License-Identifier: MIT

// Package framing implements the length-prefixed message protocol
// spoken over the enclave channel. Each frame on the wire is an
// 8-byte little-endian unsigned payload length followed by exactly
// that many payload bytes. There is no checksum and no type tag; the
// channel is assumed isolated and trusted.
package framing

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"syscall"

	"github.com/hashicorp/go-metrics"
)

const headerSize = 8

var (
	// ErrChannelClosed reports that the peer closed the channel: a
	// clean end of stream, as opposed to an I/O failure.
	ErrChannelClosed = errors.New("framing: channel closed by peer")
	// ErrFrameTooLarge reports an inbound frame whose declared length
	// exceeds the framer's maximum payload size.
	ErrFrameTooLarge = errors.New("framing: frame exceeds maximum payload size")
)

var (
	sentFrames     = []string{"framing", "sent", "frames"}
	sentBytes      = []string{"framing", "sent", "bytes"}
	receivedFrames = []string{"framing", "received", "frames"}
	receivedBytes  = []string{"framing", "received", "bytes"}
)

// Framer sends and receives discrete byte buffers over a raw duplex
// channel that may transfer fewer bytes than asked and may be
// interrupted mid-call. It adds no locking: the channel carries one
// logical conversation at a time and callers serialize access.
type Framer struct {
	rw         io.ReadWriter
	maxPayload uint64
}

// New wraps rw in a Framer. Frames received with a declared length
// above maxPayload are rejected before allocation; maxPayload of zero
// disables the bound, trusting the peer's length field completely.
func New(rw io.ReadWriter, maxPayload uint64) *Framer {
	return &Framer{rw: rw, maxPayload: maxPayload}
}

// Send writes buf as one frame. A nil return means the whole frame was
// transmitted. On any error other than ErrChannelClosed the channel
// state is undefined and the framer must not be reused.
func (f *Framer) Send(buf []byte) error {
	var header [headerSize]byte
	binary.LittleEndian.PutUint64(header[:], uint64(len(buf)))
	if err := f.writeAll(header[:]); err != nil {
		return fmt.Errorf("writing frame header: %w", err)
	}
	if err := f.writeAll(buf); err != nil {
		return fmt.Errorf("writing frame payload: %w", err)
	}
	metrics.IncrCounter(sentFrames, 1)
	metrics.IncrCounter(sentBytes, float32(len(buf)))
	return nil
}

// Receive blocks for the next frame and returns its payload. A
// zero-length frame yields an empty (non-nil) buffer.
func (f *Framer) Receive() ([]byte, error) {
	var header [headerSize]byte
	if err := f.readAll(header[:]); err != nil {
		return nil, fmt.Errorf("reading frame header: %w", err)
	}
	length := binary.LittleEndian.Uint64(header[:])
	if f.maxPayload > 0 && length > f.maxPayload {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, length, f.maxPayload)
	}
	buf := make([]byte, length)
	if err := f.readAll(buf); err != nil {
		return nil, fmt.Errorf("reading frame payload: %w", err)
	}
	metrics.IncrCounter(receivedFrames, 1)
	metrics.IncrCounter(receivedBytes, float32(length))
	return buf, nil
}

// writeAll pushes every byte of buf through the channel. Short writes
// resume from the bytes already taken; an interrupted call counts
// whatever progress it reported and retries.
func (f *Framer) writeAll(buf []byte) error {
	for len(buf) > 0 {
		n, err := f.rw.Write(buf)
		buf = buf[n:]
		switch {
		case err == nil && n == 0:
			// Zero progress with no interrupt on an open channel:
			// the peer is gone.
			return ErrChannelClosed
		case err == nil:
		case errors.Is(err, syscall.EINTR):
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrClosedPipe):
			return ErrChannelClosed
		default:
			return err
		}
	}
	return nil
}

// readAll fills buf completely, accumulating short reads. End of
// stream at a frame boundary or mid-frame both surface as
// ErrChannelClosed; a read that completes buf and reports EOF in the
// same call still succeeds.
func (f *Framer) readAll(buf []byte) error {
	for len(buf) > 0 {
		n, err := f.rw.Read(buf)
		buf = buf[n:]
		switch {
		case err == nil && n == 0:
			return ErrChannelClosed
		case err == nil:
		case errors.Is(err, syscall.EINTR):
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrClosedPipe):
			if len(buf) == 0 {
				return nil
			}
			return ErrChannelClosed
		default:
			return err
		}
	}
	return nil
}
