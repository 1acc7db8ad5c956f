// Copyright 2024 The nitrohost Authors
// SPDX-License-Identifier: MIT

package service

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/enclaverun/nitrohost/enclave"
)

// echoTransport answers every request with its payload reversed.
type echoTransport struct {
	last []byte
	err  error
}

func (e *echoTransport) Send(buf []byte) error {
	if e.err != nil {
		return e.err
	}
	e.last = buf
	return nil
}

func (e *echoTransport) Receive() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([]byte, len(e.last))
	for i, b := range e.last {
		out[len(e.last)-1-i] = b
	}
	return out, nil
}

func (e *echoTransport) Close() {}

func TestExchange(t *testing.T) {
	et := &echoTransport{}
	h := &exchangeHandler{transport: func() enclave.Transport { return et }}
	ts := httptest.NewServer(h)
	defer ts.Close()

	res, err := http.Post(ts.URL, "application/octet-stream", bytes.NewReader([]byte{1, 2, 3}))
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %v, want 200", res.Status)
	}
	got, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{3, 2, 1}, got); diff != "" {
		t.Errorf("exchange response mismatch (-want +got):\n%s", diff)
	}
}

func TestExchangeNotReady(t *testing.T) {
	h := &exchangeHandler{transport: func() enclave.Transport { return nil }}
	ts := httptest.NewServer(h)
	defer ts.Close()

	res, err := http.Post(ts.URL, "application/octet-stream", bytes.NewReader(nil))
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status %v, want 503", res.Status)
	}
}

func TestExchangeTransportError(t *testing.T) {
	et := &echoTransport{err: errors.New("channel closed")}
	h := &exchangeHandler{transport: func() enclave.Transport { return et }}
	ts := httptest.NewServer(h)
	defer ts.Close()

	res, err := http.Post(ts.URL, "application/octet-stream", bytes.NewReader([]byte{1}))
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusBadGateway {
		t.Errorf("status %v, want 502", res.Status)
	}
}

func TestExchangeMethod(t *testing.T) {
	h := &exchangeHandler{transport: func() enclave.Transport { return &echoTransport{} }}
	ts := httptest.NewServer(h)
	defer ts.Close()

	res, err := http.Get(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status %v, want 405", res.Status)
	}
}
