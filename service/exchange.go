// Copyright 2024 The nitrohost Authors
// SPDX-License-Identifier: MIT

package service

import (
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/enclaverun/nitrohost/enclave"
	"github.com/enclaverun/nitrohost/logger"
)

// exchangeHandler performs one framed request/response exchange with
// the enclave per HTTP request. The enclave channel carries a single
// conversation at a time, so exchanges are serialized on mu.
type exchangeHandler struct {
	mu sync.Mutex
	// transport returns the live enclave handle, or nil before the
	// enclave is ready.
	transport func() enclave.Transport
}

func (h *exchangeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("reading request: %v", err), http.StatusBadRequest)
		return
	}
	t := h.transport()
	if t == nil {
		http.Error(w, "enclave not ready", http.StatusServiceUnavailable)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := t.Send(body); err != nil {
		logger.Errorw("enclave send failed", "error", err)
		http.Error(w, fmt.Sprintf("send: %v", err), http.StatusBadGateway)
		return
	}
	resp, err := t.Receive()
	if err != nil {
		logger.Errorw("enclave receive failed", "error", err)
		http.Error(w, fmt.Sprintf("receive: %v", err), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(resp)
}
