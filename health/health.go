// Copyright 2024 The nitrohost Authors
// SPDX-License-Identifier: MIT

// Package health tracks named component conditions and serves them
// over HTTP.
package health

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/hashicorp/go-metrics"
)

var statusGauge = []string{"health", "status"}

// Health wraps an error (nil means "healthy") under a name, and
// provides HTTP handling logic to serve that error.
type Health struct {
	name string
	mu   sync.Mutex
	err  error
}

// New creates a health object named 'name', with initial health set
// based on the 'initial' error (nil==healthy).
func New(name string, initial error) *Health {
	h := &Health{name: name}
	h.Set(initial)
	return h
}

// Set sets the underlying error for this Health object; err=nil means "OK"
func (h *Health) Set(err error) {
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
	status := float32(1)
	if err != nil {
		status = 0
	}
	metrics.SetGaugeWithLabels(statusGauge, status, []metrics.Label{{Name: "check", Value: h.name}})
}

// ServeHTTP implements http.Handler.
func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	err := h.err
	h.mu.Unlock()
	if err == nil {
		fmt.Fprintf(w, "%s ok", h.name)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	fmt.Fprintf(w, "%s error: %v", h.name, err)
}
