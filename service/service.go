// Copyright 2024 The nitrohost Authors
// SPDX-License-Identifier: MIT

// Package service assembles the host: the control HTTP server, the
// enclave lifecycle, and shutdown handling.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/enclaverun/nitrohost/config"
	"github.com/enclaverun/nitrohost/enclave"
	"github.com/enclaverun/nitrohost/health"
	"github.com/enclaverun/nitrohost/logger"
)

// Start launches the enclave image at eifPath and serves the control
// plane until ctx is cancelled or a component fails. The enclave is
// terminated on every exit path once it has been created.
func Start(ctx context.Context, cfg *config.Config, eifPath string) error {
	g, ctx := errgroup.WithContext(ctx)

	live, ready := health.New("live", nil), health.New("ready", errors.New("enclave starting"))

	var (
		mu  sync.Mutex
		enc enclave.Transport
	)
	current := func() enclave.Transport {
		mu.Lock()
		defer mu.Unlock()
		return enc
	}

	mux := http.NewServeMux()
	mux.Handle("/health/live", live)
	mux.Handle("/health/ready", ready)
	mux.Handle("/v1/message", &exchangeHandler{transport: current})

	server := &http.Server{Addr: cfg.ControlListenAddr, Handler: mux}
	g.Go(func() error {
		logger.Infof("starting control http server on %v", cfg.ControlListenAddr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		return server.Shutdown(shutCtx)
	})

	g.Go(func() error {
		e, err := enclave.New(ctx, cfg.Enclave, eifPath)
		if err != nil {
			return fmt.Errorf("creating enclave: %w", err)
		}
		mu.Lock()
		enc = e
		mu.Unlock()
		ready.Set(nil)
		logger.Infow("enclave ready", "enclaveId", e.EnclaveID())
		<-ctx.Done()
		ready.Set(errors.New("shutting down"))
		e.Close()
		return nil
	})

	return g.Wait()
}
