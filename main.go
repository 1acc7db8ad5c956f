// Copyright 2024 The nitrohost Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	stdlog "log"

	"github.com/enclaverun/nitrohost/config"
	"github.com/enclaverun/nitrohost/logger"
	"github.com/enclaverun/nitrohost/metrics"
	"github.com/enclaverun/nitrohost/service"
)

var (
	eifPath    = flag.String("eif_path", "", "Path to the enclave image file (EIF) to launch")
	configPath = flag.String("config_path", "", "Path to host configuration yaml file (defaults apply if empty)")
)

func main() {
	flag.Parse()
	if *eifPath == "" {
		stdlog.Fatal("missing required flag: -eif_path")
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Read(*configPath); err != nil {
			stdlog.Fatalf("could not read configuration: %v", err)
		}
	}
	logger.Init(cfg)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTLPMetrics {
		shutdown, err := metrics.Setup(ctx, "nitrohost")
		if err != nil {
			logger.Fatalf("error initializing metrics: %v", err)
		}
		defer shutdown()
	}

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupts)

	go func() {
		select {
		case <-interrupts:
			logger.Infof("received interrupt, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	err := service.Start(ctx, cfg, *eifPath)
	logger.Fatalw("shutting down", "error", err)
}
