// Copyright 2024 The nitrohost Authors
// SPDX-License-Identifier: MIT

// Package logger provides helper functions to configure and use a global logger
package logger

import (
	"log"

	"go.uber.org/zap"

	"github.com/enclaverun/nitrohost/config"
)

// init sets up reasonable logging defaults for tests / non-main
func init() {
	Init(config.Default())
}

// Init configures the global logger accessed with the logging
// functions in this package.
func Init(cfg *config.Config) {
	z, err := cfg.Log.Build(zap.AddCallerSkip(1))
	if err != nil {
		log.Fatalf("zap init: %v", err)
	}
	zap.ReplaceGlobals(z)
}

// Sync flushes any buffered logs. Applications should call Sync before program exit.
func Sync() {
	zap.L().Sync()
}

// wrappers around sugared zap logging methods that use the zap global logger

func Infow(msg string, keysAndValues ...interface{})  { zap.S().Infow(msg, keysAndValues...) }
func Infof(template string, args ...interface{})      { zap.S().Infof(template, args...) }
func Debugw(msg string, keysAndValues ...interface{}) { zap.S().Debugw(msg, keysAndValues...) }
func Debugf(template string, args ...interface{})     { zap.S().Debugf(template, args...) }
func Warnw(msg string, keysAndValues ...interface{})  { zap.S().Warnw(msg, keysAndValues...) }
func Warnf(template string, args ...interface{})      { zap.S().Warnf(template, args...) }
func Errorw(msg string, keysAndValues ...interface{}) { zap.S().Errorw(msg, keysAndValues...) }
func Errorf(template string, args ...interface{})     { zap.S().Errorf(template, args...) }
func Fatalw(msg string, keysAndValues ...interface{}) { zap.S().Fatalw(msg, keysAndValues...) }
func Fatalf(template string, args ...interface{})     { zap.S().Fatalf(template, args...) }
