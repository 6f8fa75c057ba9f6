// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging configures a single package-level zap.SugaredLogger
// that the demo binary and the library's internal packages share. The
// library itself stays quiet: nothing below warn is logged from
// txbuilder/provider/coinselect unless a caller has called Configure.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/blinklabs-io/txforge/internal/config"
)

// Logger wraps zap's SugaredLogger so callers get the Infof/Debugf/
// Warnf/Errorf/Fatalf/Sync surface without importing zap directly.
type Logger struct {
	*zap.SugaredLogger
}

var globalLogger *Logger

// Configure (re)builds the global logger from the current config's
// logging level, JSON-encoded to stdout with an RFC3339 timestamp.
func Configure() {
	cfg := config.GetConfig()
	var level zapcore.Level
	switch cfg.Logging.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.RFC3339TimeEncoder

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         "json",
		EncoderConfig:    encoderCfg,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	logger, err := zapCfg.Build()
	if err != nil {
		// Configure is called from program startup paths that can't
		// otherwise report this; fall back rather than panic.
		logger = zap.NewNop()
	}
	globalLogger = &Logger{SugaredLogger: logger.Sugar().With("component", "txforge")}
}

// GetLogger returns the global logger, configuring it with defaults on
// first use if Configure was never called.
func GetLogger() *Logger {
	if globalLogger == nil {
		Configure()
	}
	return globalLogger
}
