// Package logging builds the zap.SugaredLogger used across the CLI
// tools. Debug-level logging is opt-in, toggled by each command's
// --debug flag, mirroring the reference tools' RUST_LOG=debug switch.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a sugared logger. With debug set it writes debug-level
// output to stderr in human-readable (non-JSON) encoding; otherwise it
// returns a no-op logger that discards every entry.
func New(debug bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	} else {
		return zap.NewNop().Sugar(), nil
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
