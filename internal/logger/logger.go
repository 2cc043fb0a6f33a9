// Package logger builds the zap loggers used by qx.
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the logger's encoding, level and destination.
type Options struct {
	JSON   bool      // JSON structured output instead of console text
	Level  string    // debug, info, warn or error; empty is warn
	Output io.Writer // defaults to os.Stderr so command output on stdout stays clean
}

// New builds a sugared logger from opts.
func New(opts Options) (*zap.SugaredLogger, error) {
	level := zapcore.WarnLevel
	if opts.Level != "" {
		l, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, err
		}
		level = l
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var encoder zapcore.Encoder
	if opts.JSON {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.TimeKey = ""
		cfg.CallerKey = ""
		encoder = zapcore.NewConsoleEncoder(cfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(out), level)
	return zap.New(core).Sugar(), nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
