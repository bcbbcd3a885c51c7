// Package logging builds the zap logger shared by the CLI and pipeline.
package logging

import (
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a logger writing to stderr. format is "console" or "json";
// verbose enables debug output.
func New(verbose bool, format string) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encoder, err := newEncoder(format)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	return zap.New(core), nil
}

func newEncoder(format string) (zapcore.Encoder, error) {
	switch format {
	case "", "console":
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		return zapcore.NewConsoleEncoder(cfg), nil
	case "json":
		return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), nil
	}
	return nil, eris.Errorf("unknown log format %q (supported: console, json)", format)
}
