package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Init replaces the global zap logger. Level is debug, info, warn or error;
// format is "console" or "json". If w is empty, os.Stderr is used.
func Init(level, format string, w ...io.Writer) (*zap.Logger, error) {
	var writer io.Writer = os.Stderr
	if len(w) > 0 && w[0] != nil {
		writer = w[0]
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch format {
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	case "console", "":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	logger := zap.New(zapcore.NewCore(enc, zapcore.AddSync(writer), lvl))
	zap.ReplaceGlobals(logger)
	return logger, nil
}

// New returns the global logger tagged with a component name.
func New(component string) *zap.Logger {
	return zap.L().With(zap.String("component", component))
}
