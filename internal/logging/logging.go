// Package logging builds the zap logger and the failure sink that feeds it.
package logging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"agent-chat/internal/agent"
	"agent-chat/internal/chat"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON logger appending to path. The terminal belongs to the
// UI, so an empty path yields a no-op logger rather than stderr output.
func New(path, level string) (*zap.Logger, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return zap.NewNop(), nil
	}
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// Sink writes one warning per failed send.
type Sink struct {
	logger *zap.Logger
}

func NewSink(logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{logger: logger}
}

func (s *Sink) ReportFailure(_ context.Context, f chat.Failure) {
	fields := []zap.Field{
		zap.String("session", f.SessionID),
		zap.Int("seq", f.Seq),
		zap.Int("chars", f.Chars),
		zap.Time("at", f.At),
		zap.Error(f.Err),
	}
	if kind, status, ok := agent.KindOf(f.Err); ok {
		fields = append(fields, zap.Stringer("kind", kind))
		if status != 0 {
			fields = append(fields, zap.Int("status", status))
		}
	}
	s.logger.Warn("send failed", fields...)
}
