package adapters

import (
	"context"
	"fmt"
	"log/slog"
)

// SlogLoggerAdapter forwards tracker logs to a structured slog.Logger.
// The formatted message becomes the record message and every record carries
// component=ripple.
type SlogLoggerAdapter struct {
	logger *slog.Logger
}

var _ LoggerAdapter = (*SlogLoggerAdapter)(nil)

// NewSlogLoggerAdapter wraps logger. A nil logger uses slog.Default().
func NewSlogLoggerAdapter(logger *slog.Logger) *SlogLoggerAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLoggerAdapter{logger: logger.With("component", "ripple")}
}

func (s *SlogLoggerAdapter) log(level slog.Level, message string, args []any) {
	if !s.logger.Enabled(context.Background(), level) {
		return
	}
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}
	s.logger.Log(context.Background(), level, message)
}

func (s *SlogLoggerAdapter) Debug(message string, args ...any) {
	s.log(slog.LevelDebug, message, args)
}

func (s *SlogLoggerAdapter) Info(message string, args ...any) {
	s.log(slog.LevelInfo, message, args)
}

func (s *SlogLoggerAdapter) Warn(message string, args ...any) {
	s.log(slog.LevelWarn, message, args)
}

func (s *SlogLoggerAdapter) Error(message string, args ...any) {
	s.log(slog.LevelError, message, args)
}
