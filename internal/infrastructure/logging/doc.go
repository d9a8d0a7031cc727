// Package logging provides structured logging on top of uber/zap.
//
// Production emits one JSON object per line for the log pipeline;
// development switches to a colored console encoder. The Logger type embeds
// zap.Logger, so call sites use zap fields directly.
//
// Long-lived goroutines take child loggers instead of repeating fields:
// Named segments the source (session, stream, engine), WithSession and
// WithChannel pin the ids every line from that goroutine should carry.
//
//	logger, err := logging.New(logging.Config{Level: "info"})
//	slog := logger.Named("session").WithSession(sid)
//	slog.Error("Navigation failed", zap.Error(err))
//
// Tests use NewNop.
package logging
