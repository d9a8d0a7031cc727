package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/glasswinglabs/glasswing/internal/shared/errs"
)

// UILogEntry is a single log line shipped from the browser UI.
type UILogEntry struct {
	ID        string         `json:"id"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context"`
	Timestamp string         `json:"timestamp"`
}

// UILogBatch is a batch of UI log lines.
type UILogBatch struct {
	Source  string       `json:"source"`
	Entries []UILogEntry `json:"entries"`
}

// IngestLogs folds UI client logs into the service log stream so one tail
// shows both sides of a session.
func (h *Handlers) IngestLogs(c *gin.Context) {
	var req UILogBatch
	if !bindJSON(c, &req) {
		return
	}

	if req.Source != "ui" {
		respondError(c, errs.Newf(errs.Invalid, "unknown log source %q", req.Source))
		return
	}
	if len(req.Entries) == 0 {
		respondError(c, errs.New(errs.Invalid, "no log entries provided"))
		return
	}

	for _, entry := range req.Entries {
		h.writeUIEntry(entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "accepted",
		"received":  len(req.Entries),
		"timestamp": time.Now().Unix(),
	})
}

func (h *Handlers) writeUIEntry(entry UILogEntry) {
	fields := make([]zap.Field, 0, len(entry.Context)+3)
	fields = append(fields,
		zap.String("source", "ui"),
		zap.String("ui_log_id", entry.ID),
		zap.String("ui_timestamp", entry.Timestamp),
	)
	for key, value := range entry.Context {
		fields = append(fields, zap.Any(key, value))
	}

	switch entry.Level {
	case "error":
		h.log.Error(entry.Message, fields...)
	case "warn":
		h.log.Warn(entry.Message, fields...)
	case "debug", "verbose":
		h.log.Debug(entry.Message, fields...)
	default:
		h.log.Info(entry.Message, fields...)
	}
}
