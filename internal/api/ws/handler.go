package ws

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/glasswinglabs/glasswing/internal/domain/input"
	"github.com/glasswinglabs/glasswing/internal/domain/session"
	"github.com/glasswinglabs/glasswing/internal/domain/stream"
	"github.com/glasswinglabs/glasswing/internal/infrastructure/logging"
	"github.com/glasswinglabs/glasswing/internal/infrastructure/monitoring"
	"github.com/glasswinglabs/glasswing/internal/shared/errs"
)

const closeWriteWait = time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // UI connects cross-origin; CORS does not cover websockets
	},
}

// Handler manages streaming connections: upgrade, session check, bind, and
// the inbound event loop. Outbound traffic belongs to the binding's writer.
type Handler struct {
	sessions *session.Manager
	hub      *stream.Hub
	router   *input.Router
	log      *logging.Logger
	metrics  *monitoring.Metrics
}

// NewHandler creates a new WebSocket handler.
func NewHandler(
	sessions *session.Manager,
	hub *stream.Hub,
	router *input.Router,
	log *logging.Logger,
	metrics *monitoring.Metrics,
) *Handler {
	return &Handler{
		sessions: sessions,
		hub:      hub,
		router:   router,
		log:      log,
		metrics:  metrics,
	}
}

// HandleConnection upgrades the request and binds the socket to a session.
func (h *Handler) HandleConnection(c *gin.Context) {
	sessionID := c.Param("id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return
	}

	if _, err := h.sessions.Get(sessionID); err != nil {
		msg := websocket.FormatCloseMessage(stream.CloseNotFound, "Session not found")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteWait))
		conn.Close()
		return
	}

	binding := h.hub.Bind(sessionID, conn)
	h.readLoop(binding, conn)
}

// readLoop applies inbound events until the client goes away or the binding
// is torn down from the other side, which also closes the socket and ends
// the read.
func (h *Handler) readLoop(b *stream.Binding, conn *websocket.Conn) {
	defer b.Disconnected()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("websocket read ended",
					zap.String("session_id", b.SessionID),
					zap.Error(err),
				)
			}
			return
		}

		var e input.Event
		if err := sonic.Unmarshal(raw, &e); err != nil {
			h.metrics.RecordChannelMessage("in", "malformed")
			b.SendError("invalid_event", "malformed event payload")
			continue
		}
		seq := b.NextInputSeq()
		h.metrics.RecordChannelMessage("in", string(e.Type))

		res, err := h.router.Apply(b.Context(), b.SessionID, e)
		if err != nil {
			b.SendError(string(errs.CodeOf(err)), errs.MessageOf(err))
			continue
		}
		if res.NavChanged {
			b.SendNavigation(res.Nav)
		}

		h.log.Debug("input applied",
			zap.String("session_id", b.SessionID),
			zap.Uint64("seq", seq),
			zap.String("type", string(e.Type)),
		)
	}
}
