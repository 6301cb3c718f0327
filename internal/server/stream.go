package server

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/negraodenio/roast/internal/domain"
	"github.com/negraodenio/roast/internal/service/audit"
	"github.com/negraodenio/roast/pkg/errors"
)

const (
	streamReadTimeout  = 30 * time.Second
	streamWriteTimeout = 10 * time.Second
)

type StreamEventType string

const (
	StreamEventCategory StreamEventType = "category"
	StreamEventDone     StreamEventType = "done"
	StreamEventError    StreamEventType = "error"
)

// StreamEvent is one frame on the roast progress socket. Category frames carry
// only the category and whether it fell back to defaults.
type StreamEvent struct {
	Type      StreamEventType `json:"type"`
	Category  domain.Category `json:"category,omitempty"`
	Defaulted bool            `json:"defaulted,omitempty"`
	RoastID   string          `json:"roastId,omitempty"`
	Score     int             `json:"score,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func newUpgrader(checkOrigin func(string) bool) websocket.Upgrader {
	return websocket.Upgrader{
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || checkOrigin(origin)
		},
	}
}

// streamWriter serialises writes; observers fire from several goroutines.
type streamWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
	log  *zap.Logger
}

func (w *streamWriter) send(event StreamEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	_ = w.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	if err := w.conn.WriteJSON(event); err != nil {
		w.log.Debug("Stream write failed", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

func (w *streamWriter) CategorySettled(event domain.CategoryEvent) {
	w.send(StreamEvent{Type: StreamEventCategory, Category: event.Category, Defaulted: event.Defaulted})
}

var _ audit.Observer = (*streamWriter)(nil)

// handleRoastStream runs one roast over a WebSocket. The client sends the
// request as the first frame and receives a frame per settled category, then
// done or error. The roast keeps going if the client disconnects after the
// site was fetched.
func (s *Server) handleRoastStream(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	writer := &streamWriter{conn: conn, log: s.logger}

	_ = conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
	var body createRoastRequest
	if err := conn.ReadJSON(&body); err != nil || strings.TrimSpace(body.URL) == "" {
		writer.send(StreamEvent{Type: StreamEventError, Error: "Invalid URL"})
		return
	}

	outcome, err := s.roasts.Roast(c.Request.Context(), s.roastRequest(c, body), writer)
	if err != nil {
		if errors.StatusOf(err) >= http.StatusInternalServerError {
			s.logger.Error("Streamed roast failed", zap.String("url", body.URL), zap.Error(err))
		}
		writer.send(StreamEvent{Type: StreamEventError, Error: errors.PublicMessage(err)})
		return
	}

	writer.send(StreamEvent{Type: StreamEventDone, RoastID: outcome.RoastID.String(), Score: outcome.Score})
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(streamWriteTimeout))
}
