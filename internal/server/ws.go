package server

import (
	"context"
	"net/http"
	"time"

	"gide/internal/judge"
	appErr "gide/pkg/errors"
	"gide/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait = 10 * time.Second
	wsReadWait  = 30 * time.Second
)

// Stream message types.
const (
	EventTransition = "transition"
	EventResult     = "result"
	EventError      = "error"
)

// StreamEvent is one message on the run stream.
type StreamEvent struct {
	Type    string            `json:"type"`
	State   judge.State       `json:"state,omitempty"`
	RunID   string            `json:"run_id,omitempty"`
	Token   string            `json:"token,omitempty"`
	Attempt int               `json:"attempt,omitempty"`
	Status  *judge.Status     `json:"status,omitempty"`
	Result  *judge.Normalized `json:"result,omitempty"`
	Code    appErr.ErrorCode  `json:"code,omitempty"`
	Message string            `json:"message,omitempty"`
}

// RunStream upgrades to a WebSocket, reads one run request and streams the
// lifecycle until the result or an error is sent.
func (h *Handler) RunStream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn(c.Request.Context(), "websocket upgrade failed", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := h.svc.RunContext(c.Request.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(wsReadWait))
	var req runRequest
	if err := conn.ReadJSON(&req); err != nil {
		h.writeEvent(ctx, conn, errorEvent(appErr.Wrapf(err, appErr.InvalidParams, "invalid run request")))
		return
	}
	jr := req.toJudge()
	if err := h.svc.CheckRun(jr); err != nil {
		h.writeEvent(ctx, conn, errorEvent(err))
		return
	}

	// A client that goes away cancels the run.
	go func() {
		_ = conn.SetReadDeadline(time.Time{})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	result, err := h.svc.Executor.Execute(ctx, jr, func(t judge.Transition) {
		if t.State == judge.StateResolved || t.State == judge.StateFailed {
			return
		}
		h.writeEvent(ctx, conn, StreamEvent{
			Type:    EventTransition,
			State:   t.State,
			RunID:   t.RunID,
			Token:   t.Token,
			Attempt: t.Attempt,
			Status:  t.Status,
		})
	})
	if err != nil {
		h.writeEvent(ctx, conn, errorEvent(err))
		return
	}
	normalized := judge.FormatExecutionResult(&result)
	status := result.Status
	h.writeEvent(ctx, conn, StreamEvent{Type: EventResult, State: judge.StateResolved, Token: result.Token, Status: &status, Result: &normalized})
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
		time.Now().Add(wsWriteWait))
}

func (h *Handler) writeEvent(ctx context.Context, conn *websocket.Conn, ev StreamEvent) {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(ev); err != nil {
		logger.Warn(ctx, "websocket write failed", zap.String("type", ev.Type), zap.Error(err))
	}
}

func errorEvent(err error) StreamEvent {
	e := appErr.GetError(err)
	return StreamEvent{Type: EventError, State: judge.StateFailed, Code: e.Code, Message: e.Error()}
}

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowedOrigins) == 0 {
				return true
			}
			for _, o := range allowedOrigins {
				if o == "*" || o == origin {
					return true
				}
			}
			return false
		},
	}
}
