package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	types "github.com/yungbote/sparkquest-backend/internal/domain"
	"github.com/yungbote/sparkquest-backend/internal/http/response"
	"github.com/yungbote/sparkquest-backend/internal/platform/ctxutil"
	"github.com/yungbote/sparkquest-backend/internal/platform/logger"
	"github.com/yungbote/sparkquest-backend/internal/services"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 64 << 10
)

type ChatbotHandler struct {
	log            *logger.Logger
	chatbotService services.ChatbotService
	upgrader       websocket.Upgrader
}

// NewChatbotHandler accepts WebSocket upgrades from allowedOrigins; an empty
// list allows any origin.
func NewChatbotHandler(log *logger.Logger, chatbotService services.ChatbotService, allowedOrigins []string) *ChatbotHandler {
	return &ChatbotHandler{
		log:            log.With("handler", "ChatbotHandler"),
		chatbotService: chatbotService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

type chatMessage struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id"`
}

// POST /api/chatbot
func (ch *ChatbotHandler) Ask(c *gin.Context) {
	var req chatMessage
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondFieldErrors(c, http.StatusBadRequest, response.BindingFieldErrors(err))
		return
	}
	ctx := c.Request.Context()
	reply, err := ch.chatbotService.Ask(ctx, ctxutil.UserID(ctx), req.Message, req.SessionID)
	if err != nil {
		response.RespondDomainError(c, err, false)
		return
	}
	response.RespondOK(c, reply)
}

// GET /api/chatbot/ws?token=...
func (ch *ChatbotHandler) WebSocket(c *gin.Context) {
	conn, err := ch.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		ch.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	userID := ctxutil.UserID(ctx)
	sess := &wsSession{conn: conn}
	defer sess.close()

	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				sess.close()
				return
			case <-ticker.C:
				if err := sess.ping(); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	for {
		kind, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ch.log.Debug("WebSocket closed unexpectedly", "user_id", userID, "error", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		msg := parseWSMessage(raw)
		reply, err := ch.chatbotService.Ask(ctx, userID, msg.Message, msg.SessionID)
		if err != nil {
			err = sess.writeJSON(gin.H{"error": wsErrorMessage(err)})
		} else {
			err = sess.writeJSON(reply)
		}
		if err != nil {
			return
		}
	}
}

func parseWSMessage(raw []byte) chatMessage {
	var msg chatMessage
	if err := json.Unmarshal(raw, &msg); err == nil && strings.TrimSpace(msg.Message) != "" {
		return msg
	}
	return chatMessage{Message: string(raw)}
}

func wsErrorMessage(err error) string {
	var de *types.Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return "chatbot request failed"
}

// wsSession serializes writes; gorilla connections allow one concurrent writer.
type wsSession struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func (s *wsSession) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return websocket.ErrCloseSent
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return s.conn.WriteJSON(v)
}

func (s *wsSession) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return websocket.ErrCloseSent
	}
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

func (s *wsSession) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	_ = s.conn.Close()
}
