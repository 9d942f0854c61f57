package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/sparkquest-backend/internal/domain"
	"github.com/yungbote/sparkquest-backend/internal/platform/ctxutil"
	"github.com/yungbote/sparkquest-backend/internal/platform/httpx"
	"github.com/yungbote/sparkquest-backend/internal/platform/logger"
)

const maxChatbotResponseBytes = 1 << 20

type ChatbotConfig struct {
	URL        string
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

type ChatRequest struct {
	Message   string `json:"message"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
}

type ChatReply struct {
	Reply string `json:"reply"`
}

type ChatbotService interface {
	Ask(ctx context.Context, userID uuid.UUID, message, sessionID string) (*ChatReply, error)
	Enabled() bool
}

type chatbotService struct {
	log    *logger.Logger
	cfg    ChatbotConfig
	client *http.Client
}

func NewChatbotService(log *logger.Logger, cfg ChatbotConfig, client *http.Client) ChatbotService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 8 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &chatbotService{
		log:    log.With("service", "ChatbotService"),
		cfg:    cfg,
		client: client,
	}
}

func (cs *chatbotService) Enabled() bool { return strings.TrimSpace(cs.cfg.URL) != "" }

func (cs *chatbotService) Ask(ctx context.Context, userID uuid.UUID, message, sessionID string) (*ChatReply, error) {
	const op = "chatbot.ask"
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, types.ValidationError(op, types.FieldError{Path: "message", Message: "message is required"})
	}
	if !cs.Enabled() {
		return nil, types.NewError(types.CodeUnavailable, op, "chatbot is not configured", nil)
	}

	body, err := json.Marshal(ChatRequest{Message: message, UserID: userID.String(), SessionID: strings.TrimSpace(sessionID)})
	if err != nil {
		return nil, types.NewError(types.CodeInternal, op, "encode chatbot request", err)
	}

	var lastErr error
	for attempt := 0; attempt <= cs.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := httpx.JitterSleep(httpx.Backoff(cs.cfg.BaseDelay, cs.cfg.MaxDelay, attempt))
			var se *httpx.StatusError
			if errors.As(lastErr, &se) && se.StatusCode == http.StatusTooManyRequests {
				wait = max(wait, cs.cfg.BaseDelay)
			}
			if err := httpx.Sleep(ctx, wait); err != nil {
				return nil, types.NewError(types.CodeUnavailable, op, "chatbot request canceled", err)
			}
		}
		reply, err := cs.do(ctx, body)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if !httpx.IsRetryableError(err) {
			break
		}
		cs.log.Warn("Chatbot request failed, retrying", "attempt", attempt+1, "error", err)
	}
	cs.log.Warn("Chatbot request gave up", "user_id", userID, "error", lastErr)
	return nil, types.NewError(types.CodeUnavailable, op, "chatbot is unavailable", lastErr)
}

func (cs *chatbotService) do(ctx context.Context, body []byte) (*ChatReply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cs.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if td := ctxutil.GetTraceData(ctx); td != nil && td.RequestID != "" {
		req.Header.Set(ctxutil.HeaderRequestID, td.RequestID)
	}

	resp, err := cs.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxChatbotResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &httpx.StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return parseChatReply(raw), nil
}

// parseChatReply accepts {"reply"}, {"response"}, {"output"}, {"text"}, or a
// plain text body.
func parseChatReply(raw []byte) *ChatReply {
	trimmed := bytes.TrimSpace(raw)
	var obj map[string]any
	if err := json.Unmarshal(trimmed, &obj); err == nil {
		for _, k := range []string{"reply", "response", "output", "text"} {
			if s, ok := obj[k].(string); ok {
				return &ChatReply{Reply: s}
			}
		}
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return &ChatReply{Reply: s}
	}
	return &ChatReply{Reply: string(trimmed)}
}
