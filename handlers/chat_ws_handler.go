package handlers

import (
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"wanderwise/middleware"
	"wanderwise/models"
	"wanderwise/services"
	"wanderwise/utils/errors"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 10
)

// Frame types sent to the client.
const (
	FrameHistory = "history"
	FrameMessage = "message"
	FrameError   = "error"
)

type chatFrame struct {
	Type        string        `json:"type"`
	Message     string        `json:"message,omitempty"`
	ChatHistory []models.Turn `json:"chatHistory,omitempty"`
}

// ChatSocketHandler serves the trip chat over a websocket. Browsers cannot set
// headers on the upgrade request, so the access token comes in the query.
type ChatSocketHandler struct {
	chatService *services.ChatService
	tokens      *services.TokenService
	upgrader    websocket.Upgrader
}

func NewChatSocketHandler(chatService *services.ChatService, tokens *services.TokenService, allowedOrigins []string) *ChatSocketHandler {
	return &ChatSocketHandler{
		chatService: chatService,
		tokens:      tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || lo.Contains(allowedOrigins, origin) || lo.Contains(allowedOrigins, "*")
			},
		},
	}
}

// Serve handles GET /ws/chat?email=&token=&tripId=. The session is pinned to
// the trip resolved at connect time. The first frame carries the transcript;
// each inbound text frame is one message to the assistant.
func (h *ChatSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	email, tripID := q.Get("email"), q.Get("tripId")

	claims, err := h.tokens.VerifyAccess(q.Get("token"))
	if err != nil {
		middleware.WriteError(w, r, errors.ErrUnauthorized)
		return
	}
	if !strings.EqualFold(strings.TrimSpace(email), claims.Email) {
		middleware.WriteError(w, r, errors.ErrForbidden)
		return
	}
	tripID, history, err := h.chatService.Open(r.Context(), email, tripID)
	if err != nil {
		middleware.WriteError(w, r, collapse(err, chatFailureMessage))
		return
	}

	logger := middleware.LoggerFrom(r.Context())
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go keepAlive(conn, done)

	if err := writeFrame(conn, chatFrame{Type: FrameHistory, ChatHistory: history}); err != nil {
		return
	}

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		frame := chatFrame{Type: FrameMessage}
		reply, err := h.chatService.Send(r.Context(), email, tripID, string(data))
		if err != nil {
			frame = chatFrame{Type: FrameError, Message: frameErrorMessage(err)}
			logger.Warn("chat message failed", zap.Error(err))
		} else {
			frame.Message = reply
		}
		if err := writeFrame(conn, frame); err != nil {
			return
		}
	}
}

func writeFrame(conn *websocket.Conn, frame chatFrame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(frame)
}

// keepAlive pings until done is closed. WriteControl may run concurrently
// with the reader loop's writes.
func keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func frameErrorMessage(err error) string {
	var apiErr *errors.APIError
	if stderrors.As(collapse(err, chatFailureMessage), &apiErr) {
		return apiErr.Message
	}
	return chatFailureMessage
}
