package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"dario/internal/logger"
	"dario/internal/middleware"
	"dario/internal/model"
	"dario/internal/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 4096
)

// Subscriber hands out the realtime events of one user
type Subscriber interface {
	Subscribe(userID, clientID string) <-chan model.SocketEvent
	Unsubscribe(userID, clientID string)
}

// Limiter decides whether a user may send another message
type Limiter interface {
	Allow(key string) bool
}

// RealtimeHandler serves the chatbot over a websocket
type RealtimeHandler struct {
	base     context.Context
	chat     ChatService
	hub      Subscriber
	limiter  Limiter
	upgrader websocket.Upgrader
	active   sync.WaitGroup
}

// NewRealtimeHandler creates a websocket handler. Cancelling base closes every
// open connection with a going-away frame. allowedOrigins "*" accepts any
// origin. limiter may be nil.
func NewRealtimeHandler(base context.Context, chat ChatService, hub Subscriber, limiter Limiter, allowedOrigins []string) *RealtimeHandler {
	return &RealtimeHandler{
		base:    base,
		chat:    chat,
		hub:     hub,
		limiter: limiter,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Serve handles GET /chatbot/ws. Inbound chatMessage events are answered with
// messageResponse events, or chatbotError on failure.
func (h *RealtimeHandler) Serve(c *gin.Context) {
	userID := middleware.GetUserID(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		logger.Warn().Err(err).Str("user_id", userID).Msg("websocket upgrade failed")
		return
	}

	h.active.Add(1)
	defer h.active.Done()

	clientID := uuid.NewString()
	events := h.hub.Subscribe(userID, clientID)
	direct := make(chan model.SocketEvent, 8)

	ctx, cancel := context.WithCancel(h.base)
	defer cancel()

	logger.Info().Str("user_id", userID).Str("client_id", clientID).Msg("realtime client connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writeLoop(ctx, conn, events, direct)
		// unblocks readLoop once nothing more can be written
		conn.Close()
	}()

	h.readLoop(ctx, conn, userID, direct)

	cancel()
	h.hub.Unsubscribe(userID, clientID)
	<-done
	logger.Info().Str("user_id", userID).Str("client_id", clientID).Msg("realtime client disconnected")
}

func (h *RealtimeHandler) readLoop(ctx context.Context, conn *websocket.Conn, userID string, direct chan<- model.SocketEvent) {
	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var in model.SocketEvent
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Str("user_id", userID).Msg("websocket read failed")
			}
			return
		}

		if in.Event != model.EventChatMessage {
			sendDirect(direct, model.EventChatbotError, "unsupported event "+in.Event)
			continue
		}

		var payload model.ChatMessagePayload
		if err := json.Unmarshal(in.Data, &payload); err != nil {
			sendDirect(direct, model.EventChatbotError, "malformed chatMessage")
			continue
		}
		if payload.UserID != "" && payload.UserID != userID {
			sendDirect(direct, model.EventChatbotError, "userId does not match the authenticated user")
			continue
		}
		if h.limiter != nil && !h.limiter.Allow(userID) {
			sendDirect(direct, model.EventChatbotError, "too many requests, please try again later")
			continue
		}

		// replies and collaborator failures arrive through the hub
		if _, err := h.chat.Send(ctx, userID, payload.Text); err != nil {
			var appErr *response.AppError
			if errors.As(err, &appErr) && appErr.HTTPStatus < http.StatusInternalServerError {
				sendDirect(direct, model.EventChatbotError, appErr.Message)
			}
		}
	}
}

func (h *RealtimeHandler) writeLoop(ctx context.Context, conn *websocket.Conn, events <-chan model.SocketEvent, direct <-chan model.SocketEvent) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	write := func(event model.SocketEvent) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(event) == nil
	}

	for {
		select {
		case <-ctx.Done():
			code, text := websocket.CloseNormalClosure, ""
			if h.base.Err() != nil {
				code, text = websocket.CloseGoingAway, "server shutting down"
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, text))
			return
		case event, ok := <-events:
			if !ok || !write(event) {
				return
			}
		case event := <-direct:
			if !write(event) {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Wait blocks until every connection has been torn down or ctx is done
func (h *RealtimeHandler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.active.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sendDirect queues an event for this connection only, dropping it when the
// connection is not keeping up
func sendDirect(direct chan<- model.SocketEvent, name, message string) {
	event, err := model.NewSocketEvent(name, model.ChatbotErrorPayload{Message: message})
	if err != nil {
		return
	}
	select {
	case direct <- event:
	default:
	}
}
