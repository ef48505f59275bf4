package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"relaychat/internal/auth"
	"relaychat/internal/metrics"
	"relaychat/internal/registry"
	"relaychat/internal/service"
	"relaychat/internal/transport/httpdto"
	"relaychat/pkg/logger"
)

// clientFrame is an inbound control frame from the browser.
type clientFrame struct {
	Action            string `json:"action"` // subscribe, unsubscribe, resume
	ConversationID    int64  `json:"conversationId"`
	LastSeenMessageID int64  `json:"lastSeenMessageId"`
}

// resumeReply carries the messages recovered by a resume request.
type resumeReply struct {
	Type           string                `json:"type"`
	ConversationID int64                 `json:"conversationId"`
	Messages       []httpdto.MessageView `json:"messages"`
}

type errorReply struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type Handler struct {
	verifier *auth.Verifier
	chat     *service.ChatService
	registry *registry.Registry
	log      *logger.Logger
}

func NewHandler(verifier *auth.Verifier, chat *service.ChatService, reg *registry.Registry, log *logger.Logger) *Handler {
	return &Handler{verifier: verifier, chat: chat, registry: reg, log: log}
}

// Connect upgrades the request, registers the connection and serves control
// frames until the peer goes away. Teardown always runs DisconnectAll so the
// registry invariant holds.
func (h *Handler) Connect(c *gin.Context) {
	userID, err := h.verifier.Verify(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := NewClient(conn, userID)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.registry.Register(client)
	metrics.ConnectionsActive.Inc()
	go client.WriteLoop(ctx)

	defer func() {
		h.registry.DisconnectAll(client.ID())
		metrics.ConnectionsActive.Dec()
		client.Close()
	}()

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))

		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			h.reply(ctx, client, errorReply{Type: "error", Error: "bad frame"})
			continue
		}
		h.handleFrame(ctx, client, frame)
	}
}

func (h *Handler) handleFrame(ctx context.Context, client *Client, frame clientFrame) {
	switch frame.Action {
	case "subscribe":
		if err := h.chat.Subscribe(ctx, client, frame.ConversationID); err != nil {
			h.reply(ctx, client, errorReply{Type: "error", Error: err.Error()})
		}
	case "unsubscribe":
		h.chat.Unsubscribe(client, frame.ConversationID)
	case "resume":
		missed, err := h.chat.Resume(ctx, client, frame.ConversationID, frame.LastSeenMessageID)
		if err != nil {
			h.reply(ctx, client, errorReply{Type: "error", Error: err.Error()})
			return
		}
		h.reply(ctx, client, resumeReply{
			Type:           "resume",
			ConversationID: frame.ConversationID,
			Messages:       httpdto.MessageViews(missed),
		})
	default:
		h.reply(ctx, client, errorReply{Type: "error", Error: "unknown action"})
	}
}

func (h *Handler) reply(ctx context.Context, client *Client, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.log.Errorf("ws: marshal reply: %v", err)
		return
	}
	if err := client.Deliver(ctx, payload); err != nil {
		h.log.Warnf("ws: reply to %s: %v", client.ID(), err)
	}
}
