package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"relaychat/internal/middleware"
	"relaychat/internal/presence"
	"relaychat/internal/service"
	"relaychat/internal/transport/httpdto"
)

type ConversationHandler struct {
	chat     *service.ChatService
	presence *presence.Tracker
}

func NewConversationHandler(chat *service.ChatService, p *presence.Tracker) *ConversationHandler {
	return &ConversationHandler{chat: chat, presence: p}
}

// Create handles POST /conversations. The creator is always a participant.
func (h *ConversationHandler) Create(c *gin.Context) {
	var req httpdto.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	userID := middleware.UserID(c)
	participants := append([]int64{userID}, req.ParticipantIDs...)

	conv, err := h.chat.CreateConversation(c.Request.Context(), req.Name, dedupe(participants))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewConversationView(conv)))
}

// Get handles GET /conversations/:id.
func (h *ConversationHandler) Get(c *gin.Context) {
	conversationID, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_REQUEST"))
		return
	}

	conv, err := h.chat.GetConversation(c.Request.Context(), conversationID, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewConversationView(conv)))
}

// Presence handles GET /presence/:userId.
func (h *ConversationHandler) Presence(c *gin.Context) {
	userID, err := parseID(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid user id", "INVALID_REQUEST"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.PresenceView{
		UserID: userID,
		Online: h.presence.Online(userID),
	}))
}

// ConversationPresence handles GET /conversations/:id/presence. It reports
// which participants currently hold a live connection.
func (h *ConversationHandler) ConversationPresence(c *gin.Context) {
	conversationID, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_REQUEST"))
		return
	}

	participants, err := h.chat.Participants(c.Request.Context(), conversationID, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ConversationPresenceView{
		ConversationID: conversationID,
		OnlineUserIDs:  h.presence.OnlineAmong(participants),
	}))
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
