package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"relaychat/internal/middleware"
	"relaychat/internal/service"
	"relaychat/internal/transport/httpdto"
	relay_errors "relaychat/pkg/errors"
)

type MessageHandler struct {
	chat *service.ChatService
}

func NewMessageHandler(chat *service.ChatService) *MessageHandler {
	return &MessageHandler{chat: chat}
}

// Send handles POST /conversations/:id/messages.
func (h *MessageHandler) Send(c *gin.Context) {
	conversationID, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_REQUEST"))
		return
	}

	var req httpdto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	msg, err := h.chat.SendMessage(c.Request.Context(), conversationID, middleware.UserID(c), req.Text, req.GifURL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewMessageView(msg)))
}

// List handles GET /conversations/:id/messages with cursor pagination.
func (h *MessageHandler) List(c *gin.Context) {
	conversationID, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_REQUEST"))
		return
	}

	var beforeID int64
	if v := c.Query("beforeId"); v != "" {
		if beforeID, err = parseID(v); err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid beforeId", "INVALID_REQUEST"))
			return
		}
	}
	limit := 0
	if v := c.Query("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid limit", "INVALID_REQUEST"))
			return
		}
	}

	msgs, hasMore, err := h.chat.FetchPage(c.Request.Context(), conversationID, middleware.UserID(c), beforeID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	page := httpdto.PageView{
		Messages:   httpdto.MessageViews(msgs),
		Pagination: httpdto.Pagination{HasMore: hasMore},
	}
	// Oldest message in the page is the cursor for the next one back.
	if len(msgs) > 0 {
		page.Pagination.NextCursor = msgs[len(msgs)-1].ID
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(page))
}

// Seen handles POST /conversations/:id/messages/:messageId/seen.
func (h *MessageHandler) Seen(c *gin.Context) {
	messageID, err := parseID(c.Param("messageId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid message id", "INVALID_REQUEST"))
		return
	}

	rec, err := h.chat.MarkSeen(c.Request.Context(), messageID, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.SeenView{
		MessageID: rec.MessageID,
		UserID:    rec.UserID,
		SeenAt:    rec.SeenAt,
	}))
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, relay_errors.ErrNotAMember):
		// The original API hides membership failures as 404.
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("conversation not found", "NOT_FOUND"))
	case errors.Is(err, relay_errors.ErrNotFound):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse(err.Error(), "NOT_FOUND"))
	case errors.Is(err, relay_errors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "INVALID_REQUEST"))
	case errors.Is(err, relay_errors.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse("store unavailable", "STORE_UNAVAILABLE"))
	default:
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse(err.Error(), "INTERNAL_ERROR"))
	}
}
