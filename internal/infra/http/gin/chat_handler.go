package ginserver

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"dmbox/internal/app/dto"
	"dmbox/internal/app/services/messenger"
	"dmbox/internal/domain/chat"
)

type ChatHTTP interface {
	Send(c *gin.Context)
	Conversations(c *gin.Context)
	Thread(c *gin.Context)
	Notify(c *gin.Context)
}

type ChatHandler struct {
	Service      *messenger.Service
	NotifySecret string
	Logger       *slog.Logger
}

// Send accepts {from, to, body}. The bearer principal must be the sender;
// optimistic unauthenticated writes are not a thing here.
func (h ChatHandler) Send(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req dto.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request"})
		return
	}
	if req.From != p.ID {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid credentials"})
		return
	}
	result, err := h.Service.Send(c.Request.Context(), messenger.SendParams{
		From: req.From,
		To:   req.To,
		Body: req.Body,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SendResponse{OK: true, ID: result.ID, Ts: result.Ts})
}

// Conversations lists the caller's active pairs, newest activity first.
func (h ChatHandler) Conversations(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	limit := parseInt64Query(c, "limit")
	summaries, err := h.Service.Conversations(c.Request.Context(), p.ID, int(limit))
	if err != nil {
		h.respondError(c, err)
		return
	}
	list := dto.ConversationList{
		OK:            true,
		Conversations: make([]dto.Conversation, 0, len(summaries)),
	}
	for _, summary := range summaries {
		other, ok := summary.Other(p.ID)
		if !ok {
			continue
		}
		list.Conversations = append(list.Conversations, dto.Conversation{
			Other:    other,
			LastBody: summary.LastBody,
			LastTs:   summary.LastTs,
		})
	}
	c.JSON(http.StatusOK, list)
}

// Thread serves both read modes: ?before= (or neither) pages backwards
// from a timestamp, ?after= returns only the new tail. Both orders
// ascending.
func (h ChatHandler) Thread(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	peer := strings.TrimSpace(c.Param("peer"))
	if peer == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "peer is required"})
		return
	}
	if c.Query("before") != "" && c.Query("after") != "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "before and after are mutually exclusive"})
		return
	}
	limit := int(parseInt64Query(c, "limit"))

	var (
		messages []chat.Message
		err      error
	)
	if raw := c.Query("after"); raw != "" {
		after, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid after"})
			return
		}
		messages, err = h.Service.ThreadSince(c.Request.Context(), p.ID, peer, after, limit)
	} else {
		before := int64(0)
		if raw := strings.TrimSpace(c.Query("before")); raw != "" {
			before, err = strconv.ParseInt(raw, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid before"})
				return
			}
		}
		messages, err = h.Service.ThreadPage(c.Request.Context(), p.ID, peer, before, limit)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := dto.ThreadResponse{OK: true, Messages: make([]dto.ThreadMessage, 0, len(messages))}
	for _, msg := range messages {
		resp.Messages = append(resp.Messages, dto.ThreadMessage{
			ID:   msg.ID,
			From: msg.From,
			To:   msg.To,
			Body: msg.Body,
			Ts:   msg.Ts,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// Notify publishes an operator broadcast, guarded by a shared secret.
func (h ChatHandler) Notify(c *gin.Context) {
	var req dto.NotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request"})
		return
	}
	if h.NotifySecret == "" ||
		subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.NotifySecret)) != 1 {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid credentials"})
		return
	}
	if err := h.Service.Broadcast(c.Request.Context(), req.Title, req.Body); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("broadcast publish failed", "error", err)
		}
	}
	c.JSON(http.StatusOK, dto.OKResponse{OK: true})
}

func (h ChatHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, messenger.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: trimErrorPrefix(err)})
	case errors.Is(err, messenger.ErrUserNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "user not found"})
	case errors.Is(err, messenger.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: "temporarily unavailable"})
	default:
		if h.Logger != nil {
			h.Logger.Error("chat operation failed", "error", err, "request_id", c.GetString("request_id"))
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}
}

func trimErrorPrefix(err error) string {
	return strings.TrimPrefix(err.Error(), "messenger: ")
}

func parseInt64Query(c *gin.Context, key string) int64 {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		return 0
	}
	return value
}

var _ ChatHTTP = (*ChatHandler)(nil)
