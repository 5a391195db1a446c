// Package handler provides HTTP handlers for the chat service.
package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/mida-chat/internal/chat/biz"
	"github.com/kart-io/mida-chat/pkg/utils/response"
	"github.com/kart-io/mida-chat/pkg/utils/validator"
)

// ChatHandler handles the JSON chat API.
type ChatHandler struct {
	service biz.Service
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(service biz.Service) *ChatHandler {
	return &ChatHandler{service: service}
}

// AskRequest represents a question for one turn.
type AskRequest struct {
	Question string `json:"question" validate:"nonblank"`
}

// TranscriptResponse is the full conversation of a session.
type TranscriptResponse struct {
	SessionID string         `json:"session_id"`
	Turns     []biz.Turn     `json:"turns"`
	Exchanges []biz.Exchange `json:"exchanges"`
	Busy      bool           `json:"busy"`
}

func newTranscript(sess *biz.Session) *TranscriptResponse {
	return &TranscriptResponse{
		SessionID: sess.ID(),
		Turns:     sess.All(),
		Exchanges: sess.Pairs(),
		Busy:      sess.Busy(),
	}
}

// CreateSession creates a session and returns its transcript, which holds
// only the greeting.
func (h *ChatHandler) CreateSession(c *gin.Context) {
	sess, err := h.service.CreateSession(c.Request.Context())
	if err != nil {
		response.Fail(c, toErrno(err))
		return
	}
	response.OK(c, newTranscript(sess))
}

// GetSession returns the transcript of a session.
func (h *ChatHandler) GetSession(c *gin.Context) {
	sess, err := h.service.Session(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Fail(c, toErrno(err))
		return
	}
	response.OK(c, newTranscript(sess))
}

// Ask runs one turn in a session.
func (h *ChatHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailWithBindOrValidation(c, err)
		return
	}
	// nonblank 是唯一的规则
	if err := validator.Struct(&req); err != nil {
		response.Fail(c, toErrno(biz.ErrEmptyQuestion))
		return
	}

	result, err := h.service.Ask(c.Request.Context(), c.Param("id"), req.Question)
	if err != nil {
		response.Fail(c, toErrno(err))
		return
	}
	response.OK(c, result)
}

// Stats returns the service statistics.
func (h *ChatHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Fail(c, toErrno(err))
		return
	}
	response.OK(c, stats)
}
