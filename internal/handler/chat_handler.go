package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campuskb/campuskb/internal/model"
	"github.com/campuskb/campuskb/internal/pkg/errcode"
	"github.com/campuskb/campuskb/internal/pkg/response"
	"github.com/campuskb/campuskb/internal/service"
)

type ChatHandler struct {
	chat *service.ChatService
}

func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type chatRequest struct {
	Role    string                   `json:"role"`
	Message string                   `json:"message"`
	History []model.ConversationTurn `json:"history"`
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if req.Message == "" {
		response.Error(c, errcode.ErrInvalid, "message is required")
		return
	}
	reply, err := h.chat.Answer(c.Request.Context(), model.RoleTag(req.Role), req.Message, req.History)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"reply": reply})
}
