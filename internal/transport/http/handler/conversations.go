package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docqa/internal/devserver"
	"docqa/internal/transport/http/middleware"
	"docqa/internal/transport/http/response"
)

type ConversationHandler struct {
	conversations *devserver.ConversationService
}

type AskRequest struct {
	Query          string `json:"query" binding:"required"`
	ConversationID string `json:"conversation_id"`
}

type AskResponse struct {
	Answer         string   `json:"answer"`
	Sources        []string `json:"sources"`
	ConversationID string   `json:"conversation_id"`
}

type ConversationInfo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

type MessageInfo struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	IsUser    bool   `json:"is_user"`
	Timestamp string `json:"timestamp"`
}

func NewConversationHandler(conversations *devserver.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

func (h *ConversationHandler) Ask(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.DetailInvalidCredentials)
		return
	}

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, response.DetailInvalidPayload)
		return
	}

	result, err := h.conversations.Ask(devserver.AskInput{
		UserID:         userID,
		Query:          req.Query,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		switch {
		case errors.Is(err, devserver.ErrInvalidInput):
			response.Error(c, http.StatusUnprocessableEntity, response.DetailInvalidPayload)
		case errors.Is(err, devserver.ErrNoDocuments):
			response.Error(c, http.StatusBadRequest, "No documents found for retrieval")
		case errors.Is(err, devserver.ErrConversationMissing):
			response.Error(c, http.StatusNotFound, "Conversation not found")
		default:
			response.Error(c, http.StatusInternalServerError, "ask failed")
		}
		return
	}

	response.OK(c, AskResponse{
		Answer:         result.Answer,
		Sources:        result.Sources,
		ConversationID: result.ConversationID,
	})
}

func (h *ConversationHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.DetailInvalidCredentials)
		return
	}

	conversations, err := h.conversations.List(userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "list conversations failed")
		return
	}

	out := make([]ConversationInfo, 0, len(conversations))
	for _, conv := range conversations {
		out = append(out, ConversationInfo{ID: conv.ID, Title: conv.Title, CreatedAt: formatTime(conv.CreatedAt)})
	}
	response.OK(c, out)
}

func (h *ConversationHandler) Get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.DetailInvalidCredentials)
		return
	}

	messages, err := h.conversations.History(userID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, devserver.ErrConversationMissing), errors.Is(err, devserver.ErrInvalidInput):
			response.Error(c, http.StatusNotFound, "Conversation not found")
		default:
			response.Error(c, http.StatusInternalServerError, "get conversation failed")
		}
		return
	}

	out := make([]MessageInfo, 0, len(messages))
	for _, m := range messages {
		out = append(out, MessageInfo{ID: m.ID, Content: m.Content, IsUser: m.IsUser, Timestamp: formatTime(m.Timestamp)})
	}
	response.OK(c, out)
}
