package handler

import (
	"errors"
	"net/http"
	"strconv"

	"aira-go/internal/middleware"
	"aira-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ChatHandler 负责处理聊天对话与历史管理相关的请求。
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler 实例。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// sendRequest 定义了对话接口的请求体。
type sendRequest struct {
	Message string `json:"message"`
}

// createRequest 定义了直接插入聊天记录的请求体。
type createRequest struct {
	Message string `json:"message"`
	Sender  string `json:"sender"`
}

// updateRequest 定义了修改聊天记录的请求体。
type updateRequest struct {
	Message string `json:"message"`
}

// Send 处理一轮完整的对话：落库用户消息，请求 AI，落库回复。
func (h *ChatHandler) Send(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.chatService.SendMessage(c.Request.Context(), userID, req.Message)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Create 直接插入一条聊天记录，不经过 AI。
func (h *ChatHandler) Create(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	chat, err := h.chatService.CreateMessage(userID, req.Message, req.Sender)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"chat": chat})
}

// History 返回某用户按时间升序排列的聊天历史。
func (h *ChatHandler) History(c *gin.Context) {
	requesterID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	userID, err := parseIDParam(c, "userId")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	history, err := h.chatService.History(requesterID, userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"history": history,
		"length":  len(history),
	})
}

// Update 修改一条聊天记录的内容。
func (h *ChatHandler) Update(c *gin.Context) {
	requesterID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	chatID, err := parseIDParam(c, "chatId")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	chat, err := h.chatService.UpdateMessage(requesterID, chatID, req.Message)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"chat": chat})
}

// Delete 删除一条聊天记录。
func (h *ChatHandler) Delete(c *gin.Context) {
	requesterID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	chatID, err := parseIDParam(c, "chatId")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	if err := h.chatService.DeleteMessage(requesterID, chatID); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// Clear 清空某用户的全部聊天历史。对空历史重复调用返回 deleted=0。
func (h *ChatHandler) Clear(c *gin.Context) {
	requesterID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	userID, err := parseIDParam(c, "userId")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	deleted, err := h.chatService.ClearHistory(requesterID, userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "cleared",
		"deleted": deleted,
	})
}

// writeError 把业务层哨兵错误映射为对应的 HTTP 状态码。
func (h *ChatHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyMessage), errors.Is(err, service.ErrInvalidSender):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrChatNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// parseIDParam 解析路径中的数值 ID 参数。
func parseIDParam(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
