package handler

import (
	"errors"
	"net/http"

	"aira-go/pkg/ai"

	"github.com/gin-gonic/gin"
)

// DebugHandler 提供运维诊断接口。探活接口不鉴权，方便部署时直接 curl 验证配置。
type DebugHandler struct {
	aiClient ai.Client
}

// NewDebugHandler 创建一个新的 DebugHandler 实例。
func NewDebugHandler(aiClient ai.Client) *DebugHandler {
	return &DebugHandler{aiClient: aiClient}
}

// Health 处理存活探测请求。
func (h *DebugHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "aira backend",
	})
}

// Probe 向已配置的 AI 服务发送一次最小请求，返回上游状态码和响应预览。
func (h *DebugHandler) Probe(c *gin.Context) {
	result, err := h.aiClient.Probe(c.Request.Context())
	if err != nil {
		if errors.Is(err, ai.ErrNotConfigured) {
			c.JSON(http.StatusBadRequest, gin.H{
				"ok":     false,
				"reason": err.Error(),
			})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{
			"ok":    false,
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":           true,
		"provider":     result.Provider,
		"model":        result.Model,
		"status_code":  result.StatusCode,
		"body_preview": result.BodyPreview,
	})
}
