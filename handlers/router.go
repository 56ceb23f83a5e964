package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pdf-translator/middleware"
)

// NewRouter 创建带请求日志的 gin 引擎并注册上传、下载路由
func NewRouter(h *Handler, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))

	// 表单解析时内存中保留的上限，超出部分写入临时文件；请求体大小由 Upload 限制
	r.MaxMultipartMemory = h.cfg.Server.MaxUploadMB << 20

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	h.Register(r)
	return r
}
