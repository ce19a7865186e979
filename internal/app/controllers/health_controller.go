package controllers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"house-rent-service/internal/app/middleware"
	"house-rent-service/internal/domain/services"
	"house-rent-service/internal/domain/services/container"
	"house-rent-service/internal/error/code"
	"house-rent-service/internal/error/response"
	"house-rent-service/internal/infrastructure/database"
)

// HealthCheckController 健康检查控制器
type HealthCheckController struct {
	BaseController
}

// NewHealthCheckController 创建健康检查控制器实例
func NewHealthCheckController(ctx *gin.Context, container *container.ServiceContainer) *HealthCheckController {
	return &HealthCheckController{BaseController{Ctx: ctx, Container: container}}
}

// HandleHealthFunc 返回一个处理健康检查请求的Gin处理函数
func HandleHealthFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewHealthCheckController(ctx, container)

		switch method {
		case "ping":
			controller.Ping()
		case "status":
			controller.Status()
		case "cacheStats":
			controller.CacheStats()
		default:
			invalidMethod(ctx)
		}
	}
}

// Ping 健康检查端点
func (h *HealthCheckController) Ping() {
	response.Success(h.Ctx, gin.H{
		"status":  "healthy",
		"message": "pong",
	})
}

// Status 检查数据库与缓存连接，缓存不可用只降级不报错
func (h *HealthCheckController) Status() {
	ctx, cancel := context.WithTimeout(h.Ctx.Request.Context(), 3*time.Second)
	defer cancel()

	status := gin.H{"database": "up", "cache": "up"}
	if err := database.Ping(h.Container.GetDB()); err != nil {
		status["database"] = "down"
		response.FailWithMessage(h.Ctx, code.ErrDatabase, "数据库不可用: "+err.Error(), status)
		return
	}

	store := h.Container.GetService("cache_store").(services.InterfaceCacheStore)
	if err := store.Ping(ctx); err != nil {
		status["cache"] = "degraded"
	}
	if _, ok := store.(*services.MemoryCacheStore); ok {
		status["cache_backend"] = "memory"
	} else {
		status["cache_backend"] = "redis"
	}
	response.Success(h.Ctx, status)
}

// CacheStats 响应缓存统计
func (h *HealthCheckController) CacheStats() {
	response.Success(h.Ctx, middleware.CacheStats())
}
