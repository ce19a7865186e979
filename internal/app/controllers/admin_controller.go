package controllers

import (
	"github.com/gin-gonic/gin"

	"house-rent-service/internal/app/middleware"
	"house-rent-service/internal/domain/services"
	"house-rent-service/internal/domain/services/container"
	"house-rent-service/internal/error/response"
)

// RecomputeRequest 重新计算入住状态，BuildingID 为0时处理全部楼栋
type RecomputeRequest struct {
	BuildingID uint `json:"building_id"`
}

// AdminController 管理员运维操作
type AdminController struct {
	BaseController
}

// NewAdminController 创建一个新的管理员控制器
func NewAdminController(ctx *gin.Context, container *container.ServiceContainer) *AdminController {
	return &AdminController{BaseController{Ctx: ctx, Container: container}}
}

// HandleAdminFunc 返回一个处理管理员请求的Gin处理函数
func HandleAdminFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewAdminController(ctx, container)

		switch method {
		case "recomputeOccupancy":
			controller.RecomputeOccupancy()
		default:
			invalidMethod(ctx)
		}
	}
}

// RecomputeOccupancy 修复入住标记与活跃租户不一致的房屋
func (c *AdminController) RecomputeOccupancy() {
	var req RecomputeRequest
	if !c.bindOptionalJSON(&req) {
		return
	}

	occupancy := c.Container.GetService("occupancy").(services.InterfaceOccupancyService)
	var (
		changed int
		err     error
	)
	if req.BuildingID != 0 {
		changed, err = occupancy.RecomputeBuilding(c.Ctx.Request.Context(), req.BuildingID)
	} else {
		changed, err = occupancy.RecomputeAll(c.Ctx.Request.Context())
	}
	if err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	// 管理员修复会影响所有账号的缓存响应
	middleware.PurgeCache()
	response.Success(c.Ctx, gin.H{"changed": changed})
}
