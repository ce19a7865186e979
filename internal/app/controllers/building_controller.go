package controllers

import (
	"github.com/gin-gonic/gin"

	"house-rent-service/internal/domain/services"
	"house-rent-service/internal/domain/services/container"
	"house-rent-service/internal/error/response"
)

// InterfaceBuildingController 定义楼栋控制器接口
type InterfaceBuildingController interface {
	GetBuildings()
	GetBuilding()
	CreateBuilding()
	UpdateBuilding()
	DeleteBuilding()
	GetBuildingHouses()
	GetOccupancy()
	GetDashboard()
}

// BuildingController 处理楼栋相关的请求
type BuildingController struct {
	BaseController
}

// NewBuildingController 创建一个新的楼栋控制器
func NewBuildingController(ctx *gin.Context, container *container.ServiceContainer) *BuildingController {
	return &BuildingController{BaseController{Ctx: ctx, Container: container}}
}

// HandleBuildingFunc 返回一个处理楼栋请求的Gin处理函数
func HandleBuildingFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewBuildingController(ctx, container)

		switch method {
		case "getBuildings":
			controller.GetBuildings()
		case "getBuilding":
			controller.GetBuilding()
		case "createBuilding":
			controller.CreateBuilding()
		case "updateBuilding":
			controller.UpdateBuilding()
		case "deleteBuilding":
			controller.DeleteBuilding()
		case "getBuildingHouses":
			controller.GetBuildingHouses()
		case "getOccupancy":
			controller.GetOccupancy()
		case "getDashboard":
			controller.GetDashboard()
		default:
			invalidMethod(ctx)
		}
	}
}

func (c *BuildingController) service() services.InterfaceBuildingService {
	return c.Container.GetService("building").(services.InterfaceBuildingService)
}

// 1 GetBuildings 获取楼栋列表，支持按名称搜索
func (c *BuildingController) GetBuildings() {
	var filter services.BuildingFilter
	if !c.bindQuery(&filter) {
		return
	}
	buildings, total, err := c.service().ListBuildings(c.Ctx.Request.Context(), c.ownerID(), filter)
	if err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	c.page(buildings, total, filter.PaginationQuery)
}

// 2 GetBuilding 获取楼栋详情，包含入住与空置数量
func (c *BuildingController) GetBuilding() {
	id, ok := c.pathID("id")
	if !ok {
		return
	}
	building, err := c.service().GetBuilding(c.Ctx.Request.Context(), c.ownerID(), id)
	if err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, building)
}

// 3 CreateBuilding 创建楼栋
func (c *BuildingController) CreateBuilding() {
	var req services.BuildingRequest
	if !c.bindJSON(&req) {
		return
	}
	building, err := c.service().CreateBuilding(c.Ctx.Request.Context(), c.ownerID(), req)
	if err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, building)
}

// 4 UpdateBuilding 更新楼栋
func (c *BuildingController) UpdateBuilding() {
	id, ok := c.pathID("id")
	if !ok {
		return
	}
	var req services.BuildingUpdate
	if !c.bindJSON(&req) {
		return
	}
	building, err := c.service().UpdateBuilding(c.Ctx.Request.Context(), c.ownerID(), id, req)
	if err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, building)
}

// 5 DeleteBuilding 删除楼栋，仍有入住房屋时拒绝
func (c *BuildingController) DeleteBuilding() {
	id, ok := c.pathID("id")
	if !ok {
		return
	}
	if err := c.service().DeleteBuilding(c.Ctx.Request.Context(), c.ownerID(), id); err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, nil)
}

// 6 GetBuildingHouses 获取楼栋下的房屋
func (c *BuildingController) GetBuildingHouses() {
	id, ok := c.pathID("id")
	if !ok {
		return
	}
	var filter services.HouseFilter
	if !c.bindQuery(&filter) {
		return
	}
	filter.BuildingID = id
	if _, err := c.service().GetBuilding(c.Ctx.Request.Context(), c.ownerID(), id); err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	houseService := c.Container.GetService("house").(services.InterfaceHouseService)
	houses, total, err := houseService.ListHouses(c.Ctx.Request.Context(), c.ownerID(), filter)
	if err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	c.page(houses, total, filter.PaginationQuery)
}

// 7 GetOccupancy 获取楼栋入住统计
func (c *BuildingController) GetOccupancy() {
	id, ok := c.pathID("id")
	if !ok {
		return
	}
	occupancy, err := c.service().GetOccupancy(c.Ctx.Request.Context(), c.ownerID(), id)
	if err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, occupancy)
}

// 8 GetDashboard 房东概览
func (c *BuildingController) GetDashboard() {
	dashboard, err := c.service().GetDashboard(c.Ctx.Request.Context(), c.ownerID())
	if err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, dashboard)
}
