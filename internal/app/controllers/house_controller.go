package controllers

import (
	"github.com/gin-gonic/gin"

	"house-rent-service/internal/domain/services"
	"house-rent-service/internal/domain/services/container"
	"house-rent-service/internal/error/response"
)

// InterfaceHouseController 定义房屋控制器接口
type InterfaceHouseController interface {
	GetHouses()
	GetHouse()
	CreateHouse()
	UpdateHouse()
	DeleteHouse()
}

// HouseController 处理房屋相关的请求
type HouseController struct {
	BaseController
}

// NewHouseController 创建一个新的房屋控制器
func NewHouseController(ctx *gin.Context, container *container.ServiceContainer) *HouseController {
	return &HouseController{BaseController{Ctx: ctx, Container: container}}
}

// HandleHouseFunc 返回一个处理房屋请求的Gin处理函数
func HandleHouseFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewHouseController(ctx, container)

		switch method {
		case "getHouses":
			controller.GetHouses()
		case "getHouse":
			controller.GetHouse()
		case "createHouse":
			controller.CreateHouse()
		case "updateHouse":
			controller.UpdateHouse()
		case "deleteHouse":
			controller.DeleteHouse()
		default:
			invalidMethod(ctx)
		}
	}
}

func (c *HouseController) service() services.InterfaceHouseService {
	return c.Container.GetService("house").(services.InterfaceHouseService)
}

// 1 GetHouses 获取房屋列表，可按楼栋和入住状态过滤
func (c *HouseController) GetHouses() {
	var filter services.HouseFilter
	if !c.bindQuery(&filter) {
		return
	}
	houses, total, err := c.service().ListHouses(c.Ctx.Request.Context(), c.ownerID(), filter)
	if err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	c.page(houses, total, filter.PaginationQuery)
}

// 2 GetHouse 获取房屋详情
func (c *HouseController) GetHouse() {
	id, ok := c.pathID("id")
	if !ok {
		return
	}
	house, err := c.service().GetHouse(c.Ctx.Request.Context(), c.ownerID(), id)
	if err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, house)
}

// 3 CreateHouse 创建房屋
func (c *HouseController) CreateHouse() {
	var req services.HouseRequest
	if !c.bindJSON(&req) {
		return
	}
	house, err := c.service().CreateHouse(c.Ctx.Request.Context(), c.ownerID(), req)
	if err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, house)
}

// 4 UpdateHouse 更新房屋，入住状态由系统维护
func (c *HouseController) UpdateHouse() {
	id, ok := c.pathID("id")
	if !ok {
		return
	}
	var req services.HouseUpdate
	if !c.bindJSON(&req) {
		return
	}
	house, err := c.service().UpdateHouse(c.Ctx.Request.Context(), c.ownerID(), id, req)
	if err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, house)
}

// 5 DeleteHouse 删除房屋
func (c *HouseController) DeleteHouse() {
	id, ok := c.pathID("id")
	if !ok {
		return
	}
	if err := c.service().DeleteHouse(c.Ctx.Request.Context(), c.ownerID(), id); err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, nil)
}
