package controllers

import (
	"github.com/gin-gonic/gin"

	"house-rent-service/internal/domain/services"
	"house-rent-service/internal/domain/services/container"
	"house-rent-service/internal/error/response"
)

// InterfaceRentChargeController 定义租金账单控制器接口
type InterfaceRentChargeController interface {
	GetRentCharges()
	GetRentCharge()
	CreateRentCharge()
	UpdateRentCharge()
	DeleteRentCharge()
	BulkCreateRentCharges()
}

// RentChargeController 处理租金账单相关的请求
type RentChargeController struct {
	BaseController
}

// NewRentChargeController 创建一个新的租金账单控制器
func NewRentChargeController(ctx *gin.Context, container *container.ServiceContainer) *RentChargeController {
	return &RentChargeController{BaseController{Ctx: ctx, Container: container}}
}

// HandleRentChargeFunc 返回一个处理租金账单请求的Gin处理函数
func HandleRentChargeFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewRentChargeController(ctx, container)

		switch method {
		case "getRentCharges":
			controller.GetRentCharges()
		case "getRentCharge":
			controller.GetRentCharge()
		case "createRentCharge":
			controller.CreateRentCharge()
		case "updateRentCharge":
			controller.UpdateRentCharge()
		case "deleteRentCharge":
			controller.DeleteRentCharge()
		case "bulkCreateRentCharges":
			controller.BulkCreateRentCharges()
		default:
			invalidMethod(ctx)
		}
	}
}

func (c *RentChargeController) service() services.InterfaceLedgerService {
	return c.Container.GetService("ledger").(services.InterfaceLedgerService)
}

// 1 GetRentCharges 获取账单列表，附带已付金额与余额
func (c *RentChargeController) GetRentCharges() {
	var filter services.RentChargeFilter
	if !c.bindQuery(&filter) {
		return
	}
	charges, total, err := c.service().ListRentCharges(c.Ctx.Request.Context(), c.ownerID(), filter)
	if err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	c.page(charges, total, filter.PaginationQuery)
}

// 2 GetRentCharge 获取账单详情
func (c *RentChargeController) GetRentCharge() {
	id, ok := c.pathID("id")
	if !ok {
		return
	}
	rc, err := c.service().GetRentCharge(c.Ctx.Request.Context(), c.ownerID(), id)
	if err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, rc)
}

// 3 CreateRentCharge 创建月度账单
func (c *RentChargeController) CreateRentCharge() {
	var req services.RentChargeRequest
	if !c.bindJSON(&req) {
		return
	}
	rc, err := c.service().CreateRentCharge(c.Ctx.Request.Context(), c.ownerID(), req)
	if err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, rc)
}

// 4 UpdateRentCharge 更新账单
func (c *RentChargeController) UpdateRentCharge() {
	id, ok := c.pathID("id")
	if !ok {
		return
	}
	var req services.RentChargeUpdate
	if !c.bindJSON(&req) {
		return
	}
	rc, err := c.service().UpdateRentCharge(c.Ctx.Request.Context(), c.ownerID(), id, req)
	if err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, rc)
}

// 5 DeleteRentCharge 删除账单
func (c *RentChargeController) DeleteRentCharge() {
	id, ok := c.pathID("id")
	if !ok {
		return
	}
	if err := c.service().DeleteRentCharge(c.Ctx.Request.Context(), c.ownerID(), id); err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, nil)
}

// 6 BulkCreateRentCharges 批量生成账单
func (c *RentChargeController) BulkCreateRentCharges() {
	var req services.BulkRentChargeRequest
	if !c.bindJSON(&req) {
		return
	}
	result, err := c.service().BulkCreateRentCharges(c.Ctx.Request.Context(), c.ownerID(), req)
	if err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, result)
}
