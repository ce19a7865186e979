package controllers

import (
	"github.com/gin-gonic/gin"

	"house-rent-service/internal/domain/services"
	"house-rent-service/internal/domain/services/container"
	"house-rent-service/internal/error/response"
)

// InterfaceTenantController 定义租户控制器接口
type InterfaceTenantController interface {
	GetTenants()
	GetTenant()
	CreateTenant()
	UpdateTenant()
	DeleteTenant()
	GetTenantBalance()
}

// TenantController 处理租户相关的请求
type TenantController struct {
	BaseController
}

// NewTenantController 创建一个新的租户控制器
func NewTenantController(ctx *gin.Context, container *container.ServiceContainer) *TenantController {
	return &TenantController{BaseController{Ctx: ctx, Container: container}}
}

// HandleTenantFunc 返回一个处理租户请求的Gin处理函数
func HandleTenantFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewTenantController(ctx, container)

		switch method {
		case "getTenants":
			controller.GetTenants()
		case "getTenant":
			controller.GetTenant()
		case "createTenant":
			controller.CreateTenant()
		case "updateTenant":
			controller.UpdateTenant()
		case "deleteTenant":
			controller.DeleteTenant()
		case "getTenantBalance":
			controller.GetTenantBalance()
		default:
			invalidMethod(ctx)
		}
	}
}

func (c *TenantController) service() services.InterfaceTenantService {
	return c.Container.GetService("tenant").(services.InterfaceTenantService)
}

// 1 GetTenants 获取租户列表
func (c *TenantController) GetTenants() {
	var filter services.TenantFilter
	if !c.bindQuery(&filter) {
		return
	}
	tenants, total, err := c.service().ListTenants(c.Ctx.Request.Context(), c.ownerID(), filter)
	if err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	c.page(tenants, total, filter.PaginationQuery)
}

// 2 GetTenant 获取租户详情
func (c *TenantController) GetTenant() {
	id, ok := c.pathID("id")
	if !ok {
		return
	}
	tenant, err := c.service().GetTenant(c.Ctx.Request.Context(), c.ownerID(), id)
	if err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, tenant)
}

// 3 CreateTenant 创建租户，可同时分配房屋
func (c *TenantController) CreateTenant() {
	var req services.TenantRequest
	if !c.bindJSON(&req) {
		return
	}
	tenant, err := c.service().CreateTenant(c.Ctx.Request.Context(), c.ownerID(), req)
	if err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, tenant)
}

// 4 UpdateTenant 更新租户，包括换房、退租与重新激活
func (c *TenantController) UpdateTenant() {
	id, ok := c.pathID("id")
	if !ok {
		return
	}
	var req services.TenantUpdate
	if !c.bindJSON(&req) {
		return
	}
	tenant, err := c.service().UpdateTenant(c.Ctx.Request.Context(), c.ownerID(), id, req)
	if err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, tenant)
}

// 5 DeleteTenant 删除租户
func (c *TenantController) DeleteTenant() {
	id, ok := c.pathID("id")
	if !ok {
		return
	}
	if err := c.service().DeleteTenant(c.Ctx.Request.Context(), c.ownerID(), id); err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, nil)
}

// 6 GetTenantBalance 获取租户余额
func (c *TenantController) GetTenantBalance() {
	id, ok := c.pathID("id")
	if !ok {
		return
	}
	ledger := c.Container.GetService("ledger").(services.InterfaceLedgerService)
	balance, err := ledger.TenantBalance(c.Ctx.Request.Context(), c.ownerID(), id)
	if err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, balance)
}
