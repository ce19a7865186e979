package controllers

import (
	"github.com/gin-gonic/gin"

	"house-rent-service/internal/domain/services"
	"house-rent-service/internal/domain/services/container"
	"house-rent-service/internal/error/response"
)

// InterfacePaymentController 定义付款控制器接口
type InterfacePaymentController interface {
	GetPayments()
	GetPayment()
	CreatePayment()
	DeletePayment()
}

// PaymentController 处理付款相关的请求
type PaymentController struct {
	BaseController
}

// NewPaymentController 创建一个新的付款控制器
func NewPaymentController(ctx *gin.Context, container *container.ServiceContainer) *PaymentController {
	return &PaymentController{BaseController{Ctx: ctx, Container: container}}
}

// HandlePaymentFunc 返回一个处理付款请求的Gin处理函数
func HandlePaymentFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewPaymentController(ctx, container)

		switch method {
		case "getPayments":
			controller.GetPayments()
		case "getPayment":
			controller.GetPayment()
		case "createPayment":
			controller.CreatePayment()
		case "deletePayment":
			controller.DeletePayment()
		default:
			invalidMethod(ctx)
		}
	}
}

func (c *PaymentController) service() services.InterfaceLedgerService {
	return c.Container.GetService("ledger").(services.InterfaceLedgerService)
}

// 1 GetPayments 获取付款列表
func (c *PaymentController) GetPayments() {
	var filter services.PaymentFilter
	if !c.bindQuery(&filter) {
		return
	}
	payments, total, err := c.service().ListPayments(c.Ctx.Request.Context(), c.ownerID(), filter)
	if err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	c.page(payments, total, filter.PaginationQuery)
}

// 2 GetPayment 获取付款详情
func (c *PaymentController) GetPayment() {
	id, ok := c.pathID("id")
	if !ok {
		return
	}
	payment, err := c.service().GetPayment(c.Ctx.Request.Context(), c.ownerID(), id)
	if err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, payment)
}

// 3 CreatePayment 登记付款
func (c *PaymentController) CreatePayment() {
	var req services.PaymentRequest
	if !c.bindJSON(&req) {
		return
	}
	payment, err := c.service().RecordPayment(c.Ctx.Request.Context(), c.ownerID(), req)
	if err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, payment)
}

// 4 DeletePayment 删除付款
func (c *PaymentController) DeletePayment() {
	id, ok := c.pathID("id")
	if !ok {
		return
	}
	if err := c.service().DeletePayment(c.Ctx.Request.Context(), c.ownerID(), id); err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, nil)
}
