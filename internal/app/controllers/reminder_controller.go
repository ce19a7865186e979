package controllers

import (
	"time"

	"github.com/gin-gonic/gin"

	"house-rent-service/internal/domain/services"
	"house-rent-service/internal/domain/services/container"
	"house-rent-service/internal/error/response"
)

const (
	reminderTypeDue     = "due"
	reminderTypeOverdue = "overdue"
)

// SendRemindersRequest 手动触发提醒，Date 为空时使用当天
type SendRemindersRequest struct {
	Type string `json:"type" binding:"omitempty,oneof=due overdue" example:"due"`
	Date string `json:"date" example:"2024-01-02"`
}

// ReminderController 处理提醒任务请求
type ReminderController struct {
	BaseController
}

// NewReminderController 创建一个新的提醒控制器
func NewReminderController(ctx *gin.Context, container *container.ServiceContainer) *ReminderController {
	return &ReminderController{BaseController{Ctx: ctx, Container: container}}
}

// HandleReminderFunc 返回一个处理提醒请求的Gin处理函数
func HandleReminderFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewReminderController(ctx, container)

		switch method {
		case "sendReminders":
			controller.SendReminders()
		default:
			invalidMethod(ctx)
		}
	}
}

// SendReminders 为当前账号的租户发送到期提醒或逾期通知
func (c *ReminderController) SendReminders() {
	var req SendRemindersRequest
	if !c.bindJSON(&req) {
		return
	}

	today := time.Now()
	if req.Date != "" {
		d, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
		if err != nil {
			response.ParamError(c.Ctx, "日期格式应为 YYYY-MM-DD")
			return
		}
		today = d
	}

	reminders := c.Container.GetService("reminder").(services.InterfaceReminderService)
	var (
		result *services.ReminderResult
		err    error
	)
	if req.Type == reminderTypeOverdue {
		result, err = reminders.SendOverdueNotices(c.Ctx.Request.Context(), c.ownerID(), today)
	} else {
		result, err = reminders.SendDailyRentReminders(c.Ctx.Request.Context(), c.ownerID(), today)
	}
	if err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, result)
}
