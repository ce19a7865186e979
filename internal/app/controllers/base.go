package controllers

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"house-rent-service/internal/app/middleware"
	"house-rent-service/internal/domain/models"
	"house-rent-service/internal/domain/services/container"
	"house-rent-service/internal/error/code"
	"house-rent-service/internal/error/response"
)

// BaseController 控制器公共字段与辅助方法
type BaseController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// ownerID 当前登录账号，所有数据按账号隔离
func (c *BaseController) ownerID() uint {
	return middleware.GetUserID(c.Ctx)
}

// pathID 解析路径中的ID参数，失败时直接写入错误响应
func (c *BaseController) pathID(name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.ParamError(c.Ctx, "无效的ID: "+c.Ctx.Param(name))
		return 0, false
	}
	return uint(id), true
}

// bindJSON 绑定请求体，失败时直接写入错误响应
func (c *BaseController) bindJSON(dst interface{}) bool {
	if err := c.Ctx.ShouldBindJSON(dst); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return false
	}
	return true
}

// bindOptionalJSON 同 bindJSON，但允许空请求体
func (c *BaseController) bindOptionalJSON(dst interface{}) bool {
	if err := c.Ctx.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return false
	}
	return true
}

// bindQuery 绑定查询参数，失败时直接写入错误响应
func (c *BaseController) bindQuery(dst interface{}) bool {
	if err := c.Ctx.ShouldBindQuery(dst); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的查询参数: "+err.Error(), nil)
		return false
	}
	return true
}

// page 分页列表响应
func (c *BaseController) page(list interface{}, total int64, q models.PaginationQuery) {
	q.Normalize()
	response.Success(c.Ctx, gin.H{
		"list":       list,
		"pagination": models.NewPaginationResult(int(total), q.PageNum, q.PageSize),
	})
}

func invalidMethod(ctx *gin.Context) {
	response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
}
