package controllers

import (
	"github.com/gin-gonic/gin"

	"house-rent-service/internal/domain/services"
	"house-rent-service/internal/domain/services/container"
	"house-rent-service/internal/error/response"
)

// InterfaceJWTController 定义认证控制器接口
type InterfaceJWTController interface {
	Login()
	Register()
}

// JWTController 处理身份验证请求
type JWTController struct {
	BaseController
}

// NewJWTController 创建一个新的认证控制器
func NewJWTController(ctx *gin.Context, container *container.ServiceContainer) *JWTController {
	return &JWTController{BaseController{Ctx: ctx, Container: container}}
}

// LoginRequest 表示登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required" example:"admin"`
	Password string `json:"password" binding:"required" example:"admin123"`
}

// HandleJWTFunc 返回一个处理JWT认证请求的Gin处理函数
func HandleJWTFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewJWTController(ctx, container)

		switch method {
		case "login":
			controller.Login()
		case "register":
			controller.Register()
		default:
			invalidMethod(ctx)
		}
	}
}

// Login 处理用户登录
func (c *JWTController) Login() {
	var req LoginRequest
	if !c.bindJSON(&req) {
		return
	}

	jwtService := c.Container.GetService("jwt").(services.InterfaceJWTService)
	result, err := jwtService.Login(req.Username, req.Password)
	if err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, result)
}

// Register 注册房东账号并直接返回令牌
func (c *JWTController) Register() {
	var req services.RegisterRequest
	if !c.bindJSON(&req) {
		return
	}

	userService := c.Container.GetService("user").(services.InterfaceUserService)
	if _, err := userService.Register(req); err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}

	jwtService := c.Container.GetService("jwt").(services.InterfaceJWTService)
	result, err := jwtService.Login(req.Username, req.Password)
	if err != nil {
		response.FailWithError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, result)
}
