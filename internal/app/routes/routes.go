package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"house-rent-service/internal/app/controllers"
	"house-rent-service/internal/app/middleware"
	"house-rent-service/internal/domain/services"
	"house-rent-service/internal/domain/services/container"
)

// SetupRouter 初始化并返回配置好的路由
func SetupRouter(serviceContainer *container.ServiceContainer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())

	// 添加 CORS 中间件
	r.Use(cors.New(corsConfig(serviceContainer.GetConfig().CORSAllowOrigins)))

	// 初始化认证中间件
	middleware.InitAuthMiddleware(serviceContainer.GetService("jwt").(services.InterfaceJWTService))

	registerRoutes(r, serviceContainer)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader, "X-Cache"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

// registerRoutes 配置所有API路由
func registerRoutes(r *gin.Engine, container *container.ServiceContainer) {
	// API 路由根路径
	api := r.Group("/api")
	// 添加IP限流中间件 - 每秒允许20个请求，最多突发40个请求
	api.Use(middleware.IPRateLimiter(20, 40))

	registerPublicRoutes(api, container)
	registerAuthenticatedRoutes(api, container)
	registerAdminRoutes(api, container)
}

// registerPublicRoutes 注册公共路由
func registerPublicRoutes(api *gin.RouterGroup, container *container.ServiceContainer) {
	// 健康检查路由
	api.GET("/ping", controllers.HandleHealthFunc(container, "ping"))
	api.GET("/health", controllers.HandleHealthFunc(container, "ping"))

	healthGroup := api.Group("/health")
	healthGroup.GET("/status", controllers.HandleHealthFunc(container, "status"))
	healthGroup.GET("/cache-stats", controllers.HandleHealthFunc(container, "cacheStats"))

	// 认证路由，按路径单独限流防止暴力破解
	authGroup := api.Group("/auth")
	authGroup.Use(middleware.PathRateLimiter(2, 5))
	authGroup.POST("/login", controllers.HandleJWTFunc(container, "login"))
	authGroup.POST("/register", controllers.HandleJWTFunc(container, "register"))
}

// registerAuthenticatedRoutes 注册房东账号可访问的路由，数据按账号隔离
func registerAuthenticatedRoutes(api *gin.RouterGroup, container *container.ServiceContainer) {
	auth := api.Group("")
	auth.Use(middleware.AuthenticateUser())
	// 写操作成功后清除该账号的响应缓存
	auth.Use(middleware.PurgeOnWrite())

	listCache := middleware.Cache(middleware.CacheConfig{Expiration: 30 * time.Second})
	detailCache := middleware.Cache(middleware.CacheConfig{Expiration: 1 * time.Minute})

	// 楼栋路由
	buildingGroup := auth.Group("/buildings")
	buildingGroup.GET("", listCache, controllers.HandleBuildingFunc(container, "getBuildings"))
	buildingGroup.GET("/dashboard", listCache, controllers.HandleBuildingFunc(container, "getDashboard"))
	buildingGroup.GET("/:id", detailCache, controllers.HandleBuildingFunc(container, "getBuilding"))
	buildingGroup.POST("", controllers.HandleBuildingFunc(container, "createBuilding"))
	buildingGroup.PUT("/:id", controllers.HandleBuildingFunc(container, "updateBuilding"))
	buildingGroup.DELETE("/:id", controllers.HandleBuildingFunc(container, "deleteBuilding"))
	buildingGroup.GET("/:id/houses", listCache, controllers.HandleBuildingFunc(container, "getBuildingHouses"))
	// 入住统计走计数缓存，不再叠加响应缓存
	buildingGroup.GET("/:id/occupancy", controllers.HandleBuildingFunc(container, "getOccupancy"))

	// 房屋路由
	houseGroup := auth.Group("/houses")
	houseGroup.GET("", listCache, controllers.HandleHouseFunc(container, "getHouses"))
	houseGroup.GET("/:id", detailCache, controllers.HandleHouseFunc(container, "getHouse"))
	houseGroup.POST("", controllers.HandleHouseFunc(container, "createHouse"))
	houseGroup.PUT("/:id", controllers.HandleHouseFunc(container, "updateHouse"))
	houseGroup.DELETE("/:id", controllers.HandleHouseFunc(container, "deleteHouse"))

	// 租户路由
	tenantGroup := auth.Group("/tenants")
	tenantGroup.GET("", listCache, controllers.HandleTenantFunc(container, "getTenants"))
	tenantGroup.GET("/:id", detailCache, controllers.HandleTenantFunc(container, "getTenant"))
	tenantGroup.POST("", controllers.HandleTenantFunc(container, "createTenant"))
	tenantGroup.PUT("/:id", controllers.HandleTenantFunc(container, "updateTenant"))
	tenantGroup.DELETE("/:id", controllers.HandleTenantFunc(container, "deleteTenant"))
	tenantGroup.GET("/:id/balance", controllers.HandleTenantFunc(container, "getTenantBalance"))

	// 租金账单路由
	rentChargeGroup := auth.Group("/rent-charges")
	rentChargeGroup.GET("", listCache, controllers.HandleRentChargeFunc(container, "getRentCharges"))
	rentChargeGroup.GET("/:id", detailCache, controllers.HandleRentChargeFunc(container, "getRentCharge"))
	rentChargeGroup.POST("", controllers.HandleRentChargeFunc(container, "createRentCharge"))
	rentChargeGroup.POST("/bulk", controllers.HandleRentChargeFunc(container, "bulkCreateRentCharges"))
	rentChargeGroup.PUT("/:id", controllers.HandleRentChargeFunc(container, "updateRentCharge"))
	rentChargeGroup.DELETE("/:id", controllers.HandleRentChargeFunc(container, "deleteRentCharge"))

	// 付款路由
	paymentGroup := auth.Group("/payments")
	paymentGroup.GET("", listCache, controllers.HandlePaymentFunc(container, "getPayments"))
	paymentGroup.GET("/:id", detailCache, controllers.HandlePaymentFunc(container, "getPayment"))
	paymentGroup.POST("", controllers.HandlePaymentFunc(container, "createPayment"))
	paymentGroup.DELETE("/:id", controllers.HandlePaymentFunc(container, "deletePayment"))

	// 提醒路由
	reminderGroup := auth.Group("/reminders")
	reminderGroup.Use(middleware.PathRateLimiter(1, 3))
	reminderGroup.POST("/send", controllers.HandleReminderFunc(container, "sendReminders"))
}

// registerAdminRoutes 注册系统管理员路由
func registerAdminRoutes(api *gin.RouterGroup, container *container.ServiceContainer) {
	admin := api.Group("/admin")
	admin.Use(middleware.AuthenticateSystemAdmin())

	admin.POST("/occupancy/recompute", controllers.HandleAdminFunc(container, "recomputeOccupancy"))
}
