package container

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"house-rent-service/internal/domain/services"
	"house-rent-service/internal/infrastructure/config"
)

// Options 可替换的基础设施，为空时按配置创建
type Options struct {
	CacheStore        services.InterfaceCacheStore
	SMSSender         services.InterfaceSMSSender
	SyncNotifications bool
}

// ServiceContainer 管理所有服务的依赖注入
type ServiceContainer struct {
	db     *gorm.DB
	config *config.Config

	// 基础设施
	cacheStore services.InterfaceCacheStore
	smsSender  services.InterfaceSMSSender

	// 一致性引擎
	validatorService      services.InterfaceValidatorService
	occupancyCacheService services.InterfaceOccupancyCacheService
	occupancyService      services.InterfaceOccupancyService
	notificationService   services.InterfaceNotificationService
	dispatcher            *services.Dispatcher

	// 业务服务
	jwtService      services.InterfaceJWTService
	userService     services.InterfaceUserService
	buildingService services.InterfaceBuildingService
	houseService    services.InterfaceHouseService
	tenantService   services.InterfaceTenantService
	ledgerService   services.InterfaceLedgerService
	reminderService services.InterfaceReminderService

	mu sync.RWMutex
}

// NewServiceContainer 创建新的服务容器
func NewServiceContainer(db *gorm.DB, cfg *config.Config, opts Options) *ServiceContainer {
	if db == nil {
		panic("数据库连接为空")
	}

	if cfg == nil {
		panic("配置为空")
	}

	if opts.CacheStore == nil {
		opts.CacheStore = services.NewCacheStore(context.Background(), cfg)
	}
	if opts.SMSSender == nil {
		opts.SMSSender = services.NewSMSSender(cfg)
	}

	container := &ServiceContainer{
		db:         db,
		config:     cfg,
		cacheStore: opts.CacheStore,
		smsSender:  opts.SMSSender,
	}
	container.initializeServices(!opts.SyncNotifications)
	return container
}

// initializeServices 初始化所有服务
func (c *ServiceContainer) initializeServices(asyncNotifications bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 一致性引擎，处理器顺序：入住计算 -> 缓存失效 -> 通知
	c.validatorService = services.NewValidatorService()
	c.occupancyCacheService = services.NewOccupancyCacheService(c.db, c.cacheStore, c.config)
	c.occupancyService = services.NewOccupancyService(c.db, c.occupancyCacheService)
	c.notificationService = services.NewNotificationService(c.db, c.config, c.smsSender)
	c.dispatcher = services.NewDispatcher(
		&services.OccupancyHandler{Occupancy: c.occupancyService},
		&services.CacheInvalidationHandler{Cache: c.occupancyCacheService},
		&services.NotificationHandler{Notifier: c.notificationService, Async: asyncNotifications},
	)

	// 业务服务
	c.jwtService = services.NewJWTService(c.config, c.db)
	c.userService = services.NewUserService(c.db, c.config, c.validatorService)
	c.buildingService = services.NewBuildingService(c.db, c.config, c.validatorService, c.occupancyCacheService, c.dispatcher)
	c.houseService = services.NewHouseService(c.db, c.config, c.validatorService, c.dispatcher)
	c.tenantService = services.NewTenantService(c.db, c.config, c.validatorService, c.dispatcher)
	c.ledgerService = services.NewLedgerService(c.db, c.config, c.validatorService, c.occupancyCacheService, c.dispatcher)
	c.reminderService = services.NewReminderService(c.db, c.notificationService)
}

// GetService 获取指定名称的服务
func (c *ServiceContainer) GetService(name string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch name {
	case "config":
		return c.config
	case "db":
		return c.db
	case "cache_store":
		return c.cacheStore
	case "validator":
		return c.validatorService
	case "occupancy_cache":
		return c.occupancyCacheService
	case "occupancy":
		return c.occupancyService
	case "notification":
		return c.notificationService
	case "dispatcher":
		return c.dispatcher
	case "jwt":
		return c.jwtService
	case "user":
		return c.userService
	case "building":
		return c.buildingService
	case "house":
		return c.houseService
	case "tenant":
		return c.tenantService
	case "ledger":
		return c.ledgerService
	case "reminder":
		return c.reminderService
	default:
		return nil
	}
}

// GetDB 获取数据库连接
func (c *ServiceContainer) GetDB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// GetConfig 获取配置
func (c *ServiceContainer) GetConfig() *config.Config {
	return c.config
}

// Close 释放外部连接
func (c *ServiceContainer) Close() {
	if c.smsSender != nil {
		c.smsSender.Close()
	}
	if closer, ok := c.cacheStore.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}
