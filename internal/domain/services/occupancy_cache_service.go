package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"house-rent-service/internal/domain/models"
	"house-rent-service/internal/infrastructure/config"
	"house-rent-service/pkg/logger"
)

// InterfaceOccupancyCacheService 楼栋入住统计的缓存读取与失效
type InterfaceOccupancyCacheService interface {
	GetOccupiedCount(ctx context.Context, building *models.Building) (int, error)
	GetVacantCount(ctx context.Context, building *models.Building) (int, error)
	GetTenantCount(ctx context.Context, buildingID uint) (int, error)
	Invalidate(ctx context.Context, buildingID uint) error
	GetTenantBalance(ctx context.Context, tenantID uint, compute func() (decimal.Decimal, error)) (decimal.Decimal, error)
	InvalidateTenantBalance(ctx context.Context, tenantID uint) error
}

// OccupancyCacheService 在缓存存储之上提供楼栋统计数据
type OccupancyCacheService struct {
	DB    *gorm.DB
	Store InterfaceCacheStore
	TTL   time.Duration
}

// NewOccupancyCacheService 创建楼栋统计缓存服务
func NewOccupancyCacheService(db *gorm.DB, store InterfaceCacheStore, cfg *config.Config) InterfaceOccupancyCacheService {
	ttl := 15 * time.Minute
	if cfg != nil && cfg.CacheTTL > 0 {
		ttl = cfg.CacheTTL
	}
	return &OccupancyCacheService{DB: db, Store: store, TTL: ttl}
}

func cacheLog() *logrus.Entry {
	return logger.WithFields(logrus.Fields{"component": "cache"})
}

// OccupiedKey 楼栋已入住数缓存键
func OccupiedKey(buildingID uint) string { return fmt.Sprintf("%d:occupied", buildingID) }

// VacantKey 楼栋空置数缓存键
func VacantKey(buildingID uint) string { return fmt.Sprintf("%d:vacant", buildingID) }

// TenantCountKey 楼栋活跃租户数缓存键
func TenantCountKey(buildingID uint) string { return fmt.Sprintf("%d:tenant_count", buildingID) }

// TenantBalanceKey 租户余额快照缓存键
func TenantBalanceKey(tenantID uint) string { return fmt.Sprintf("tenant:%d:balance", tenantID) }

// cachedInt 读取缓存，未命中时计算并回填；缓存异常时直接计算
func (s *OccupancyCacheService) cachedInt(ctx context.Context, key string, compute func() (int, error)) (int, error) {
	var v int
	err := s.Store.Get(ctx, key, &v)
	if err == nil {
		return v, nil
	}
	storeOK := errors.Is(err, ErrCacheMiss)
	if !storeOK {
		cacheLog().WithError(err).WithField("key", key).Warn("缓存读取失败，直接计算")
	}

	v, err = compute()
	if err != nil {
		return 0, err
	}
	if storeOK {
		if err := s.Store.Set(ctx, key, v, s.TTL); err != nil {
			cacheLog().WithError(err).WithField("key", key).Warn("缓存写入失败")
		}
	}
	return v, nil
}

// 1 GetOccupiedCount 获取楼栋已入住房屋数
func (s *OccupancyCacheService) GetOccupiedCount(ctx context.Context, building *models.Building) (int, error) {
	return s.cachedInt(ctx, OccupiedKey(building.ID), func() (int, error) {
		var n int64
		err := s.DB.WithContext(ctx).Model(&models.House{}).
			Where("building_id = ? AND occupied = ?", building.ID, true).
			Count(&n).Error
		return int(n), err
	})
}

// 2 GetVacantCount 获取楼栋空置数，等于容量减去已入住数
func (s *OccupancyCacheService) GetVacantCount(ctx context.Context, building *models.Building) (int, error) {
	return s.cachedInt(ctx, VacantKey(building.ID), func() (int, error) {
		occupied, err := s.GetOccupiedCount(ctx, building)
		if err != nil {
			return 0, err
		}
		return building.Capacity - occupied, nil
	})
}

// 3 GetTenantCount 获取楼栋活跃租户数
func (s *OccupancyCacheService) GetTenantCount(ctx context.Context, buildingID uint) (int, error) {
	return s.cachedInt(ctx, TenantCountKey(buildingID), func() (int, error) {
		var n int64
		err := s.DB.WithContext(ctx).Model(&models.Tenant{}).
			Joins("JOIN houses ON houses.id = tenants.house_id").
			Where("houses.building_id = ? AND tenants.is_active = ?", buildingID, true).
			Count(&n).Error
		return int(n), err
	})
}

// 4 Invalidate 删除楼栋全部统计缓存
func (s *OccupancyCacheService) Invalidate(ctx context.Context, buildingID uint) error {
	return s.Store.Delete(ctx, OccupiedKey(buildingID), VacantKey(buildingID), TenantCountKey(buildingID))
}

// 5 GetTenantBalance 获取租户余额快照
func (s *OccupancyCacheService) GetTenantBalance(ctx context.Context, tenantID uint, compute func() (decimal.Decimal, error)) (decimal.Decimal, error) {
	key := TenantBalanceKey(tenantID)
	var v decimal.Decimal
	err := s.Store.Get(ctx, key, &v)
	if err == nil {
		return v, nil
	}
	storeOK := errors.Is(err, ErrCacheMiss)
	if !storeOK {
		cacheLog().WithError(err).WithField("key", key).Warn("缓存读取失败，直接计算")
	}

	v, err = compute()
	if err != nil {
		return decimal.Zero, err
	}
	if storeOK {
		if err := s.Store.Set(ctx, key, v, s.TTL); err != nil {
			cacheLog().WithError(err).WithField("key", key).Warn("缓存写入失败")
		}
	}
	return v, nil
}

// 6 InvalidateTenantBalance 删除租户余额快照
func (s *OccupancyCacheService) InvalidateTenantBalance(ctx context.Context, tenantID uint) error {
	return s.Store.Delete(ctx, TenantBalanceKey(tenantID))
}

// FillCounts 填充楼栋的派生统计字段
func FillCounts(ctx context.Context, cache InterfaceOccupancyCacheService, building *models.Building) error {
	occupied, err := cache.GetOccupiedCount(ctx, building)
	if err != nil {
		return err
	}
	vacant, err := cache.GetVacantCount(ctx, building)
	if err != nil {
		return err
	}
	building.OccupiedCount = occupied
	building.VacantCount = vacant
	return nil
}
