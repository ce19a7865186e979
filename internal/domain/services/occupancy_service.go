package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"house-rent-service/internal/domain/models"
	"house-rent-service/pkg/logger"
)

// InterfaceOccupancyService 维护 House.occupied 与活跃租户的一致性
type InterfaceOccupancyService interface {
	RecomputeOccupancy(ctx context.Context, houseID uint) (bool, error)
	RecomputeBuilding(ctx context.Context, buildingID uint) (int, error)
	RecomputeAll(ctx context.Context) (int, error)
}

// OccupancyService 入住状态计算引擎
type OccupancyService struct {
	DB    *gorm.DB
	Cache InterfaceOccupancyCacheService
}

// NewOccupancyService 创建入住状态计算引擎
func NewOccupancyService(db *gorm.DB, cache InterfaceOccupancyCacheService) InterfaceOccupancyService {
	return &OccupancyService{DB: db, Cache: cache}
}

// 1 RecomputeOccupancy 根据活跃租户重新计算房屋入住状态，返回是否发生变化
func (s *OccupancyService) RecomputeOccupancy(ctx context.Context, houseID uint) (bool, error) {
	db := s.DB.WithContext(ctx)

	var house models.House
	if err := db.Select("id", "building_id", "occupied").First(&house, houseID).Error; err != nil {
		// 房屋已删除，无需处理
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	var active int64
	if err := db.Model(&models.Tenant{}).
		Where("house_id = ? AND is_active = ?", houseID, true).
		Count(&active).Error; err != nil {
		return false, err
	}

	occupied := active > 0
	if occupied == house.Occupied {
		return false, nil
	}

	// 单列更新，不触发钩子
	if err := db.Model(&models.House{}).Where("id = ?", houseID).UpdateColumn("occupied", occupied).Error; err != nil {
		return false, err
	}

	logger.WithFields(logrus.Fields{
		"component": "occupancy",
		"house_id":  houseID,
		"occupied":  occupied,
	}).Info("房屋入住状态已更新")

	s.invalidateBuilding(ctx, house.BuildingID)
	return true, nil
}

// invalidateBuilding 楼栋已被删除时静默跳过
func (s *OccupancyService) invalidateBuilding(ctx context.Context, buildingID uint) {
	if s.Cache == nil {
		return
	}
	var n int64
	if err := s.DB.WithContext(ctx).Model(&models.Building{}).Where("id = ?", buildingID).Count(&n).Error; err != nil || n == 0 {
		return
	}
	if err := s.Cache.Invalidate(ctx, buildingID); err != nil {
		cacheLog().WithError(err).WithField("building_id", buildingID).Warn("楼栋缓存失效失败")
	}
}

// 2 RecomputeBuilding 重新计算楼栋内所有房屋，返回发生变化的房屋数
func (s *OccupancyService) RecomputeBuilding(ctx context.Context, buildingID uint) (int, error) {
	var houseIDs []uint
	if err := s.DB.WithContext(ctx).Model(&models.House{}).
		Where("building_id = ?", buildingID).
		Pluck("id", &houseIDs).Error; err != nil {
		return 0, err
	}
	changed, err := s.recomputeHouses(ctx, houseIDs)
	if err != nil {
		return changed, err
	}
	s.invalidateBuilding(ctx, buildingID)
	return changed, nil
}

// 3 RecomputeAll 重新计算全部房屋
func (s *OccupancyService) RecomputeAll(ctx context.Context) (int, error) {
	var houseIDs []uint
	if err := s.DB.WithContext(ctx).Model(&models.House{}).Pluck("id", &houseIDs).Error; err != nil {
		return 0, err
	}
	return s.recomputeHouses(ctx, houseIDs)
}

func (s *OccupancyService) recomputeHouses(ctx context.Context, houseIDs []uint) (int, error) {
	changed := 0
	for _, id := range houseIDs {
		ok, err := s.RecomputeOccupancy(ctx, id)
		if err != nil {
			return changed, err
		}
		if ok {
			changed++
		}
	}
	return changed, nil
}
