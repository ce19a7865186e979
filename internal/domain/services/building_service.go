package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"house-rent-service/internal/domain/models"
	"house-rent-service/internal/infrastructure/config"
)

// InterfaceBuildingService 楼栋服务接口
type InterfaceBuildingService interface {
	CreateBuilding(ctx context.Context, ownerID uint, req BuildingRequest) (*models.Building, error)
	GetBuilding(ctx context.Context, ownerID, id uint) (*models.Building, error)
	ListBuildings(ctx context.Context, ownerID uint, filter BuildingFilter) ([]models.Building, int64, error)
	UpdateBuilding(ctx context.Context, ownerID, id uint, req BuildingUpdate) (*models.Building, error)
	DeleteBuilding(ctx context.Context, ownerID, id uint) error
	GetOccupancy(ctx context.Context, ownerID, id uint) (*BuildingOccupancy, error)
	GetDashboard(ctx context.Context, ownerID uint) (*Dashboard, error)
}

// BuildingRequest 创建楼栋参数
type BuildingRequest struct {
	Name     string `json:"name" validate:"required,max=50"`
	Address  string `json:"address" validate:"max=200"`
	Capacity int    `json:"capacity" validate:"gte=0"`
}

// BuildingUpdate 更新楼栋参数
type BuildingUpdate struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=50"`
	Address  *string `json:"address" validate:"omitempty,max=200"`
	Capacity *int    `json:"capacity" validate:"omitempty,gte=0"`
}

// BuildingFilter 楼栋列表过滤条件
type BuildingFilter struct {
	models.PaginationQuery
	Name string `form:"name"`
}

// BuildingOccupancy 楼栋入住统计
type BuildingOccupancy struct {
	BuildingID      uint    `json:"building_id"`
	Capacity        int     `json:"capacity"`
	TotalHouses     int64   `json:"total_houses"`
	OccupiedCount   int     `json:"occupied_count"`
	VacantCount     int     `json:"vacant_count"`
	TenantCount     int     `json:"tenant_count"`
	PercentOccupied float64 `json:"percent_occupied"`
}

// Dashboard 房东概览
type Dashboard struct {
	TotalBuildings  int64               `json:"total_buildings"`
	TotalHouses     int64               `json:"total_houses"`
	OccupiedHouses  int64               `json:"occupied_houses"`
	VacantHouses    int64               `json:"vacant_houses"`
	ActiveTenants   int64               `json:"active_tenants"`
	PercentOccupied float64             `json:"percent_occupied"`
	Buildings       []BuildingOccupancy `json:"buildings"`
	RecentPayments  []models.Payment    `json:"recent_payments"`
}

// BuildingService 楼栋服务
type BuildingService struct {
	DB         *gorm.DB
	Config     *config.Config
	Validator  InterfaceValidatorService
	Cache      InterfaceOccupancyCacheService
	Dispatcher *Dispatcher
}

// NewBuildingService 创建楼栋服务
func NewBuildingService(db *gorm.DB, cfg *config.Config, validator InterfaceValidatorService, cache InterfaceOccupancyCacheService, dispatcher *Dispatcher) InterfaceBuildingService {
	return &BuildingService{
		DB:         db,
		Config:     cfg,
		Validator:  validator,
		Cache:      cache,
		Dispatcher: dispatcher,
	}
}

// 1 CreateBuilding 创建楼栋
func (s *BuildingService) CreateBuilding(ctx context.Context, ownerID uint, req BuildingRequest) (*models.Building, error) {
	if err := s.Validator.ValidateStruct(&req); err != nil {
		return nil, err
	}
	building := &models.Building{
		UserID:   ownerID,
		Name:     strings.TrimSpace(req.Name),
		Address:  req.Address,
		Capacity: req.Capacity,
	}
	if err := s.DB.WithContext(ctx).Create(building).Error; err != nil {
		return nil, err
	}
	building.VacantCount = building.Capacity
	return building, nil
}

// 2 GetBuilding 获取楼栋及入住统计
func (s *BuildingService) GetBuilding(ctx context.Context, ownerID, id uint) (*models.Building, error) {
	var building models.Building
	if err := s.DB.WithContext(ctx).Where("user_id = ?", ownerID).First(&building, id).Error; err != nil {
		return nil, notFoundOr(err, ErrBuildingNotFound)
	}
	if err := FillCounts(ctx, s.Cache, &building); err != nil {
		return nil, err
	}
	return &building, nil
}

// 3 ListBuildings 楼栋列表，支持按名称模糊搜索
func (s *BuildingService) ListBuildings(ctx context.Context, ownerID uint, filter BuildingFilter) ([]models.Building, int64, error) {
	filter.Normalize()
	q := s.DB.WithContext(ctx).Model(&models.Building{}).Where("user_id = ?", ownerID)
	if name := strings.TrimSpace(filter.Name); name != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	order := "id ASC"
	if filter.Desc {
		order = "id DESC"
	}
	var buildings []models.Building
	if err := q.Order(order).Offset(filter.Offset()).Limit(filter.PageSize).Find(&buildings).Error; err != nil {
		return nil, 0, err
	}
	for i := range buildings {
		if err := FillCounts(ctx, s.Cache, &buildings[i]); err != nil {
			return nil, 0, err
		}
	}
	return buildings, total, nil
}

// 4 UpdateBuilding 更新楼栋，容量不能小于现有房屋数
func (s *BuildingService) UpdateBuilding(ctx context.Context, ownerID, id uint, req BuildingUpdate) (*models.Building, error) {
	if err := s.Validator.ValidateStruct(&req); err != nil {
		return nil, err
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var building models.Building
		if err := tx.Where("user_id = ?", ownerID).First(&building, id).Error; err != nil {
			return notFoundOr(err, ErrBuildingNotFound)
		}
		if req.Name != nil {
			building.Name = strings.TrimSpace(*req.Name)
		}
		if req.Address != nil {
			building.Address = *req.Address
		}
		if req.Capacity != nil {
			building.Capacity = *req.Capacity
		}
		if err := s.Validator.CheckBuildingCapacity(tx, &building); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Save(&building).Error
	})
	if err != nil {
		return nil, err
	}

	s.Dispatcher.Dispatch(ctx, Event{Type: EventBuildingUpdated, OwnerID: ownerID, BuildingIDs: []uint{id}})
	return s.GetBuilding(ctx, ownerID, id)
}

// 5 DeleteBuilding 删除楼栋及其空置房屋
func (s *BuildingService) DeleteBuilding(ctx context.Context, ownerID, id uint) error {
	var houseIDs []uint
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var building models.Building
		if err := tx.Where("user_id = ?", ownerID).First(&building, id).Error; err != nil {
			return notFoundOr(err, ErrBuildingNotFound)
		}
		if err := s.Validator.CheckBuildingDelete(tx, id); err != nil {
			return err
		}
		if err := tx.Model(&models.House{}).Where("building_id = ?", id).Pluck("id", &houseIDs).Error; err != nil {
			return err
		}
		if len(houseIDs) > 0 {
			// 解除非活跃租户与房屋的关联
			if err := tx.Model(&models.Tenant{}).Where("house_id IN ?", houseIDs).
				UpdateColumns(map[string]interface{}{"house_id": nil, "active_house_id": nil}).Error; err != nil {
				return err
			}
			if err := tx.Where("building_id = ?", id).Delete(&models.House{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Building{}, id).Error
	})
	if err != nil {
		return err
	}

	s.Dispatcher.Dispatch(ctx, Event{Type: EventBuildingDeleted, OwnerID: ownerID, HouseIDs: houseIDs, BuildingIDs: []uint{id}})
	return nil
}

// 6 GetOccupancy 获取楼栋入住统计
func (s *BuildingService) GetOccupancy(ctx context.Context, ownerID, id uint) (*BuildingOccupancy, error) {
	building, err := s.GetBuilding(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return s.occupancyOf(ctx, building)
}

func (s *BuildingService) occupancyOf(ctx context.Context, building *models.Building) (*BuildingOccupancy, error) {
	var houses int64
	if err := s.DB.WithContext(ctx).Model(&models.House{}).Where("building_id = ?", building.ID).Count(&houses).Error; err != nil {
		return nil, err
	}
	tenants, err := s.Cache.GetTenantCount(ctx, building.ID)
	if err != nil {
		return nil, err
	}
	return &BuildingOccupancy{
		BuildingID:      building.ID,
		Capacity:        building.Capacity,
		TotalHouses:     houses,
		OccupiedCount:   building.OccupiedCount,
		VacantCount:     building.VacantCount,
		TenantCount:     tenants,
		PercentOccupied: percent(int64(building.OccupiedCount), int64(building.Capacity)),
	}, nil
}

// 7 GetDashboard 房东概览，包含最近5笔付款
func (s *BuildingService) GetDashboard(ctx context.Context, ownerID uint) (*Dashboard, error) {
	db := s.DB.WithContext(ctx)
	d := &Dashboard{Buildings: []BuildingOccupancy{}, RecentPayments: []models.Payment{}}

	var buildings []models.Building
	if err := db.Where("user_id = ?", ownerID).Order("id").Find(&buildings).Error; err != nil {
		return nil, err
	}
	d.TotalBuildings = int64(len(buildings))
	for i := range buildings {
		if err := FillCounts(ctx, s.Cache, &buildings[i]); err != nil {
			return nil, err
		}
		occ, err := s.occupancyOf(ctx, &buildings[i])
		if err != nil {
			return nil, err
		}
		d.Buildings = append(d.Buildings, *occ)
	}

	if err := db.Model(&models.House{}).Where("user_id = ?", ownerID).Count(&d.TotalHouses).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.House{}).Where("user_id = ? AND occupied = ?", ownerID, true).Count(&d.OccupiedHouses).Error; err != nil {
		return nil, err
	}
	d.VacantHouses = d.TotalHouses - d.OccupiedHouses
	if err := db.Model(&models.Tenant{}).Where("user_id = ? AND is_active = ?", ownerID, true).Count(&d.ActiveTenants).Error; err != nil {
		return nil, err
	}
	d.PercentOccupied = percent(d.OccupiedHouses, d.TotalHouses)

	if err := db.Preload("Tenant").Where("user_id = ?", ownerID).
		Order("paid_at DESC, id DESC").Limit(5).Find(&d.RecentPayments).Error; err != nil {
		return nil, err
	}
	return d, nil
}

// percent 保留两位小数，分母为0时返回0
func percent(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return decimal.NewFromInt(part * 100).Div(decimal.NewFromInt(total)).Round(2).InexactFloat64()
}
