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

// InterfaceHouseService 房屋服务接口
type InterfaceHouseService interface {
	CreateHouse(ctx context.Context, ownerID uint, req HouseRequest) (*models.House, error)
	GetHouse(ctx context.Context, ownerID, id uint) (*models.House, error)
	ListHouses(ctx context.Context, ownerID uint, filter HouseFilter) ([]models.House, int64, error)
	UpdateHouse(ctx context.Context, ownerID, id uint, req HouseUpdate) (*models.House, error)
	DeleteHouse(ctx context.Context, ownerID, id uint) error
}

// HouseRequest 创建房屋参数，入住状态不可由调用方设置
type HouseRequest struct {
	BuildingID    uint            `json:"building_id" validate:"required"`
	UnitNumber    string          `json:"unit_number" validate:"required,max=20"`
	Size          string          `json:"size" validate:"max=20"`
	RentAmount    decimal.Decimal `json:"rent_amount"`
	DepositAmount decimal.Decimal `json:"deposit_amount"`
}

// HouseUpdate 更新房屋参数
type HouseUpdate struct {
	BuildingID    *uint            `json:"building_id"`
	UnitNumber    *string          `json:"unit_number" validate:"omitempty,min=1,max=20"`
	Size          *string          `json:"size" validate:"omitempty,max=20"`
	RentAmount    *decimal.Decimal `json:"rent_amount"`
	DepositAmount *decimal.Decimal `json:"deposit_amount"`
}

// HouseFilter 房屋列表过滤条件
type HouseFilter struct {
	models.PaginationQuery
	BuildingID uint  `form:"building_id"`
	Occupied   *bool `form:"occupied"`
}

// HouseService 房屋服务
type HouseService struct {
	DB         *gorm.DB
	Config     *config.Config
	Validator  InterfaceValidatorService
	Dispatcher *Dispatcher
}

// NewHouseService 创建房屋服务
func NewHouseService(db *gorm.DB, cfg *config.Config, validator InterfaceValidatorService, dispatcher *Dispatcher) InterfaceHouseService {
	return &HouseService{
		DB:         db,
		Config:     cfg,
		Validator:  validator,
		Dispatcher: dispatcher,
	}
}

// checkAmounts 按入库精度校验租金与押金
func (s *HouseService) checkAmounts(rent, deposit decimal.Decimal) error {
	if err := s.Validator.CheckNonNegative("rent_amount", rent.Round(2)); err != nil {
		return err
	}
	return s.Validator.CheckNonNegative("deposit_amount", deposit.Round(2))
}

// ownBuilding 楼栋必须属于当前账号
func ownBuilding(tx *gorm.DB, ownerID, buildingID uint) error {
	var n int64
	if err := tx.Model(&models.Building{}).Where("id = ? AND user_id = ?", buildingID, ownerID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrBuildingNotFound
	}
	return nil
}

// 1 CreateHouse 创建房屋，受楼栋容量限制
func (s *HouseService) CreateHouse(ctx context.Context, ownerID uint, req HouseRequest) (*models.House, error) {
	if err := s.Validator.ValidateStruct(&req); err != nil {
		return nil, err
	}
	if err := s.checkAmounts(req.RentAmount, req.DepositAmount); err != nil {
		return nil, err
	}

	house := &models.House{
		UserID:        ownerID,
		BuildingID:    req.BuildingID,
		UnitNumber:    strings.TrimSpace(req.UnitNumber),
		Size:          req.Size,
		RentAmount:    req.RentAmount.Round(2),
		DepositAmount: req.DepositAmount.Round(2),
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ownBuilding(tx, ownerID, req.BuildingID); err != nil {
			return err
		}
		if err := s.Validator.CheckHouseCreate(tx, house); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(house).Error
	})
	if isUniqueViolation(err) {
		return nil, ErrDuplicateUnit
	}
	if err != nil {
		return nil, err
	}

	s.Dispatcher.Dispatch(ctx, Event{
		Type:        EventHouseCreated,
		OwnerID:     ownerID,
		HouseIDs:    []uint{house.ID},
		BuildingIDs: []uint{house.BuildingID},
	})
	return s.GetHouse(ctx, ownerID, house.ID)
}

// 2 GetHouse 获取房屋详情及其租户
func (s *HouseService) GetHouse(ctx context.Context, ownerID, id uint) (*models.House, error) {
	var house models.House
	if err := s.DB.WithContext(ctx).Preload("Building").Preload("Tenants").
		Where("user_id = ?", ownerID).First(&house, id).Error; err != nil {
		return nil, notFoundOr(err, ErrHouseNotFound)
	}
	return &house, nil
}

// 3 ListHouses 房屋列表，可按楼栋和入住状态过滤
func (s *HouseService) ListHouses(ctx context.Context, ownerID uint, filter HouseFilter) ([]models.House, int64, error) {
	filter.Normalize()
	q := s.DB.WithContext(ctx).Model(&models.House{}).Where("user_id = ?", ownerID)
	if filter.BuildingID != 0 {
		q = q.Where("building_id = ?", filter.BuildingID)
	}
	if filter.Occupied != nil {
		q = q.Where("occupied = ?", *filter.Occupied)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var houses []models.House
	if err := q.Order("building_id, unit_number").Offset(filter.Offset()).Limit(filter.PageSize).Find(&houses).Error; err != nil {
		return nil, 0, err
	}
	return houses, total, nil
}

// 4 UpdateHouse 更新房屋信息
func (s *HouseService) UpdateHouse(ctx context.Context, ownerID, id uint, req HouseUpdate) (*models.House, error) {
	if err := s.Validator.ValidateStruct(&req); err != nil {
		return nil, err
	}

	var house models.House
	var oldBuildingID uint
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", ownerID).First(&house, id).Error; err != nil {
			return notFoundOr(err, ErrHouseNotFound)
		}
		oldBuildingID = house.BuildingID

		if req.BuildingID != nil && *req.BuildingID != house.BuildingID {
			if err := ownBuilding(tx, ownerID, *req.BuildingID); err != nil {
				return err
			}
			house.BuildingID = *req.BuildingID
		}
		if req.UnitNumber != nil {
			house.UnitNumber = strings.TrimSpace(*req.UnitNumber)
		}
		if req.Size != nil {
			house.Size = *req.Size
		}
		if req.RentAmount != nil {
			house.RentAmount = req.RentAmount.Round(2)
		}
		if req.DepositAmount != nil {
			house.DepositAmount = req.DepositAmount.Round(2)
		}
		if err := s.checkAmounts(house.RentAmount, house.DepositAmount); err != nil {
			return err
		}
		if err := s.Validator.CheckHouseUpdate(tx, &house); err != nil {
			return err
		}
		// occupied 只由入住计算引擎写入
		return tx.Omit(clause.Associations, "occupied").Save(&house).Error
	})
	if isUniqueViolation(err) {
		return nil, ErrDuplicateUnit
	}
	if err != nil {
		return nil, err
	}

	s.Dispatcher.Dispatch(ctx, Event{
		Type:        EventHouseUpdated,
		OwnerID:     ownerID,
		HouseIDs:    []uint{house.ID},
		BuildingIDs: []uint{oldBuildingID, house.BuildingID},
	})
	return s.GetHouse(ctx, ownerID, house.ID)
}

// 5 DeleteHouse 删除空置房屋
func (s *HouseService) DeleteHouse(ctx context.Context, ownerID, id uint) error {
	var house models.House
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", ownerID).First(&house, id).Error; err != nil {
			return notFoundOr(err, ErrHouseNotFound)
		}
		if err := s.Validator.CheckHouseDelete(tx, &house); err != nil {
			return err
		}
		if err := tx.Model(&models.Tenant{}).Where("house_id = ?", house.ID).
			UpdateColumns(map[string]interface{}{"house_id": nil, "active_house_id": nil}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.House{}, house.ID).Error
	})
	if err != nil {
		return err
	}

	s.Dispatcher.Dispatch(ctx, Event{
		Type:        EventHouseDeleted,
		OwnerID:     ownerID,
		HouseIDs:    []uint{house.ID},
		BuildingIDs: []uint{house.BuildingID},
	})
	return nil
}
