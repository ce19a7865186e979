package services

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"house-rent-service/internal/domain/models"
	"house-rent-service/internal/infrastructure/config"
)

// InterfaceTenantService 租户服务接口
type InterfaceTenantService interface {
	CreateTenant(ctx context.Context, ownerID uint, req TenantRequest) (*models.Tenant, error)
	GetTenant(ctx context.Context, ownerID, id uint) (*models.Tenant, error)
	ListTenants(ctx context.Context, ownerID uint, filter TenantFilter) ([]models.Tenant, int64, error)
	UpdateTenant(ctx context.Context, ownerID, id uint, req TenantUpdate) (*models.Tenant, error)
	DeleteTenant(ctx context.Context, ownerID, id uint) error
}

// TenantRequest 创建租户参数，未指定时默认活跃、开启短信、提前3天提醒
type TenantRequest struct {
	Name               string    `json:"name" validate:"required,max=50"`
	Phone              string    `json:"phone" validate:"required,max=20"`
	Email              *string   `json:"email" validate:"omitempty,email"`
	IDNumber           *string   `json:"id_number" validate:"omitempty,max=20"`
	HouseID            *uint     `json:"house_id"`
	IsActive           *bool     `json:"is_active"`
	RentDueDate        time.Time `json:"rent_due_date" validate:"required"`
	SMSNotifications   *bool     `json:"sms_notifications"`
	ReminderDaysBefore *int      `json:"reminder_days_before" validate:"omitempty,gte=0,lte=31"`
}

// TenantUpdate 更新租户参数，ClearHouse 为 true 时解除房屋关联
type TenantUpdate struct {
	Name               *string    `json:"name" validate:"omitempty,min=1,max=50"`
	Phone              *string    `json:"phone" validate:"omitempty,min=1,max=20"`
	Email              *string    `json:"email" validate:"omitempty,email"`
	IDNumber           *string    `json:"id_number" validate:"omitempty,max=20"`
	HouseID            *uint      `json:"house_id"`
	ClearHouse         bool       `json:"clear_house"`
	IsActive           *bool      `json:"is_active"`
	RentDueDate        *time.Time `json:"rent_due_date"`
	SMSNotifications   *bool      `json:"sms_notifications"`
	ReminderDaysBefore *int       `json:"reminder_days_before" validate:"omitempty,gte=0,lte=31"`
}

// TenantFilter 租户列表过滤条件
type TenantFilter struct {
	models.PaginationQuery
	Active     *bool  `form:"active"`
	HouseID    uint   `form:"house_id"`
	BuildingID uint   `form:"building_id"`
	Name       string `form:"name"`
}

// TenantService 租户服务
type TenantService struct {
	DB         *gorm.DB
	Config     *config.Config
	Validator  InterfaceValidatorService
	Dispatcher *Dispatcher
}

// NewTenantService 创建租户服务
func NewTenantService(db *gorm.DB, cfg *config.Config, validator InterfaceValidatorService, dispatcher *Dispatcher) InterfaceTenantService {
	return &TenantService{
		DB:         db,
		Config:     cfg,
		Validator:  validator,
		Dispatcher: dispatcher,
	}
}

func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// ownHouse 房屋必须属于当前账号，返回所属楼栋
func ownHouse(tx *gorm.DB, ownerID, houseID uint) (uint, error) {
	var house models.House
	if err := tx.Select("id", "building_id").Where("user_id = ?", ownerID).First(&house, houseID).Error; err != nil {
		return 0, notFoundOr(err, ErrHouseNotFound)
	}
	return house.BuildingID, nil
}

// buildingOfHouse 房屋不存在时返回0
func buildingOfHouse(db *gorm.DB, houseID *uint) uint {
	if houseID == nil {
		return 0
	}
	var house models.House
	if err := db.Select("id", "building_id").First(&house, *houseID).Error; err != nil {
		return 0
	}
	return house.BuildingID
}

// remapSaveError 唯一索引冲突后重新检查，区分房屋已被占用与联系方式重复
func (s *TenantService) remapSaveError(ctx context.Context, tenant *models.Tenant, err error) error {
	if !isUniqueViolation(err) {
		return err
	}
	if tenant.IsActive && tenant.HouseID != nil {
		if cerr := s.Validator.CheckTenantAssignment(s.DB.WithContext(ctx), tenant); cerr != nil {
			return cerr
		}
	}
	return ErrDuplicateContact
}

// 1 CreateTenant 创建租户，分配活跃房屋时触发入住计算
func (s *TenantService) CreateTenant(ctx context.Context, ownerID uint, req TenantRequest) (*models.Tenant, error) {
	if err := s.Validator.ValidateStruct(&req); err != nil {
		return nil, err
	}

	tenant := &models.Tenant{
		UserID:             ownerID,
		Name:               strings.TrimSpace(req.Name),
		Phone:              strings.TrimSpace(req.Phone),
		Email:              emptyToNil(req.Email),
		IDNumber:           emptyToNil(req.IDNumber),
		HouseID:            req.HouseID,
		IsActive:           true,
		RentDueDate:        req.RentDueDate,
		SMSNotifications:   true,
		ReminderDaysBefore: 3,
	}
	if req.IsActive != nil {
		tenant.IsActive = *req.IsActive
	}
	if req.SMSNotifications != nil {
		tenant.SMSNotifications = *req.SMSNotifications
	}
	if req.ReminderDaysBefore != nil {
		tenant.ReminderDaysBefore = *req.ReminderDaysBefore
	}

	var buildingID uint
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tenant.HouseID != nil {
			bid, err := ownHouse(tx, ownerID, *tenant.HouseID)
			if err != nil {
				return err
			}
			buildingID = bid
		}
		if err := s.Validator.CheckTenantContact(tx, tenant); err != nil {
			return err
		}
		if err := s.Validator.CheckTenantAssignment(tx, tenant); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(tenant).Error
	})
	if err != nil {
		return nil, s.remapSaveError(ctx, tenant, err)
	}

	ev := Event{
		Type:        EventTenantCreated,
		OwnerID:     ownerID,
		TenantID:    tenant.ID,
		BuildingIDs: []uint{buildingID},
		MovedIn:     tenant.IsActive && tenant.HouseID != nil,
	}
	if tenant.HouseID != nil {
		ev.HouseIDs = []uint{*tenant.HouseID}
	}
	s.Dispatcher.Dispatch(ctx, ev)
	return s.GetTenant(ctx, ownerID, tenant.ID)
}

// 2 GetTenant 获取租户详情
func (s *TenantService) GetTenant(ctx context.Context, ownerID, id uint) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := s.DB.WithContext(ctx).Preload("House.Building").
		Where("user_id = ?", ownerID).First(&tenant, id).Error; err != nil {
		return nil, notFoundOr(err, ErrTenantNotFound)
	}
	return &tenant, nil
}

// 3 ListTenants 租户列表，支持按状态、房屋、楼栋和姓名过滤
func (s *TenantService) ListTenants(ctx context.Context, ownerID uint, filter TenantFilter) ([]models.Tenant, int64, error) {
	filter.Normalize()
	q := s.DB.WithContext(ctx).Model(&models.Tenant{}).Where("tenants.user_id = ?", ownerID)
	if filter.Active != nil {
		q = q.Where("tenants.is_active = ?", *filter.Active)
	}
	if filter.HouseID != 0 {
		q = q.Where("tenants.house_id = ?", filter.HouseID)
	}
	if filter.BuildingID != 0 {
		q = q.Joins("JOIN houses ON houses.id = tenants.house_id").Where("houses.building_id = ?", filter.BuildingID)
	}
	if name := strings.TrimSpace(filter.Name); name != "" {
		q = q.Where("LOWER(tenants.name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var tenants []models.Tenant
	if err := q.Preload("House").Order("tenants.name, tenants.id").
		Offset(filter.Offset()).Limit(filter.PageSize).Find(&tenants).Error; err != nil {
		return nil, 0, err
	}
	return tenants, total, nil
}

// 4 UpdateTenant 更新租户，入住或退租时重新计算新旧房屋
func (s *TenantService) UpdateTenant(ctx context.Context, ownerID, id uint, req TenantUpdate) (*models.Tenant, error) {
	if err := s.Validator.ValidateStruct(&req); err != nil {
		return nil, err
	}

	var tenant models.Tenant
	var oldHouseID *uint
	var oldActive bool
	var buildingIDs []uint
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", ownerID).First(&tenant, id).Error; err != nil {
			return notFoundOr(err, ErrTenantNotFound)
		}
		oldHouseID, oldActive = tenant.HouseID, tenant.IsActive
		buildingIDs = append(buildingIDs, buildingOfHouse(tx, oldHouseID))

		if req.Name != nil {
			tenant.Name = strings.TrimSpace(*req.Name)
		}
		if req.Phone != nil {
			tenant.Phone = strings.TrimSpace(*req.Phone)
		}
		if req.Email != nil {
			tenant.Email = emptyToNil(req.Email)
		}
		if req.IDNumber != nil {
			tenant.IDNumber = emptyToNil(req.IDNumber)
		}
		if req.ClearHouse {
			tenant.HouseID = nil
		} else if req.HouseID != nil {
			bid, err := ownHouse(tx, ownerID, *req.HouseID)
			if err != nil {
				return err
			}
			houseID := *req.HouseID
			tenant.HouseID = &houseID
			buildingIDs = append(buildingIDs, bid)
		}
		if req.IsActive != nil {
			tenant.IsActive = *req.IsActive
		}
		if req.RentDueDate != nil {
			tenant.RentDueDate = *req.RentDueDate
		}
		if req.SMSNotifications != nil {
			tenant.SMSNotifications = *req.SMSNotifications
		}
		if req.ReminderDaysBefore != nil {
			tenant.ReminderDaysBefore = *req.ReminderDaysBefore
		}

		if err := s.Validator.CheckTenantContact(tx, &tenant); err != nil {
			return err
		}
		if err := s.Validator.CheckTenantAssignment(tx, &tenant); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Save(&tenant).Error
	})
	if err != nil {
		return nil, s.remapSaveError(ctx, &tenant, err)
	}

	ev := Event{
		Type:        EventTenantUpdated,
		OwnerID:     ownerID,
		TenantID:    tenant.ID,
		BuildingIDs: buildingIDs,
	}
	if oldHouseID != nil {
		ev.HouseIDs = append(ev.HouseIDs, *oldHouseID)
	}
	if tenant.HouseID != nil {
		ev.HouseIDs = append(ev.HouseIDs, *tenant.HouseID)
		sameHouse := oldHouseID != nil && *oldHouseID == *tenant.HouseID
		ev.MovedIn = tenant.IsActive && !(sameHouse && oldActive)
	}
	s.Dispatcher.Dispatch(ctx, ev)
	return s.GetTenant(ctx, ownerID, tenant.ID)
}

// 5 DeleteTenant 删除租户及其账单和付款
func (s *TenantService) DeleteTenant(ctx context.Context, ownerID, id uint) error {
	var tenant models.Tenant
	var buildingID uint
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", ownerID).First(&tenant, id).Error; err != nil {
			return notFoundOr(err, ErrTenantNotFound)
		}
		// 删除前记录房屋，供入住计算使用
		buildingID = buildingOfHouse(tx, tenant.HouseID)

		if err := tx.Where("tenant_id = ?", tenant.ID).Delete(&models.Payment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tenant_id = ?", tenant.ID).Delete(&models.RentCharge{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Tenant{}, tenant.ID).Error
	})
	if err != nil {
		return err
	}

	ev := Event{
		Type:        EventTenantDeleted,
		OwnerID:     ownerID,
		TenantID:    tenant.ID,
		BuildingIDs: []uint{buildingID},
	}
	if tenant.HouseID != nil {
		ev.HouseIDs = []uint{*tenant.HouseID}
	}
	s.Dispatcher.Dispatch(ctx, ev)
	return nil
}
