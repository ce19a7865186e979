package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"house-rent-service/internal/domain/models"
	"house-rent-service/internal/error/code"
)

// InterfaceValidatorService 写入前的结构性校验，均在写事务内执行
type InterfaceValidatorService interface {
	ValidateStruct(v interface{}) error
	CheckNonNegative(field string, amount decimal.Decimal) error
	CheckPositive(field string, amount decimal.Decimal) error
	CheckHouseCreate(tx *gorm.DB, house *models.House) error
	CheckHouseUpdate(tx *gorm.DB, house *models.House) error
	CheckHouseDelete(tx *gorm.DB, house *models.House) error
	CheckBuildingCapacity(tx *gorm.DB, building *models.Building) error
	CheckBuildingDelete(tx *gorm.DB, buildingID uint) error
	CheckTenantAssignment(tx *gorm.DB, tenant *models.Tenant) error
	CheckTenantContact(tx *gorm.DB, tenant *models.Tenant) error
}

// ValidatorService 校验服务
type ValidatorService struct {
	validate *validator.Validate
}

// NewValidatorService 创建校验服务，错误信息使用json字段名
func NewValidatorService() InterfaceValidatorService {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &ValidatorService{validate: v}
}

// 1 ValidateStruct 按struct tag校验字段
func (s *ValidatorService) ValidateStruct(v interface{}) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			if fe.Param() != "" {
				msgs = append(msgs, fmt.Sprintf("%s 不满足 %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			} else {
				msgs = append(msgs, fmt.Sprintf("%s 不满足 %s", fe.Field(), fe.Tag()))
			}
		}
		return DomainErrorf(code.ErrValidation, "参数校验失败: %s", strings.Join(msgs, "; "))
	}
	return DomainErrorf(code.ErrValidation, "参数校验失败: %v", err)
}

// 2 CheckNonNegative 金额按两位小数取整后不能为负
func (s *ValidatorService) CheckNonNegative(field string, amount decimal.Decimal) error {
	if amount.Round(2).IsNegative() {
		return DomainErrorf(code.ErrNegativeAmount, "%s 不能为负数", field)
	}
	return nil
}

// 3 CheckPositive 金额按两位小数取整后必须大于0
func (s *ValidatorService) CheckPositive(field string, amount decimal.Decimal) error {
	if !amount.Round(2).IsPositive() {
		return DomainErrorf(code.ErrNegativeAmount, "%s 必须大于0", field)
	}
	return nil
}

// 4 CheckHouseCreate 检查楼栋容量与房号唯一
func (s *ValidatorService) CheckHouseCreate(tx *gorm.DB, house *models.House) error {
	var building models.Building
	if err := tx.Select("id", "capacity").First(&building, house.BuildingID).Error; err != nil {
		return notFoundOr(err, ErrBuildingNotFound)
	}

	var count int64
	if err := tx.Model(&models.House{}).Where("building_id = ?", house.BuildingID).Count(&count).Error; err != nil {
		return err
	}
	if count >= int64(building.Capacity) {
		return DomainErrorf(code.ErrCapacityExceeded, "楼栋容量为 %d，已有 %d 套房屋", building.Capacity, count)
	}

	return s.checkUnit(tx, house)
}

// 5 CheckHouseUpdate 检查房号唯一，更换楼栋时检查新楼栋容量
func (s *ValidatorService) CheckHouseUpdate(tx *gorm.DB, house *models.House) error {
	var current models.House
	if err := tx.Select("id", "building_id").First(&current, house.ID).Error; err != nil {
		return notFoundOr(err, ErrHouseNotFound)
	}
	if current.BuildingID != house.BuildingID {
		var building models.Building
		if err := tx.Select("id", "capacity").First(&building, house.BuildingID).Error; err != nil {
			return notFoundOr(err, ErrBuildingNotFound)
		}
		var count int64
		if err := tx.Model(&models.House{}).Where("building_id = ?", house.BuildingID).Count(&count).Error; err != nil {
			return err
		}
		if count >= int64(building.Capacity) {
			return DomainErrorf(code.ErrCapacityExceeded, "楼栋容量为 %d，已有 %d 套房屋", building.Capacity, count)
		}
	}
	return s.checkUnit(tx, house)
}

func (s *ValidatorService) checkUnit(tx *gorm.DB, house *models.House) error {
	var count int64
	q := tx.Model(&models.House{}).Where("building_id = ? AND unit_number = ?", house.BuildingID, house.UnitNumber)
	if house.ID != 0 {
		q = q.Where("id <> ?", house.ID)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return DomainErrorf(code.ErrDuplicateUnit, "房号 %s 在该楼栋已存在", house.UnitNumber)
	}
	return nil
}

// 6 CheckHouseDelete 已入住房屋不能删除
func (s *ValidatorService) CheckHouseDelete(tx *gorm.DB, house *models.House) error {
	if house.Occupied {
		return DomainErrorf(code.ErrHouseOccupied, "房屋 %s 已入住，不能删除", house.UnitNumber)
	}
	return nil
}

// 7 CheckBuildingCapacity 容量不能为负且不能小于现有房屋数
func (s *ValidatorService) CheckBuildingCapacity(tx *gorm.DB, building *models.Building) error {
	if building.Capacity < 0 {
		return DomainErrorf(code.ErrValidation, "capacity 不能为负数")
	}
	if building.ID == 0 {
		return nil
	}
	var count int64
	if err := tx.Model(&models.House{}).Where("building_id = ?", building.ID).Count(&count).Error; err != nil {
		return err
	}
	if int64(building.Capacity) < count {
		return DomainErrorf(code.ErrCapacityBelowHouses, "楼栋已有 %d 套房屋，容量不能设为 %d", count, building.Capacity)
	}
	return nil
}

// 8 CheckBuildingDelete 楼栋内有已入住房屋时不能删除
func (s *ValidatorService) CheckBuildingDelete(tx *gorm.DB, buildingID uint) error {
	var count int64
	if err := tx.Model(&models.House{}).Where("building_id = ? AND occupied = ?", buildingID, true).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return DomainErrorf(code.ErrHasOccupiedUnits, "楼栋内仍有 %d 套已入住房屋", count)
	}
	return nil
}

// 9 CheckTenantAssignment 一套房屋只能有一个活跃租户
func (s *ValidatorService) CheckTenantAssignment(tx *gorm.DB, tenant *models.Tenant) error {
	if tenant.HouseID == nil {
		return nil
	}
	var house models.House
	if err := tx.Select("id").First(&house, *tenant.HouseID).Error; err != nil {
		return notFoundOr(err, ErrHouseNotFound)
	}
	if !tenant.IsActive {
		return nil
	}
	var count int64
	q := tx.Model(&models.Tenant{}).Where("house_id = ? AND is_active = ?", *tenant.HouseID, true)
	if tenant.ID != 0 {
		q = q.Where("id <> ?", tenant.ID)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrHouseOccupied
	}
	return nil
}

// 10 CheckTenantContact 手机号、邮箱、证件号全局唯一
func (s *ValidatorService) CheckTenantContact(tx *gorm.DB, tenant *models.Tenant) error {
	conds := []string{"phone = ?"}
	args := []interface{}{tenant.Phone}
	if tenant.Email != nil {
		conds = append(conds, "email = ?")
		args = append(args, *tenant.Email)
	}
	if tenant.IDNumber != nil {
		conds = append(conds, "id_number = ?")
		args = append(args, *tenant.IDNumber)
	}
	var ids []uint
	if err := tx.Model(&models.Tenant{}).Where(strings.Join(conds, " OR "), args...).Pluck("id", &ids).Error; err != nil {
		return err
	}
	for _, id := range ids {
		if id != tenant.ID {
			return ErrDuplicateContact
		}
	}
	return nil
}
