package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"house-rent-service/internal/domain/models"
	"house-rent-service/internal/error/code"
	"house-rent-service/internal/infrastructure/config"
)

// InterfaceLedgerService 租金账单与付款
type InterfaceLedgerService interface {
	FillChargeBalance(ctx context.Context, rc *models.RentCharge) error
	TenantBalance(ctx context.Context, ownerID, tenantID uint) (*TenantBalance, error)
	RecordPayment(ctx context.Context, ownerID uint, req PaymentRequest) (*models.Payment, error)
	GetPayment(ctx context.Context, ownerID, id uint) (*models.Payment, error)
	ListPayments(ctx context.Context, ownerID uint, filter PaymentFilter) ([]models.Payment, int64, error)
	DeletePayment(ctx context.Context, ownerID, id uint) error
	CreateRentCharge(ctx context.Context, ownerID uint, req RentChargeRequest) (*models.RentCharge, error)
	GetRentCharge(ctx context.Context, ownerID, id uint) (*models.RentCharge, error)
	ListRentCharges(ctx context.Context, ownerID uint, filter RentChargeFilter) ([]models.RentCharge, int64, error)
	UpdateRentCharge(ctx context.Context, ownerID, id uint, req RentChargeUpdate) (*models.RentCharge, error)
	DeleteRentCharge(ctx context.Context, ownerID, id uint) error
	BulkCreateRentCharges(ctx context.Context, ownerID uint, req BulkRentChargeRequest) (*BulkRentChargeResult, error)
}

// PaymentRequest 付款登记参数
type PaymentRequest struct {
	TenantID     uint                 `json:"tenant_id" validate:"required"`
	RentChargeID uint                 `json:"rent_charge_id" validate:"required"`
	Amount       decimal.Decimal      `json:"amount"`
	Method       models.PaymentMethod `json:"method" validate:"required,oneof=cash mpesa bank card"`
	Reference    string               `json:"reference" validate:"max=100"`
	PaidAt       *time.Time           `json:"paid_at"`
}

// PaymentFilter 付款列表过滤条件
type PaymentFilter struct {
	models.PaginationQuery
	TenantID     uint `form:"tenant_id"`
	RentChargeID uint `form:"rent_charge_id"`
}

// RentChargeRequest 创建账单参数，AmountDue 为空时取房屋租金
type RentChargeRequest struct {
	TenantID  uint             `json:"tenant_id" validate:"required"`
	Year      int              `json:"year" validate:"gte=2000,lte=2100"`
	Month     int              `json:"month" validate:"gte=1,lte=12"`
	AmountDue *decimal.Decimal `json:"amount_due"`
}

// RentChargeUpdate 更新账单参数
type RentChargeUpdate struct {
	Year         *int             `json:"year" validate:"omitempty,gte=2000,lte=2100"`
	Month        *int             `json:"month" validate:"omitempty,gte=1,lte=12"`
	AmountDue    *decimal.Decimal `json:"amount_due"`
	ReminderSent *bool            `json:"reminder_sent"`
}

// RentChargeFilter 账单列表过滤条件
type RentChargeFilter struct {
	models.PaginationQuery
	TenantID uint `form:"tenant_id"`
	Year     int  `form:"year"`
	Month    int  `form:"month"`
}

// BulkRentChargeRequest 批量生成账单参数，TenantIDs 为空时针对全部已入住的活跃租户
type BulkRentChargeRequest struct {
	Year      int    `json:"year" validate:"gte=2000,lte=2100"`
	Month     int    `json:"month" validate:"gte=1,lte=12"`
	TenantIDs []uint `json:"tenant_ids"`
}

// BulkRentChargeResult 批量生成结果
type BulkRentChargeResult struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// TenantBalance 租户余额
type TenantBalance struct {
	TenantID  uint            `json:"tenant_id"`
	TotalDue  decimal.Decimal `json:"total_due"`
	TotalPaid decimal.Decimal `json:"total_paid"`
	Balance   decimal.Decimal `json:"balance"`
}

// LedgerService 账务服务，余额均为读时计算
type LedgerService struct {
	DB         *gorm.DB
	Config     *config.Config
	Validator  InterfaceValidatorService
	Cache      InterfaceOccupancyCacheService
	Dispatcher *Dispatcher
}

// NewLedgerService 创建账务服务
func NewLedgerService(db *gorm.DB, cfg *config.Config, validator InterfaceValidatorService, cache InterfaceOccupancyCacheService, dispatcher *Dispatcher) InterfaceLedgerService {
	return &LedgerService{
		DB:         db,
		Config:     cfg,
		Validator:  validator,
		Cache:      cache,
		Dispatcher: dispatcher,
	}
}

// sumColumn 返回保留两位小数的合计值
func sumColumn(q *gorm.DB, column string) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := q.Select(fmt.Sprintf("COALESCE(SUM(%s), 0)", column)).Row().Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total.Round(2), nil
}

// chargePaid 账单已付金额
func chargePaid(db *gorm.DB, rentChargeID uint) (decimal.Decimal, error) {
	return sumColumn(db.Model(&models.Payment{}).Where("rent_charge_id = ?", rentChargeID), "amount")
}

// fillChargeBalance 填充账单派生字段
func fillChargeBalance(db *gorm.DB, rc *models.RentCharge) error {
	paid, err := chargePaid(db, rc.ID)
	if err != nil {
		return err
	}
	rc.TotalPaid = paid
	rc.Balance = rc.AmountDue.Sub(paid).Round(2)
	rc.Paid = !rc.Balance.IsPositive()
	return nil
}

// computeTenantBalance 应收合计减去付款合计
func computeTenantBalance(db *gorm.DB, tenantID uint) (*TenantBalance, error) {
	due, err := sumColumn(db.Model(&models.RentCharge{}).Where("tenant_id = ?", tenantID), "amount_due")
	if err != nil {
		return nil, err
	}
	paid, err := sumColumn(db.Model(&models.Payment{}).Where("tenant_id = ?", tenantID), "amount")
	if err != nil {
		return nil, err
	}
	return &TenantBalance{
		TenantID:  tenantID,
		TotalDue:  due,
		TotalPaid: paid,
		Balance:   due.Sub(paid).Round(2),
	}, nil
}

// 1 FillChargeBalance 计算账单已付、余额与是否结清
func (s *LedgerService) FillChargeBalance(ctx context.Context, rc *models.RentCharge) error {
	return fillChargeBalance(s.DB.WithContext(ctx), rc)
}

// 2 TenantBalance 获取租户总余额，余额使用缓存快照
func (s *LedgerService) TenantBalance(ctx context.Context, ownerID, tenantID uint) (*TenantBalance, error) {
	db := s.DB.WithContext(ctx)
	var tenant models.Tenant
	if err := db.Select("id").Where("user_id = ?", ownerID).First(&tenant, tenantID).Error; err != nil {
		return nil, notFoundOr(err, ErrTenantNotFound)
	}

	var detail *TenantBalance
	compute := func() (decimal.Decimal, error) {
		b, err := computeTenantBalance(db, tenantID)
		if err != nil {
			return decimal.Zero, err
		}
		detail = b
		return b.Balance, nil
	}

	if s.Cache == nil {
		if _, err := compute(); err != nil {
			return nil, err
		}
		return detail, nil
	}

	balance, err := s.Cache.GetTenantBalance(ctx, tenantID, compute)
	if err != nil {
		return nil, err
	}
	if detail != nil {
		return detail, nil
	}
	// 命中缓存时只返回余额，合计字段按需重新计算
	due, err := sumColumn(db.Model(&models.RentCharge{}).Where("tenant_id = ?", tenantID), "amount_due")
	if err != nil {
		return nil, err
	}
	return &TenantBalance{
		TenantID:  tenantID,
		TotalDue:  due,
		TotalPaid: due.Sub(balance).Round(2),
		Balance:   balance,
	}, nil
}

// 3 RecordPayment 登记付款
func (s *LedgerService) RecordPayment(ctx context.Context, ownerID uint, req PaymentRequest) (*models.Payment, error) {
	if err := s.Validator.ValidateStruct(&req); err != nil {
		return nil, err
	}
	// 先取整到分再校验，0.001 这类金额入库为 0.00
	req.Amount = req.Amount.Round(2)
	if err := s.Validator.CheckPositive("amount", req.Amount); err != nil {
		return nil, err
	}

	payment := &models.Payment{
		UserID:       ownerID,
		TenantID:     req.TenantID,
		RentChargeID: req.RentChargeID,
		Amount:       req.Amount,
		Method:       req.Method,
		Reference:    strings.TrimSpace(req.Reference),
		PaidAt:       time.Now(),
	}
	if req.PaidAt != nil {
		payment.PaidAt = *req.PaidAt
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tenant models.Tenant
		if err := tx.Select("id").Where("user_id = ?", ownerID).First(&tenant, req.TenantID).Error; err != nil {
			return notFoundOr(err, ErrTenantNotFound)
		}
		var rc models.RentCharge
		if err := tx.Where("user_id = ?", ownerID).First(&rc, req.RentChargeID).Error; err != nil {
			return notFoundOr(err, ErrRentChargeNotFound)
		}
		if rc.TenantID != tenant.ID {
			return DomainErrorf(code.ErrTenantMismatch, "账单 %d 不属于租户 %d", rc.ID, tenant.ID)
		}
		if payment.Method != models.PaymentMethodCash && payment.Reference == "" {
			return ErrMissingReference
		}
		if s.Config != nil && !s.Config.LedgerAllowCredit {
			if err := fillChargeBalance(tx, &rc); err != nil {
				return err
			}
			if rc.Balance.Sub(payment.Amount).IsNegative() {
				return DomainErrorf(code.ErrTenantBalanceNegative, "付款金额 %s 超过账单余额 %s", payment.Amount.StringFixed(2), rc.Balance.StringFixed(2))
			}
		}
		return tx.Create(payment).Error
	})
	if err != nil {
		return nil, err
	}

	s.Dispatcher.Dispatch(ctx, Event{
		Type:         EventPaymentCreated,
		OwnerID:      ownerID,
		TenantID:     payment.TenantID,
		RentChargeID: payment.RentChargeID,
		PaymentID:    payment.ID,
	})

	return s.GetPayment(ctx, ownerID, payment.ID)
}

// 4 GetPayment 获取付款详情，附带账单余额
func (s *LedgerService) GetPayment(ctx context.Context, ownerID, id uint) (*models.Payment, error) {
	db := s.DB.WithContext(ctx)
	var payment models.Payment
	if err := db.Preload("RentCharge").Where("user_id = ?", ownerID).First(&payment, id).Error; err != nil {
		return nil, notFoundOr(err, ErrPaymentNotFound)
	}
	if payment.RentCharge != nil {
		if err := fillChargeBalance(db, payment.RentCharge); err != nil {
			return nil, err
		}
	}
	return &payment, nil
}

// 5 ListPayments 付款列表，按付款时间倒序
func (s *LedgerService) ListPayments(ctx context.Context, ownerID uint, filter PaymentFilter) ([]models.Payment, int64, error) {
	filter.Normalize()
	q := s.DB.WithContext(ctx).Model(&models.Payment{}).Where("user_id = ?", ownerID)
	if filter.TenantID != 0 {
		q = q.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.RentChargeID != 0 {
		q = q.Where("rent_charge_id = ?", filter.RentChargeID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var payments []models.Payment
	if err := q.Order("paid_at DESC, id DESC").Offset(filter.Offset()).Limit(filter.PageSize).Find(&payments).Error; err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// 6 DeletePayment 删除付款
func (s *LedgerService) DeletePayment(ctx context.Context, ownerID, id uint) error {
	var payment models.Payment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", ownerID).First(&payment, id).Error; err != nil {
			return notFoundOr(err, ErrPaymentNotFound)
		}
		return tx.Delete(&models.Payment{}, payment.ID).Error
	})
	if err != nil {
		return err
	}

	s.Dispatcher.Dispatch(ctx, Event{
		Type:         EventPaymentDeleted,
		OwnerID:      ownerID,
		TenantID:     payment.TenantID,
		RentChargeID: payment.RentChargeID,
		PaymentID:    payment.ID,
	})
	return nil
}

// 7 CreateRentCharge 创建月度账单
func (s *LedgerService) CreateRentCharge(ctx context.Context, ownerID uint, req RentChargeRequest) (*models.RentCharge, error) {
	if err := s.Validator.ValidateStruct(&req); err != nil {
		return nil, err
	}

	rc := &models.RentCharge{
		UserID:   ownerID,
		TenantID: req.TenantID,
		Year:     req.Year,
		Month:    req.Month,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tenant models.Tenant
		if err := tx.Preload("House").Where("user_id = ?", ownerID).First(&tenant, req.TenantID).Error; err != nil {
			return notFoundOr(err, ErrTenantNotFound)
		}
		switch {
		case req.AmountDue != nil:
			rc.AmountDue = req.AmountDue.Round(2)
		case tenant.House != nil:
			rc.AmountDue = tenant.House.RentAmount
		default:
			return DomainErrorf(code.ErrValidation, "租户未分配房屋，必须填写 amount_due")
		}
		if err := s.Validator.CheckNonNegative("amount_due", rc.AmountDue); err != nil {
			return err
		}
		if err := s.checkPeriod(tx, rc); err != nil {
			return err
		}
		return tx.Create(rc).Error
	})
	if isUniqueViolation(err) {
		return nil, ErrDuplicateRentCharge
	}
	if err != nil {
		return nil, err
	}

	s.dispatchCharge(ctx, EventRentChargeCreated, ownerID, rc)
	return s.GetRentCharge(ctx, ownerID, rc.ID)
}

func (s *LedgerService) checkPeriod(tx *gorm.DB, rc *models.RentCharge) error {
	var count int64
	q := tx.Model(&models.RentCharge{}).Where("tenant_id = ? AND year = ? AND month = ?", rc.TenantID, rc.Year, rc.Month)
	if rc.ID != 0 {
		q = q.Where("id <> ?", rc.ID)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return DomainErrorf(code.ErrDuplicateRentCharge, "租户 %d 的 %s 账单已存在", rc.TenantID, rc.Period())
	}
	return nil
}

func (s *LedgerService) dispatchCharge(ctx context.Context, t EventType, ownerID uint, rc *models.RentCharge) {
	s.Dispatcher.Dispatch(ctx, Event{
		Type:         t,
		OwnerID:      ownerID,
		TenantID:     rc.TenantID,
		RentChargeID: rc.ID,
	})
}

// 8 GetRentCharge 获取账单详情
func (s *LedgerService) GetRentCharge(ctx context.Context, ownerID, id uint) (*models.RentCharge, error) {
	db := s.DB.WithContext(ctx)
	var rc models.RentCharge
	if err := db.Preload("Tenant").Where("user_id = ?", ownerID).First(&rc, id).Error; err != nil {
		return nil, notFoundOr(err, ErrRentChargeNotFound)
	}
	if err := fillChargeBalance(db, &rc); err != nil {
		return nil, err
	}
	return &rc, nil
}

// 9 ListRentCharges 账单列表，按账期倒序
func (s *LedgerService) ListRentCharges(ctx context.Context, ownerID uint, filter RentChargeFilter) ([]models.RentCharge, int64, error) {
	filter.Normalize()
	db := s.DB.WithContext(ctx)
	q := db.Model(&models.RentCharge{}).Where("user_id = ?", ownerID)
	if filter.TenantID != 0 {
		q = q.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.Year != 0 {
		q = q.Where("year = ?", filter.Year)
	}
	if filter.Month != 0 {
		q = q.Where("month = ?", filter.Month)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var charges []models.RentCharge
	if err := q.Order("year DESC, month DESC, id DESC").Offset(filter.Offset()).Limit(filter.PageSize).Find(&charges).Error; err != nil {
		return nil, 0, err
	}
	for i := range charges {
		if err := fillChargeBalance(db, &charges[i]); err != nil {
			return nil, 0, err
		}
	}
	return charges, total, nil
}

// 10 UpdateRentCharge 更新账单
func (s *LedgerService) UpdateRentCharge(ctx context.Context, ownerID, id uint, req RentChargeUpdate) (*models.RentCharge, error) {
	if err := s.Validator.ValidateStruct(&req); err != nil {
		return nil, err
	}

	var rc models.RentCharge
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", ownerID).First(&rc, id).Error; err != nil {
			return notFoundOr(err, ErrRentChargeNotFound)
		}
		if req.Year != nil {
			rc.Year = *req.Year
		}
		if req.Month != nil {
			rc.Month = *req.Month
		}
		if req.AmountDue != nil {
			amountDue := req.AmountDue.Round(2)
			if err := s.Validator.CheckNonNegative("amount_due", amountDue); err != nil {
				return err
			}
			rc.AmountDue = amountDue
		}
		if req.ReminderSent != nil {
			rc.ReminderSent = *req.ReminderSent
			if !rc.ReminderSent {
				rc.ReminderSentAt = nil
			}
		}
		if err := s.checkPeriod(tx, &rc); err != nil {
			return err
		}
		return tx.Omit("Tenant", "Payments").Save(&rc).Error
	})
	if isUniqueViolation(err) {
		return nil, ErrDuplicateRentCharge
	}
	if err != nil {
		return nil, err
	}

	s.dispatchCharge(ctx, EventRentChargeUpdated, ownerID, &rc)
	return s.GetRentCharge(ctx, ownerID, rc.ID)
}

// 11 DeleteRentCharge 删除账单及其付款
func (s *LedgerService) DeleteRentCharge(ctx context.Context, ownerID, id uint) error {
	var rc models.RentCharge
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", ownerID).First(&rc, id).Error; err != nil {
			return notFoundOr(err, ErrRentChargeNotFound)
		}
		if err := tx.Where("rent_charge_id = ?", rc.ID).Delete(&models.Payment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.RentCharge{}, rc.ID).Error
	})
	if err != nil {
		return err
	}

	s.dispatchCharge(ctx, EventRentChargeDeleted, ownerID, &rc)
	return nil
}

// 12 BulkCreateRentCharges 为多个租户生成同一账期账单，已存在的跳过
func (s *LedgerService) BulkCreateRentCharges(ctx context.Context, ownerID uint, req BulkRentChargeRequest) (*BulkRentChargeResult, error) {
	if err := s.Validator.ValidateStruct(&req); err != nil {
		return nil, err
	}

	db := s.DB.WithContext(ctx)
	var tenants []models.Tenant
	q := db.Preload("House").Where("user_id = ?", ownerID)
	if len(req.TenantIDs) > 0 {
		q = q.Where("id IN ?", req.TenantIDs)
	} else {
		q = q.Where("is_active = ? AND house_id IS NOT NULL", true)
	}
	if err := q.Order("id").Find(&tenants).Error; err != nil {
		return nil, err
	}

	result := &BulkRentChargeResult{}
	found := make(map[uint]bool, len(tenants))
	for i := range tenants {
		tenant := &tenants[i]
		found[tenant.ID] = true

		if tenant.House == nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("租户 %s 未分配房屋", tenant.Name))
			continue
		}

		var exists int64
		if err := db.Model(&models.RentCharge{}).
			Where("tenant_id = ? AND year = ? AND month = ?", tenant.ID, req.Year, req.Month).
			Count(&exists).Error; err != nil {
			return nil, err
		}
		if exists > 0 {
			result.Skipped++
			continue
		}

		rc := &models.RentCharge{
			UserID:    ownerID,
			TenantID:  tenant.ID,
			Year:      req.Year,
			Month:     req.Month,
			AmountDue: tenant.House.RentAmount,
		}
		if err := db.Create(rc).Error; err != nil {
			if isUniqueViolation(err) {
				result.Skipped++
				continue
			}
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("租户 %s: %v", tenant.Name, err))
			continue
		}
		result.Created++
		s.dispatchCharge(ctx, EventRentChargeCreated, ownerID, rc)
	}

	for _, id := range req.TenantIDs {
		if !found[id] {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("租户 %d 不存在", id))
		}
	}
	return result, nil
}
