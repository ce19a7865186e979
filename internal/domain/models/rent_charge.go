package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RentCharge 表示租户某年某月的应收租金
type RentCharge struct {
	BaseModel
	UserID         uint            `gorm:"index;not null" json:"user_id"`
	TenantID       uint            `gorm:"not null;uniqueIndex:idx_rent_charge_period" json:"tenant_id"`
	Year           int             `gorm:"not null;uniqueIndex:idx_rent_charge_period" json:"year" validate:"gte=2000,lte=2100"`
	Month          int             `gorm:"not null;uniqueIndex:idx_rent_charge_period" json:"month" validate:"gte=1,lte=12"`
	AmountDue      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount_due"`
	ReminderSent   bool            `gorm:"not null" json:"reminder_sent"`
	ReminderSentAt *time.Time      `json:"reminder_sent_at,omitempty"`

	// 派生字段，读取时由账务服务计算
	TotalPaid decimal.Decimal `gorm:"-" json:"total_paid"`
	Balance   decimal.Decimal `gorm:"-" json:"balance"`
	Paid      bool            `gorm:"-" json:"paid"`

	Tenant   *Tenant   `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE" json:"tenant,omitempty"`
	Payments []Payment `gorm:"foreignKey:RentChargeID;constraint:OnDelete:CASCADE" json:"payments,omitempty"`
}

// MonthName 返回月份英文名
func (r *RentCharge) MonthName() string {
	if r.Month < 1 || r.Month > 12 {
		return fmt.Sprintf("month %d", r.Month)
	}
	return time.Month(r.Month).String()
}

// Period 返回如 "January 2024" 的账期描述
func (r *RentCharge) Period() string {
	return fmt.Sprintf("%s %d", r.MonthName(), r.Year)
}
