package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod 付款方式
type PaymentMethod string

const (
	PaymentMethodCash  PaymentMethod = "cash"
	PaymentMethodMPesa PaymentMethod = "mpesa"
	PaymentMethodBank  PaymentMethod = "bank"
	PaymentMethodCard  PaymentMethod = "card"
)

// DisplayName 返回付款方式的展示名称
func (m PaymentMethod) DisplayName() string {
	switch m {
	case PaymentMethodCash:
		return "Cash"
	case PaymentMethodMPesa:
		return "M-Pesa"
	case PaymentMethodBank:
		return "Bank Transfer"
	case PaymentMethodCard:
		return "Card"
	default:
		return string(m)
	}
}

// Payment 表示一笔租金付款
type Payment struct {
	BaseModel
	UserID       uint            `gorm:"index;not null" json:"user_id"`
	TenantID     uint            `gorm:"not null;index" json:"tenant_id"`
	RentChargeID uint            `gorm:"not null;index" json:"rent_charge_id"`
	Amount       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Method       PaymentMethod   `gorm:"type:varchar(20);not null" json:"method" validate:"required,oneof=cash mpesa bank card"`
	Reference    string          `gorm:"type:varchar(100)" json:"reference" validate:"max=100"`
	PaidAt       time.Time       `gorm:"not null;index" json:"paid_at"`

	Tenant     *Tenant     `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	RentCharge *RentCharge `gorm:"foreignKey:RentChargeID" json:"rent_charge,omitempty"`
}
