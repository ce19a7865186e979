package models

import "github.com/shopspring/decimal"

// House 表示楼栋下的一套房屋
type House struct {
	BaseModel
	UserID        uint            `gorm:"index;not null" json:"user_id"`
	BuildingID    uint            `gorm:"not null;uniqueIndex:idx_house_building_unit" json:"building_id"`
	UnitNumber    string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_house_building_unit" json:"unit_number" validate:"required,max=20"`
	Size          string          `gorm:"type:varchar(20)" json:"size" validate:"max=20"` // 如 "1 bedroom"
	RentAmount    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"rent_amount"`
	DepositAmount decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"deposit_amount"`
	// 只能由入住计算引擎写入
	Occupied bool `gorm:"not null;index" json:"occupied"`

	// Relations - 关联关系
	Building *Building `gorm:"foreignKey:BuildingID" json:"building,omitempty"`
	Tenants  []Tenant  `gorm:"foreignKey:HouseID;constraint:OnDelete:SET NULL" json:"tenants,omitempty"`
}
