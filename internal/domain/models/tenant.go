package models

import (
	"time"

	"gorm.io/gorm"
)

// Tenant 表示租户
type Tenant struct {
	BaseModel
	UserID   uint    `gorm:"index;not null" json:"user_id"`
	Name     string  `gorm:"type:varchar(50);not null;index" json:"name" validate:"required,max=50"`
	Phone    string  `gorm:"type:varchar(20);uniqueIndex;not null" json:"phone" validate:"required,max=20"`
	Email    *string `gorm:"type:varchar(100);uniqueIndex" json:"email,omitempty" validate:"omitempty,email"`
	IDNumber *string `gorm:"type:varchar(20);uniqueIndex" json:"id_number,omitempty" validate:"omitempty,max=20"`
	HouseID  *uint   `gorm:"index" json:"house_id"`
	IsActive bool    `gorm:"not null;index" json:"is_active"`

	// ActiveHouseID 仅在租户处于活跃状态时等于 HouseID，唯一索引保证一套房屋最多一个活跃租户
	ActiveHouseID *uint `gorm:"uniqueIndex" json:"-"`

	RentDueDate        time.Time  `json:"rent_due_date"`
	SMSNotifications   bool       `gorm:"not null" json:"sms_notifications"`
	ReminderDaysBefore int        `gorm:"not null" json:"reminder_days_before" validate:"gte=0,lte=31"`
	LastReminderSentAt *time.Time `json:"last_reminder_sent_at,omitempty"`

	House *House `gorm:"foreignKey:HouseID" json:"house,omitempty"`
}

// SyncActiveHouse 根据活跃状态同步 ActiveHouseID
func (t *Tenant) SyncActiveHouse() {
	if t.IsActive && t.HouseID != nil {
		id := *t.HouseID
		t.ActiveHouseID = &id
		return
	}
	t.ActiveHouseID = nil
}

// BeforeSave 是一个GORM钩子，在保存记录前运行
func (t *Tenant) BeforeSave(tx *gorm.DB) error {
	t.SyncActiveHouse()
	return nil
}

// HouseIDValue 返回房屋ID，未关联时为0
func (t *Tenant) HouseIDValue() uint {
	if t.HouseID == nil {
		return 0
	}
	return *t.HouseID
}
