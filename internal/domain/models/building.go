package models

// Building 表示楼栋信息
type Building struct {
	BaseModel
	UserID   uint   `gorm:"index;not null" json:"user_id"`
	Name     string `gorm:"type:varchar(50);not null" json:"name" validate:"required,max=50"`
	Address  string `gorm:"type:varchar(200)" json:"address" validate:"max=200"`
	Capacity int    `gorm:"not null" json:"capacity" validate:"gte=0"` // 声明的房屋总数

	// 派生字段，由缓存层填充，不落库
	OccupiedCount int `gorm:"-" json:"occupied_count"`
	VacantCount   int `gorm:"-" json:"vacant_count"`

	// 关联关系
	Houses []House `gorm:"foreignKey:BuildingID;constraint:OnDelete:CASCADE" json:"houses,omitempty"`
}
