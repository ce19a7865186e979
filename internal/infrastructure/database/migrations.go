package database

import (
	"fmt"

	"house-rent-service/internal/domain/models"
	Logger "house-rent-service/pkg/logger"

	"gorm.io/gorm"
)

// AllModels 需要迁移的模型，顺序即建表顺序
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Building{},
		&models.House{},
		&models.Tenant{},
		&models.RentCharge{},
		&models.Payment{},
	}
}

// AutoMigrate 自动迁移所有模型（只添加新列和新表）
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("自动迁移失败: %w", err)
	}
	Logger.Info("数据库迁移完成")
	return nil
}

// DropAndRecreate 删除并重建所有表，所有数据将丢失
func DropAndRecreate(db *gorm.DB) error {
	Logger.Warning("正在删除并重建所有表，所有数据将丢失")

	all := AllModels()
	// 按依赖逆序删除
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(all[i]); err != nil {
			return fmt.Errorf("删除表失败: %w", err)
		}
	}
	return AutoMigrate(db)
}

// Migrate 根据迁移模式执行迁移
func Migrate(db *gorm.DB, mode string) error {
	switch mode {
	case "drop":
		return DropAndRecreate(db)
	default:
		return AutoMigrate(db)
	}
}
