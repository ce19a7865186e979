// Package testutil 提供测试用的内存数据库、配置与日志
package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"house-rent-service/internal/infrastructure/config"
	"house-rent-service/internal/infrastructure/database"
	"house-rent-service/pkg/logger"
)

// NewTestDB 每个测试独立的SQLite内存库，已完成迁移
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	SilenceLogs()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 单连接，避免SQLite写锁冲突
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// NewTestConfig 使用默认值的配置，可覆盖部分变量
func NewTestConfig(t testing.TB, overrides map[string]string) *config.Config {
	t.Helper()
	env := map[string]string{
		"CACHE_ENABLED":  "false",
		"SMS_ENABLED":    "false",
		"JWT_SECRET_KEY": "test-secret",
	}
	for k, v := range overrides {
		env[k] = v
	}
	cfg, err := config.LoadConfigFromMap(env)
	require.NoError(t, err)
	return cfg
}

// SilenceLogs 丢弃全局日志输出
func SilenceLogs() {
	logger.Log = logger.NewDiscardLogger()
}
