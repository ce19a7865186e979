package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"house-rent-service/internal/app/middleware"
	"house-rent-service/internal/app/routes"
	"house-rent-service/internal/domain/services"
	"house-rent-service/internal/domain/services/container"
	"house-rent-service/internal/infrastructure/config"
	"house-rent-service/internal/infrastructure/database"
	"house-rent-service/internal/infrastructure/scheduler"
	Logger "house-rent-service/pkg/logger"
)

func main() {
	// 初始化日志配置
	if err := Logger.SetupLogger(); err != nil {
		Logger.Error("初始化日志配置失败: %v", err)
		os.Exit(1)
	}

	// 加载.env文件
	if err := godotenv.Load(); err != nil {
		// 即使加载失败也继续执行，可能环境变量已经通过其他方式设置
		Logger.Warning("无法加载.env文件: %v", err)
	} else {
		Logger.Info("成功加载.env文件")
	}

	cfg := config.GetConfig()
	Logger.SetLevel(cfg.LogLevel)
	if cfg.EnvType == "SERVER" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建数据库连接池
	pool, err := database.NewConnectionPool(cfg)
	if err != nil {
		Logger.Error("无法创建数据库连接池: %v", err)
		os.Exit(1)
	}
	defer pool.Close()
	db := pool.GetDB()

	if err := database.Migrate(db, cfg.DBMigrationMode); err != nil {
		Logger.Error("数据库迁移失败: %v", err)
		os.Exit(1)
	}

	serviceContainer := container.NewServiceContainer(db, cfg, container.Options{})
	defer serviceContainer.Close()

	// 确保系统中有管理员账户
	users := serviceContainer.GetService("user").(services.InterfaceUserService)
	if err := users.EnsureAdminExists(); err != nil {
		Logger.Error("创建默认管理员失败: %v", err)
		os.Exit(1)
	}

	var reminderScheduler *scheduler.Scheduler
	if cfg.ReminderEnabled {
		reminderScheduler = scheduler.NewScheduler(
			serviceContainer.GetService("reminder").(services.InterfaceReminderService),
			cfg.ReminderHour,
		)
		reminderScheduler.AfterRun = middleware.PurgeCache
		reminderScheduler.Start()
	}

	printSystemInfo(pool)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.ServerPort,
		Handler:           routes.SetupRouter(serviceContainer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		Logger.Info("服务器启动在: http://0.0.0.0:%s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Error("启动服务器失败: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	Logger.Info("正在关闭服务器...")

	if reminderScheduler != nil {
		reminderScheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		Logger.Error("服务器关闭失败: %v", err)
	}
	Logger.Info("服务器已退出")
}

// printSystemInfo 打印系统信息
func printSystemInfo(pool *database.ConnectionPool) {
	if stats, err := pool.Stats(); err == nil {
		Logger.Info("数据库连接池状态: %+v", stats)
	}

	Logger.Info("系统CPU核心数: %d, 当前Go协程数: %d", runtime.NumCPU(), runtime.NumGoroutine())

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	Logger.Info("系统内存使用: Alloc=%v MiB, Sys=%v MiB", m.Alloc/1024/1024, m.Sys/1024/1024)
}
