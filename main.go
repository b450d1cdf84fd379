// @title LearnHub 后端 API
// @version 1.0
// @description LearnHub 学习管理平台的后端服务。

// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"flag"
	"learnhub_backend/internal/app"
	"learnhub_backend/internal/config"
	"learnhub_backend/pkg/logger"
	"log"
	"path/filepath"

	"go.uber.org/zap"
)

const configDir = "configs"

//go:generate swag init -g main.go -o docs
func main() {
	// 命令行参数
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	migrate := flag.Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	seedEmail := flag.String("seed-admin", "", "创建或提升管理员账号的邮箱，完成后退出")
	seedPassword := flag.String("seed-password", "", "管理员密码（至少 8 位）")
	seedName := flag.String("seed-name", "", "管理员姓名")
	flag.Parse()

	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 设置迁移标志
	cfg.ForceMigrate = *migrate || *migrateOnly || *seedEmail != ""
	cfg.MigrateOnly = *migrateOnly || *seedEmail != ""

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	if *seedEmail != "" {
		if err := application.SeedAdmin(*seedEmail, *seedPassword, *seedName); err != nil {
			logger.Log.Fatal("Failed to seed admin", zap.Error(err))
		}
		return
	}

	// 迁移完成后直接退出
	if *migrateOnly {
		logger.Log.Info("数据库迁移完成，退出程序")
		return
	}

	application.Run(filepath.Join(configDir, "config.yaml"))
}
