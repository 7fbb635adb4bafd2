package database

import (
	"fmt"

	"github.com/wfunc/music-quiz/internal/logger"
	"github.com/wfunc/music-quiz/internal/models"
	"go.uber.org/zap"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	// 清理过期锁文件
	CleanupStaleLocks()

	// 获取迁移锁，避免多个进程同时迁移
	dbPath := getDBPath()
	if dbPath != "" {
		lockFile, err := acquireMigrationLock(dbPath)
		if err != nil {
			logger.Error("无法获取迁移锁", zap.Error(err))
			return fmt.Errorf("获取迁移锁失败: %w", err)
		}
		defer releaseMigrationLock(lockFile)
	}

	migrationModels := []interface{}{
		// 账户相关
		&models.User{},
		&models.UserAuth{},

		// 曲包相关
		&models.Pack{},
		&models.Track{},
		&models.Artist{},

		// 游戏相关
		&models.GameSession{},
		&models.Player{},
		&models.Round{},
		&models.RoundAnswer{},
	}

	logger.Info("开始数据库迁移...")

	if DB.Dialector.Name() == "sqlite" {
		// 重建表时外键约束会导致锁定
		DB.Exec("PRAGMA foreign_keys = OFF")
		defer DB.Exec("PRAGMA foreign_keys = ON")
	}

	for _, model := range migrationModels {
		if err := DB.AutoMigrate(model); err != nil {
			logger.Error("迁移失败",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err),
			)
			return err
		}
		logger.Debug("迁移成功", zap.String("model", fmt.Sprintf("%T", model)))
	}

	if err := createIndexes(); err != nil {
		return err
	}

	logger.Info("数据库迁移完成")
	return nil
}

// createIndexes 创建数据库索引
//
// 回合抢答者的唯一性由条件更新保证；这里的部分唯一索引只是冗余防线，
// 防止绕过仓储层的写入制造出双重抢答者。
func createIndexes() error {
	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_rounds_buzzed
		 ON rounds(session_id, round_number) WHERE buzzer_player_id IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_players_session_score
		 ON players(session_id, score DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_tracks_pack_popularity
		 ON tracks(pack_id, popularity)`,
	}

	for _, idx := range indexes {
		if err := DB.Exec(idx).Error; err != nil {
			logger.Warn("创建索引失败，可能已存在或方言不支持", zap.Error(err))
		}
	}

	return nil
}
