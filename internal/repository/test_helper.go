package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wfunc/music-quiz/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB 为测试套件设置测试数据库
//
// 使用内存数据库进行测试（更快，不需要文件系统，在所有环境中都能工作）。
// 限制单连接：sqlite 内存库每个连接是独立数据库，且并发写入会报 busy，
// 单连接让并发的条件更新排队执行，先到先得的语义不变。
func SetupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)

	// 自动迁移所有模型
	err = db.AutoMigrate(
		// 账号系统
		&models.User{},
		&models.UserAuth{},

		// 曲库
		&models.Pack{},
		&models.Artist{},
		&models.Track{},

		// 游戏系统
		&models.GameSession{},
		&models.Player{},
		&models.Round{},
		&models.RoundAnswer{},
	)
	if err != nil {
		panic(err)
	}

	return db
}

// CleanupTestDB 清理测试数据库
func CleanupTestDB(db *gorm.DB) {
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// TestDB 创建测试数据库
func TestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := SetupTestDB()
	t.Cleanup(func() {
		CleanupTestDB(db)
	})
	return db
}

// SeedPack 创建带曲目的测试曲包
//
// 曲目热度从100开始按步长5递减，方便按区间断言选曲结果。
func SeedPack(t *testing.T, db *gorm.DB, trackCount int) *models.Pack {
	t.Helper()

	pack := &models.Pack{
		Name:        "测试曲包",
		Description: "单元测试用",
	}
	require.NoError(t, db.Create(pack).Error)

	for i := 0; i < trackCount; i++ {
		// external_id 带上曲包ID，同一库里重复建包不会撞唯一索引
		artist := &models.Artist{
			Name:       fmt.Sprintf("测试艺人%d-%d", pack.ID, i),
			ExternalID: fmt.Sprintf("pack%d-artist-%d", pack.ID, i),
		}
		require.NoError(t, db.Create(artist).Error)

		popularity := 100 - i*5
		if popularity < 0 {
			popularity = 0
		}
		track := &models.Track{
			PackID:          pack.ID,
			Title:           fmt.Sprintf("测试曲目%d", i),
			Popularity:      popularity,
			PreviewURL:      fmt.Sprintf("https://example.com/preview/%d", i),
			ExternalID:      fmt.Sprintf("track-%d", i),
			DurationSeconds: 30,
			Artists:         []models.Artist{*artist},
		}
		require.NoError(t, db.Create(track).Error)
	}

	return pack
}

// SeedSession 创建指定状态的测试会话
func SeedSession(t *testing.T, db *gorm.DB, packID uint, state string) *models.GameSession {
	t.Helper()

	session := &models.GameSession{
		SessionID:   fmt.Sprintf("test-session-%d", time.Now().UnixNano()),
		PackID:      packID,
		State:       state,
		TotalRounds: 5,
	}
	require.NoError(t, db.Create(session).Error)
	return session
}

// SeedPlayer 创建测试玩家
func SeedPlayer(t *testing.T, db *gorm.DB, sessionID uint, name string) *models.Player {
	t.Helper()

	player := &models.Player{
		SessionID: sessionID,
		Name:      name,
		JoinedAt:  time.Now(),
	}
	require.NoError(t, db.Create(player).Error)
	return player
}

// SeedRound 创建测试回合
func SeedRound(t *testing.T, db *gorm.DB, sessionID uint, roundNumber int, trackID uint) *models.Round {
	t.Helper()

	round := &models.Round{
		SessionID:   sessionID,
		RoundNumber: roundNumber,
		TrackID:     trackID,
	}
	require.NoError(t, db.Create(round).Error)
	return round
}
