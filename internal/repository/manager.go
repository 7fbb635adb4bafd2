package repository

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// Manager 仓储管理器，提供所有仓储的统一访问接口
type Manager struct {
	db *gorm.DB

	// 仓储实例（使用懒加载）
	sessionOnce sync.Once
	session     SessionRepository

	playerOnce sync.Once
	player     PlayerRepository

	roundOnce sync.Once
	round     RoundRepository

	packOnce sync.Once
	pack     PackRepository

	userOnce sync.Once
	user     UserRepository
}

// NewManager 创建仓储管理器
func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

// GetDB 获取数据库实例
func (m *Manager) GetDB() *gorm.DB {
	return m.db
}

// WithTransaction 在事务中执行函数
//
// 判定流程（写回合、加分、状态流转）靠它保证要么全部落库要么全部回滚。
func (m *Manager) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return m.db.WithContext(ctx).Transaction(fn)
}

// Session 获取会话仓储
func (m *Manager) Session() SessionRepository {
	m.sessionOnce.Do(func() {
		m.session = NewSessionRepository(m.db)
	})
	return m.session
}

// Player 获取玩家仓储
func (m *Manager) Player() PlayerRepository {
	m.playerOnce.Do(func() {
		m.player = NewPlayerRepository(m.db)
	})
	return m.player
}

// Round 获取回合仓储
func (m *Manager) Round() RoundRepository {
	m.roundOnce.Do(func() {
		m.round = NewRoundRepository(m.db)
	})
	return m.round
}

// Pack 获取曲包仓储
func (m *Manager) Pack() PackRepository {
	m.packOnce.Do(func() {
		m.pack = NewPackRepository(m.db)
	})
	return m.pack
}

// User 获取账号仓储
func (m *Manager) User() UserRepository {
	m.userOnce.Do(func() {
		m.user = NewUserRepository(m.db)
	})
	return m.user
}
