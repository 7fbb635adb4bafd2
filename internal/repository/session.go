package repository

import (
	"context"
	"errors"

	"github.com/wfunc/music-quiz/internal/models"
	"gorm.io/gorm"
)

// SessionRepository 游戏会话仓储接口
type SessionRepository interface {
	BaseRepository
	Create(ctx context.Context, session *models.GameSession) error
	FindByID(ctx context.Context, id uint) (*models.GameSession, error)
	FindBySessionID(ctx context.Context, sessionID string) (*models.GameSession, error)
	FindByHostID(ctx context.Context, hostID uint, p *Pagination) ([]*models.GameSession, error)
	FindByState(ctx context.Context, states []string) ([]*models.GameSession, error)
	// TransitionState 条件状态更新：仅当当前状态在 from 中时应用 updates（必须含 "state"）。
	// 未命中返回 ErrStateConflict，会话保持原状态。
	TransitionState(ctx context.Context, sessionID string, from []string, updates map[string]interface{}) error
	Delete(ctx context.Context, sessionID string) error
}

// sessionRepo 游戏会话仓储实现
type sessionRepo struct {
	*BaseRepo
}

// NewSessionRepository 创建会话仓储
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Create 创建会话
func (r *sessionRepo) Create(ctx context.Context, session *models.GameSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// FindByID 根据ID查找
func (r *sessionRepo) FindByID(ctx context.Context, id uint) (*models.GameSession, error) {
	var session models.GameSession
	err := r.db.WithContext(ctx).First(&session, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &session, nil
}

// FindBySessionID 根据会话ID查找
func (r *sessionRepo) FindBySessionID(ctx context.Context, sessionID string) (*models.GameSession, error) {
	var session models.GameSession
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// FindByHostID 查找主持人创建的会话（分页）
func (r *sessionRepo) FindByHostID(ctx context.Context, hostID uint, p *Pagination) ([]*models.GameSession, error) {
	var sessions []*models.GameSession

	r.db.WithContext(ctx).
		Model(&models.GameSession{}).
		Where("host_user_id = ?", hostID).
		Count(&p.Total)

	err := r.db.WithContext(ctx).
		Where("host_user_id = ?", hostID).
		Order("created_at desc").
		Scopes(Paginate(p)).
		Find(&sessions).Error

	return sessions, err
}

// FindByState 查找指定状态的会话（超时扫描用）
func (r *sessionRepo) FindByState(ctx context.Context, states []string) ([]*models.GameSession, error) {
	var sessions []*models.GameSession
	err := r.db.WithContext(ctx).
		Where("state IN ?", states).
		Find(&sessions).Error
	return sessions, err
}

// TransitionState 条件状态更新
//
// finish/buzz/judge/next_round 彼此竞争时，谁先命中谁生效，
// 落败方收到 ErrStateConflict 而不是覆盖对方的写入。
func (r *sessionRepo) TransitionState(ctx context.Context, sessionID string, from []string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.GameSession{}).
		Where("session_id = ? AND state IN ?", sessionID, from).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrStateConflict
	}

	return nil
}

// Delete 删除会话（仅限lobby或finished的显式清理）
func (r *sessionRepo) Delete(ctx context.Context, sessionID string) error {
	result := r.db.WithContext(ctx).
		Where("session_id = ? AND state IN ?", sessionID,
			[]string{models.SessionStateLobby, models.SessionStateFinished}).
		Delete(&models.GameSession{})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrStateConflict
	}

	return nil
}

// WithTx 使用事务
func (r *sessionRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &sessionRepo{
		BaseRepo: NewBaseRepo(tx),
	}
}
