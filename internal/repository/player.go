package repository

import (
	"context"

	"github.com/wfunc/music-quiz/internal/models"
	"gorm.io/gorm"
)

// PlayerRepository 玩家仓储接口
type PlayerRepository interface {
	BaseRepository
	// Create 创建玩家，昵称在会话内重复时返回 ErrNameTaken
	Create(ctx context.Context, player *models.Player) error
	FindByID(ctx context.Context, id uint) (*models.Player, error)
	FindBySessionAndName(ctx context.Context, sessionID uint, name string) (*models.Player, error)
	ListBySession(ctx context.Context, sessionID uint) ([]*models.Player, error)
	CountBySession(ctx context.Context, sessionID uint) (int64, error)
	// AddScore 原子加分，奖惩共用，delta 可为负；tx 非nil时加入该事务
	AddScore(ctx context.Context, tx *gorm.DB, playerID uint, delta int) error
	BestScore(ctx context.Context, externalID string) (int, error)
}

// playerRepo 玩家仓储实现
type playerRepo struct {
	*BaseRepo
}

// NewPlayerRepository 创建玩家仓储
func NewPlayerRepository(db *gorm.DB) PlayerRepository {
	return &playerRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Create 创建玩家
func (r *playerRepo) Create(ctx context.Context, player *models.Player) error {
	err := r.db.WithContext(ctx).Create(player).Error
	if isUniqueViolation(err) {
		return ErrNameTaken
	}
	return err
}

// FindByID 根据ID查找
func (r *playerRepo) FindByID(ctx context.Context, id uint) (*models.Player, error) {
	var player models.Player
	err := r.db.WithContext(ctx).First(&player, id).Error
	if err != nil {
		return nil, err
	}
	return &player, nil
}

// FindBySessionAndName 根据会话和昵称查找
func (r *playerRepo) FindBySessionAndName(ctx context.Context, sessionID uint, name string) (*models.Player, error) {
	var player models.Player
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND name = ?", sessionID, name).
		First(&player).Error
	if err != nil {
		return nil, err
	}
	return &player, nil
}

// ListBySession 会话内玩家列表，按积分榜顺序返回
//
// 并列分数按加入时间先后排，再按ID兜底，保证排序稳定。
func (r *playerRepo) ListBySession(ctx context.Context, sessionID uint) ([]*models.Player, error) {
	var players []*models.Player
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("score DESC, joined_at ASC, id ASC").
		Find(&players).Error
	return players, err
}

// CountBySession 会话内玩家数
func (r *playerRepo) CountBySession(ctx context.Context, sessionID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Player{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	return count, err
}

// AddScore 原子加分
func (r *playerRepo) AddScore(ctx context.Context, tx *gorm.DB, playerID uint, delta int) error {
	db := r.db
	if tx != nil {
		db = tx
	}

	result := db.WithContext(ctx).
		Model(&models.Player{}).
		Where("id = ?", playerID).
		Update("score", gorm.Expr("score + ?", delta))

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// BestScore 查询同一外部身份的历史最高分（个人最佳榜）
func (r *playerRepo) BestScore(ctx context.Context, externalID string) (int, error) {
	var best *int
	err := r.db.WithContext(ctx).
		Model(&models.Player{}).
		Where("external_id = ?", externalID).
		Select("MAX(score)").
		Scan(&best).Error
	if err != nil {
		return 0, err
	}
	if best == nil {
		return 0, nil
	}
	return *best, nil
}

// WithTx 使用事务
func (r *playerRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &playerRepo{
		BaseRepo: NewBaseRepo(tx),
	}
}
