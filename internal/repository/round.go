package repository

import (
	"context"
	"time"

	"github.com/wfunc/music-quiz/internal/models"
	"gorm.io/gorm"
)

// RoundRepository 回合仓储接口
type RoundRepository interface {
	BaseRepository
	CreateBatch(ctx context.Context, rounds []*models.Round) error
	FindBySessionAndNumber(ctx context.Context, sessionID uint, roundNumber int) (*models.Round, error)
	ListBySession(ctx context.Context, sessionID uint) ([]*models.Round, error)
	// ClaimBuzzer 抢答落座：仅当回合尚无抢答者时写入，落败返回 ErrBuzzerTaken
	ClaimBuzzer(ctx context.Context, roundID uint, playerID uint, buzzTime time.Time, elapsed float64) error
	// Judge 判定回合：仅当回合尚未判定时写入，重复判定返回 ErrAlreadyJudged
	Judge(ctx context.Context, tx *gorm.DB, roundID uint, correct bool, points int) error
	CreateAnswer(ctx context.Context, answer *models.RoundAnswer) error
	ListAnswers(ctx context.Context, roundID uint) ([]*models.RoundAnswer, error)
}

// roundRepo 回合仓储实现
type roundRepo struct {
	*BaseRepo
}

// NewRoundRepository 创建回合仓储
func NewRoundRepository(db *gorm.DB) RoundRepository {
	return &roundRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// CreateBatch 批量创建回合（开局时预生成全部回合）
func (r *roundRepo) CreateBatch(ctx context.Context, rounds []*models.Round) error {
	if len(rounds) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rounds).Error
}

// FindBySessionAndNumber 查找指定回合，预加载曲目和艺人
func (r *roundRepo) FindBySessionAndNumber(ctx context.Context, sessionID uint, roundNumber int) (*models.Round, error) {
	var round models.Round
	err := r.db.WithContext(ctx).
		Preload("Track").
		Preload("Track.Artists").
		Where("session_id = ? AND round_number = ?", sessionID, roundNumber).
		First(&round).Error
	if err != nil {
		return nil, err
	}
	return &round, nil
}

// ListBySession 会话内全部回合
func (r *roundRepo) ListBySession(ctx context.Context, sessionID uint) ([]*models.Round, error) {
	var rounds []*models.Round
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("round_number ASC").
		Find(&rounds).Error
	return rounds, err
}

// ClaimBuzzer 抢答落座
//
// 先到先得由这一条 UPDATE 决定：WHERE 带 buzzer_player_id IS NULL，
// 数据库保证同一回合只有一条能命中。应用层不加锁。
func (r *roundRepo) ClaimBuzzer(ctx context.Context, roundID uint, playerID uint, buzzTime time.Time, elapsed float64) error {
	result := r.db.WithContext(ctx).
		Model(&models.Round{}).
		Where("id = ? AND buzzer_player_id IS NULL", roundID).
		Updates(map[string]interface{}{
			"buzzer_player_id": playerID,
			"buzz_time":        buzzTime,
			"elapsed_seconds":  elapsed,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrBuzzerTaken
	}

	return nil
}

// Judge 判定回合
//
// 在调用方给定的事务内执行，与加分、会话状态流转同生共死。
func (r *roundRepo) Judge(ctx context.Context, tx *gorm.DB, roundID uint, correct bool, points int) error {
	db := tx
	if db == nil {
		db = r.db
	}

	result := db.WithContext(ctx).
		Model(&models.Round{}).
		Where("id = ? AND correct IS NULL", roundID).
		Updates(map[string]interface{}{
			"correct":        correct,
			"points_awarded": points,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrAlreadyJudged
	}

	return nil
}

// CreateAnswer 记录文字答案，同一玩家重复提交返回 ErrDuplicateAnswer
func (r *roundRepo) CreateAnswer(ctx context.Context, answer *models.RoundAnswer) error {
	err := r.db.WithContext(ctx).Create(answer).Error
	if isUniqueViolation(err) {
		return ErrDuplicateAnswer
	}
	return err
}

// ListAnswers 回合内全部文字答案
func (r *roundRepo) ListAnswers(ctx context.Context, roundID uint) ([]*models.RoundAnswer, error) {
	var answers []*models.RoundAnswer
	err := r.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Order("created_at ASC").
		Find(&answers).Error
	return answers, err
}

// WithTx 使用事务
func (r *roundRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &roundRepo{
		BaseRepo: NewBaseRepo(tx),
	}
}
