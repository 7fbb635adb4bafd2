package repository

import (
	"context"
	"time"

	"github.com/wfunc/music-quiz/internal/models"
	"gorm.io/gorm"
)

// UserRepository 主持人账号仓储接口
type UserRepository interface {
	BaseRepository
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	CreateAuth(ctx context.Context, auth *models.UserAuth) error
	FindAuthByUserID(ctx context.Context, userID uint) (*models.UserAuth, error)
	UpdateAuth(ctx context.Context, auth *models.UserAuth) error
	RecordLoginAttempt(ctx context.Context, userID uint, success bool, lockUntil *time.Time) error
}

// userRepo 账号仓储实现
type userRepo struct {
	*BaseRepo
}

// NewUserRepository 创建账号仓储
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Create 创建账号
func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if isUniqueViolation(err) {
		return ErrNameTaken
	}
	return err
}

// FindByID 根据ID查找
func (r *userRepo) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername 根据用户名查找
func (r *userRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update 更新账号
func (r *userRepo) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// CreateAuth 创建认证信息
func (r *userRepo) CreateAuth(ctx context.Context, auth *models.UserAuth) error {
	return r.db.WithContext(ctx).Create(auth).Error
}

// FindAuthByUserID 查找认证信息
func (r *userRepo) FindAuthByUserID(ctx context.Context, userID uint) (*models.UserAuth, error) {
	var auth models.UserAuth
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&auth).Error
	if err != nil {
		return nil, err
	}
	return &auth, nil
}

// UpdateAuth 更新认证信息
func (r *userRepo) UpdateAuth(ctx context.Context, auth *models.UserAuth) error {
	return r.db.WithContext(ctx).Save(auth).Error
}

// RecordLoginAttempt 记录登录尝试
//
// 失败计数用原子自增，连续失败触发锁定由服务层决定锁定时长。
func (r *userRepo) RecordLoginAttempt(ctx context.Context, userID uint, success bool, lockUntil *time.Time) error {
	updates := map[string]interface{}{}
	if success {
		updates["login_attempts"] = 0
		updates["locked_until"] = nil
	} else {
		updates["login_attempts"] = gorm.Expr("login_attempts + 1")
		if lockUntil != nil {
			updates["locked_until"] = *lockUntil
		}
	}

	return r.db.WithContext(ctx).
		Model(&models.UserAuth{}).
		Where("user_id = ?", userID).
		Updates(updates).Error
}

// WithTx 使用事务
func (r *userRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &userRepo{
		BaseRepo: NewBaseRepo(tx),
	}
}
