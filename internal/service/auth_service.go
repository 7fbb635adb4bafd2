package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wfunc/music-quiz/internal/logger"
	"github.com/wfunc/music-quiz/internal/models"
	"github.com/wfunc/music-quiz/internal/repository"
	"github.com/wfunc/music-quiz/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 认证错误
var (
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrUserBanned         = errors.New("账户已被禁用")
	ErrAccountLocked      = errors.New("账户已锁定，请稍后再试")
	ErrUsernameTaken      = errors.New("用户名已被注册")
	ErrWeakPassword       = errors.New("密码至少8位")
	ErrInvalidToken       = errors.New("无效的令牌")
)

// 连续失败锁定参数
const (
	maxLoginAttempts = 5
	lockoutDuration  = 15 * time.Minute
)

// AuthService 主持人认证服务
type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error)
	ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error)
}

// RegisterRequest 注册参数
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
}

// LoginRequest 登录参数
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	IP       string `json:"-"`
}

// AuthResponse 认证响应
type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
}

// authService 认证服务实现
type authService struct {
	repos      *repository.Manager
	jwtManager *utils.JWTManager
	log        *zap.Logger
}

// NewAuthService 创建认证服务
func NewAuthService(repos *repository.Manager, jwtManager *utils.JWTManager) AuthService {
	return &authService{
		repos:      repos,
		jwtManager: jwtManager,
		log:        logger.GetModuleLogger("auth"),
	}
}

// Register 注册主持人账户
func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	if len(req.Username) < 3 {
		return nil, ErrInvalidCredentials
	}
	if len(req.Password) < 8 {
		return nil, ErrWeakPassword
	}

	if _, err := s.repos.User().FindByUsername(ctx, req.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username: req.Username,
		Nickname: req.Nickname,
		Email:    req.Email,
		Status:   "active",
	}

	err = s.repos.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		auth := &models.UserAuth{
			UserID:   user.ID,
			Password: hashed,
		}
		return tx.Create(auth).Error
	})
	if err != nil {
		if errors.Is(err, repository.ErrNameTaken) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	s.log.Info("主持人账户已注册",
		zap.Uint("user_id", user.ID),
		zap.String("username", user.Username))

	return s.issueTokens(user)
}

// Login 登录
//
// 连续失败5次锁定15分钟，锁定期间即使密码正确也拒绝。
func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	user, err := s.repos.User().FindByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		s.log.Warn("登录失败：用户不存在", zap.String("username", req.Username))
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive() {
		return nil, ErrUserBanned
	}

	auth, err := s.repos.User().FindAuthByUserID(ctx, user.ID)
	if err != nil {
		s.log.Error("认证信息查询失败", zap.Error(err), zap.Uint("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if auth.LockedUntil != nil && auth.LockedUntil.After(now) {
		return nil, ErrAccountLocked
	}

	valid, err := utils.VerifyPassword(req.Password, auth.Password)
	if err != nil || !valid {
		s.log.Warn("登录失败：密码错误",
			zap.Uint("user_id", user.ID),
			zap.Int("attempts", auth.LoginAttempts+1))

		var lockUntil *time.Time
		if auth.LoginAttempts+1 >= maxLoginAttempts {
			t := now.Add(lockoutDuration)
			lockUntil = &t
		}
		_ = s.repos.User().RecordLoginAttempt(ctx, user.ID, false, lockUntil)
		return nil, ErrInvalidCredentials
	}

	_ = s.repos.User().RecordLoginAttempt(ctx, user.ID, true, nil)

	user.LastLoginAt = &now
	user.LastLoginIP = req.IP
	_ = s.repos.User().Update(ctx, user)

	s.log.Info("主持人已登录",
		zap.Uint("user_id", user.ID),
		zap.String("username", user.Username))

	return s.issueTokens(user)
}

// RefreshToken 刷新访问令牌
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := s.jwtManager.ValidateToken(refreshToken)
	if err != nil || claims.TokenType != "refresh" {
		return nil, ErrInvalidToken
	}

	user, err := s.repos.User().FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !user.IsActive() {
		return nil, ErrUserBanned
	}

	return s.issueTokens(user)
}

// ValidateToken 校验访问令牌
func (s *authService) ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error) {
	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != "access" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// issueTokens 签发令牌对
func (s *authService) issueTokens(user *models.User) (*AuthResponse, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, user.Username)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}, nil
}
