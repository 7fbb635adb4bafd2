package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/music-quiz/internal/repository"
	"github.com/wfunc/music-quiz/internal/utils"
	"gorm.io/gorm"
)

// AuthServiceTestSuite 认证服务测试套件
type AuthServiceTestSuite struct {
	suite.Suite
	db    *gorm.DB
	repos *repository.Manager
	auth  AuthService
}

func (suite *AuthServiceTestSuite) SetupTest() {
	suite.db = repository.SetupTestDB()
	suite.repos = repository.NewManager(suite.db)
	jwtManager := utils.NewJWTManager("test-secret", time.Hour, 24*time.Hour)
	suite.auth = NewAuthService(suite.repos, jwtManager)
}

func (suite *AuthServiceTestSuite) TearDownTest() {
	repository.CleanupTestDB(suite.db)
}

func (suite *AuthServiceTestSuite) register(username, password string) *AuthResponse {
	resp, err := suite.auth.Register(context.Background(), &RegisterRequest{
		Username: username,
		Password: password,
		Nickname: "测试主持人",
	})
	suite.Require().NoError(err)
	return resp
}

// TestRegister_And_Login 注册后可登录
func (suite *AuthServiceTestSuite) TestRegister_And_Login() {
	ctx := context.Background()
	resp := suite.register("host1", "password123")
	assert.NotEmpty(suite.T(), resp.AccessToken)
	assert.NotEmpty(suite.T(), resp.RefreshToken)
	assert.Equal(suite.T(), "Bearer", resp.TokenType)

	login, err := suite.auth.Login(ctx, &LoginRequest{Username: "host1", Password: "password123"})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), resp.User.ID, login.User.ID)

	// 登录成功后令牌可用
	claims, err := suite.auth.ValidateToken(ctx, login.AccessToken)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), "host1", claims.Username)
}

// TestRegister_Rules 注册规则
func (suite *AuthServiceTestSuite) TestRegister_Rules() {
	ctx := context.Background()
	suite.register("host1", "password123")

	// 用户名重复
	_, err := suite.auth.Register(ctx, &RegisterRequest{Username: "host1", Password: "password456"})
	assert.ErrorIs(suite.T(), err, ErrUsernameTaken)

	// 弱密码
	_, err = suite.auth.Register(ctx, &RegisterRequest{Username: "host2", Password: "short"})
	assert.ErrorIs(suite.T(), err, ErrWeakPassword)
}

// TestLogin_WrongPassword 密码错误
func (suite *AuthServiceTestSuite) TestLogin_WrongPassword() {
	ctx := context.Background()
	suite.register("host1", "password123")

	_, err := suite.auth.Login(ctx, &LoginRequest{Username: "host1", Password: "wrong"})
	assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)

	_, err = suite.auth.Login(ctx, &LoginRequest{Username: "没注册过", Password: "password123"})
	assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)
}

// TestLogin_Lockout 连续失败锁定
func (suite *AuthServiceTestSuite) TestLogin_Lockout() {
	ctx := context.Background()
	suite.register("host1", "password123")

	for i := 0; i < maxLoginAttempts; i++ {
		_, err := suite.auth.Login(ctx, &LoginRequest{Username: "host1", Password: "wrong"})
		assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)
	}

	// 锁定期内正确密码也不行
	_, err := suite.auth.Login(ctx, &LoginRequest{Username: "host1", Password: "password123"})
	assert.ErrorIs(suite.T(), err, ErrAccountLocked)
}

// TestRefreshToken 刷新令牌
func (suite *AuthServiceTestSuite) TestRefreshToken() {
	ctx := context.Background()
	resp := suite.register("host1", "password123")

	refreshed, err := suite.auth.RefreshToken(ctx, resp.RefreshToken)
	suite.Require().NoError(err)
	assert.NotEmpty(suite.T(), refreshed.AccessToken)

	// 访问令牌不能当刷新令牌
	_, err = suite.auth.RefreshToken(ctx, resp.AccessToken)
	assert.ErrorIs(suite.T(), err, ErrInvalidToken)
}

// TestValidateToken_RejectsRefresh 校验只认访问令牌
func (suite *AuthServiceTestSuite) TestValidateToken_RejectsRefresh() {
	ctx := context.Background()
	resp := suite.register("host1", "password123")

	_, err := suite.auth.ValidateToken(ctx, resp.RefreshToken)
	assert.ErrorIs(suite.T(), err, ErrInvalidToken)

	_, err = suite.auth.ValidateToken(ctx, "乱写的令牌")
	assert.ErrorIs(suite.T(), err, ErrInvalidToken)
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
