package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/music-quiz/internal/models"
	"gorm.io/gorm"
)

// SessionRepositoryTestSuite 会话仓储测试套件
type SessionRepositoryTestSuite struct {
	suite.Suite
	db          *gorm.DB
	sessionRepo SessionRepository
}

func (suite *SessionRepositoryTestSuite) SetupTest() {
	suite.db = SetupTestDB()
	suite.sessionRepo = NewSessionRepository(suite.db)
}

func (suite *SessionRepositoryTestSuite) TearDownTest() {
	CleanupTestDB(suite.db)
}

// TestCreate_And_Find 创建与查找
func (suite *SessionRepositoryTestSuite) TestCreate_And_Find() {
	ctx := context.Background()
	pack := SeedPack(suite.T(), suite.db, 3)

	session := &models.GameSession{
		SessionID:   "quiz-abc123",
		PackID:      pack.ID,
		TotalRounds: 10,
		Difficulty:  "normal",
	}
	err := suite.sessionRepo.Create(ctx, session)
	assert.NoError(suite.T(), err)
	assert.NotZero(suite.T(), session.ID)

	found, err := suite.sessionRepo.FindBySessionID(ctx, "quiz-abc123")
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.SessionStateLobby, found.State)
	assert.Equal(suite.T(), 10, found.TotalRounds)

	_, err = suite.sessionRepo.FindBySessionID(ctx, "不存在")
	assert.ErrorIs(suite.T(), err, gorm.ErrRecordNotFound)
}

// TestTransitionState_Hit 条件命中时状态流转
func (suite *SessionRepositoryTestSuite) TestTransitionState_Hit() {
	ctx := context.Background()
	pack := SeedPack(suite.T(), suite.db, 3)
	session := SeedSession(suite.T(), suite.db, pack.ID, models.SessionStatePlaying)

	err := suite.sessionRepo.TransitionState(ctx, session.SessionID,
		[]string{models.SessionStatePlaying},
		map[string]interface{}{"state": models.SessionStateBuzzed})
	assert.NoError(suite.T(), err)

	found, err := suite.sessionRepo.FindBySessionID(ctx, session.SessionID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.SessionStateBuzzed, found.State)
}

// TestTransitionState_Miss 条件未命中不改状态
func (suite *SessionRepositoryTestSuite) TestTransitionState_Miss() {
	ctx := context.Background()
	pack := SeedPack(suite.T(), suite.db, 3)
	session := SeedSession(suite.T(), suite.db, pack.ID, models.SessionStateReveal)

	err := suite.sessionRepo.TransitionState(ctx, session.SessionID,
		[]string{models.SessionStatePlaying, models.SessionStateBuzzed},
		map[string]interface{}{"state": models.SessionStateFinished})
	assert.ErrorIs(suite.T(), err, ErrStateConflict)

	found, err := suite.sessionRepo.FindBySessionID(ctx, session.SessionID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.SessionStateReveal, found.State)
}

// TestTransitionState_MultiField 流转时附带回合字段
func (suite *SessionRepositoryTestSuite) TestTransitionState_MultiField() {
	ctx := context.Background()
	pack := SeedPack(suite.T(), suite.db, 3)
	session := SeedSession(suite.T(), suite.db, pack.ID, models.SessionStateReady)

	now := time.Now()
	err := suite.sessionRepo.TransitionState(ctx, session.SessionID,
		[]string{models.SessionStateReady},
		map[string]interface{}{
			"state":            models.SessionStatePlaying,
			"current_round":    1,
			"round_start_time": now,
		})
	suite.Require().NoError(err)

	found, err := suite.sessionRepo.FindBySessionID(ctx, session.SessionID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.SessionStatePlaying, found.State)
	assert.Equal(suite.T(), 1, found.CurrentRound)
	suite.Require().NotNil(found.RoundStartTime)
}

// TestFindByState 按状态扫描（超时清理用）
func (suite *SessionRepositoryTestSuite) TestFindByState() {
	ctx := context.Background()
	pack := SeedPack(suite.T(), suite.db, 3)
	SeedSession(suite.T(), suite.db, pack.ID, models.SessionStatePlaying)
	SeedSession(suite.T(), suite.db, pack.ID, models.SessionStateBuzzed)
	SeedSession(suite.T(), suite.db, pack.ID, models.SessionStateFinished)

	sessions, err := suite.sessionRepo.FindByState(ctx,
		[]string{models.SessionStatePlaying, models.SessionStateBuzzed})
	suite.Require().NoError(err)
	assert.Len(suite.T(), sessions, 2)
}

// TestDelete_OnlyTerminal 只允许删除lobby或finished的会话
func (suite *SessionRepositoryTestSuite) TestDelete_OnlyTerminal() {
	ctx := context.Background()
	pack := SeedPack(suite.T(), suite.db, 3)
	playing := SeedSession(suite.T(), suite.db, pack.ID, models.SessionStatePlaying)
	finished := SeedSession(suite.T(), suite.db, pack.ID, models.SessionStateFinished)

	err := suite.sessionRepo.Delete(ctx, playing.SessionID)
	assert.ErrorIs(suite.T(), err, ErrStateConflict)

	err = suite.sessionRepo.Delete(ctx, finished.SessionID)
	assert.NoError(suite.T(), err)

	_, err = suite.sessionRepo.FindBySessionID(ctx, finished.SessionID)
	assert.ErrorIs(suite.T(), err, gorm.ErrRecordNotFound)
}

func TestSessionRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(SessionRepositoryTestSuite))
}
