package game

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/music-quiz/internal/config"
	apperrors "github.com/wfunc/music-quiz/internal/errors"
	"github.com/wfunc/music-quiz/internal/logger"
	"github.com/wfunc/music-quiz/internal/models"
	"github.com/wfunc/music-quiz/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Coordinator 游戏协调器
//
// 无内存状态：会话的全部事实都在数据库里，先抢先判的互斥
// 由仓储层的条件更新保证，协调器负责编排和事件广播。
// 多实例部署时各实例共享同一数据库即可，不需要互相感知。
type Coordinator struct {
	repos     *repository.Manager
	publisher Publisher
	cfg       *config.GameConfig
	logger    *zap.Logger
	now       func() time.Time
	rng       *rand.Rand
}

// NewCoordinator 创建协调器
func NewCoordinator(repos *repository.Manager, publisher Publisher, cfg *config.GameConfig) *Coordinator {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Coordinator{
		repos:     repos,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.GetModuleLogger("game"),
		now:       time.Now,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateSessionRequest 建房参数
type CreateSessionRequest struct {
	HostUserID      uint   `json:"-"`
	PackID          uint   `json:"pack_id" binding:"required"`
	TotalRounds     int    `json:"total_rounds"`
	Difficulty      string `json:"difficulty"`
	AllowHostToPlay bool   `json:"allow_host_to_play"`
	AllowSingleUser bool   `json:"allow_single_user"`
	EnableTextInput bool   `json:"enable_text_input"`
}

// CreateSession 建房
func (c *Coordinator) CreateSession(ctx context.Context, req *CreateSessionRequest) (*models.GameSession, error) {
	if req.TotalRounds <= 0 || req.TotalRounds > c.cfg.Round.MaxRounds {
		req.TotalRounds = c.cfg.Round.MaxRounds
	}
	if req.Difficulty == "" {
		req.Difficulty = "any"
	}

	if _, err := c.repos.Pack().FindByID(ctx, req.PackID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound, "曲包不存在")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	count, err := c.repos.Pack().CountTracks(ctx, req.PackID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	if count < int64(req.TotalRounds) {
		return nil, apperrors.Newf(apperrors.ErrPackTooSmall,
			"曲包仅%d首，不足%d回合", count, req.TotalRounds)
	}

	session := &models.GameSession{
		SessionID:       uuid.NewString(),
		HostUserID:      req.HostUserID,
		PackID:          req.PackID,
		State:           models.SessionStateLobby,
		TotalRounds:     req.TotalRounds,
		Difficulty:      req.Difficulty,
		AllowHostToPlay: req.AllowHostToPlay,
		AllowSingleUser: req.AllowSingleUser,
		EnableTextInput: req.EnableTextInput,
	}
	if err := c.repos.Session().Create(ctx, session); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
	}

	c.logger.Info("会话已创建",
		zap.String("session_id", session.SessionID),
		zap.Uint("pack_id", req.PackID),
		zap.Int("total_rounds", req.TotalRounds),
		zap.String("difficulty", req.Difficulty))

	return session, nil
}

// Join 玩家加入会话
func (c *Coordinator) Join(ctx context.Context, sessionID, name, externalID string) (*models.Player, error) {
	session, err := c.findSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.State != models.SessionStateLobby {
		return nil, apperrors.New(apperrors.ErrStateTransition, "游戏已开始，无法加入").
			WithState(session.State)
	}

	count, err := c.repos.Player().CountBySession(ctx, session.ID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	if count >= int64(c.cfg.Players.Max) {
		return nil, apperrors.New(apperrors.ErrSessionFull)
	}

	player := &models.Player{
		SessionID:  session.ID,
		Name:       strings.TrimSpace(name),
		ExternalID: externalID,
		JoinedAt:   c.now(),
	}
	if player.Name == "" {
		return nil, apperrors.New(apperrors.ErrInvalidParam, "昵称不能为空")
	}

	if err := c.repos.Player().Create(ctx, player); err != nil {
		if errors.Is(err, repository.ErrNameTaken) {
			return nil, apperrors.New(apperrors.ErrNameTaken)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
	}

	c.publisher.Publish(sessionID, NewEvent(EventPlayerJoined, sessionID, map[string]interface{}{
		"player_id": player.ID,
		"name":      player.Name,
	}))

	return player, nil
}

// Start 主持人开局
//
// 开局时一次性选好整场的曲目并落库成回合，之后每回合只做状态
// 流转，选曲的随机性和艺人去重都定格在这一刻。
func (c *Coordinator) Start(ctx context.Context, sessionID string) (*models.GameSession, error) {
	session, err := c.findSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if _, terr := Transition(session.State, ActionStart, c.transitionContext(session)); terr != nil {
		return nil, terr
	}

	if err := c.checkPlayerCount(ctx, session); err != nil {
		return nil, err
	}

	tracks, err := c.repos.Pack().AllTracks(ctx, session.PackID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	selector := NewSelector(c.rng, &c.cfg.Selector)
	picked := selector.PickN(tracks, session.Difficulty, session.TotalRounds)
	if len(picked) < session.TotalRounds {
		return nil, apperrors.Newf(apperrors.ErrPackTooSmall,
			"可选曲目仅%d首，不足%d回合", len(picked), session.TotalRounds)
	}

	rounds := make([]*models.Round, 0, len(picked))
	for i, track := range picked {
		rounds = append(rounds, &models.Round{
			SessionID:   session.ID,
			RoundNumber: i + 1,
			TrackID:     track.ID,
		})
	}

	now := c.now()
	err = c.repos.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&rounds).Error; err != nil {
			return err
		}
		result := tx.Model(&models.GameSession{}).
			Where("session_id = ? AND state IN ?", sessionID, FromStates(ActionStart)).
			Updates(map[string]interface{}{
				"state":      models.SessionStateReady,
				"started_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repository.ErrStateConflict
		}
		return nil
	})
	if err != nil {
		return nil, c.translateConflict(ctx, sessionID, err)
	}

	c.logger.Info("游戏开始",
		zap.String("session_id", sessionID),
		zap.Int("rounds", len(rounds)))

	c.publisher.Publish(sessionID, NewEvent(EventGameStarted, sessionID, map[string]interface{}{
		"total_rounds": session.TotalRounds,
		"difficulty":   session.Difficulty,
	}))

	session.State = models.SessionStateReady
	session.StartedAt = &now
	return session, nil
}

// Play 主持人放歌，开始一个回合的计时
func (c *Coordinator) Play(ctx context.Context, sessionID string) (*RoundInfo, error) {
	session, err := c.findSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if _, terr := Transition(session.State, ActionPlay, c.transitionContext(session)); terr != nil {
		return nil, terr
	}

	nextRound := session.CurrentRound + 1
	round, err := c.repos.Round().FindBySessionAndNumber(ctx, session.ID, nextRound)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	now := c.now()
	err = c.repos.Session().TransitionState(ctx, sessionID, FromStates(ActionPlay),
		map[string]interface{}{
			"state":            models.SessionStatePlaying,
			"current_round":    nextRound,
			"round_start_time": now,
		})
	if err != nil {
		return nil, c.translateConflict(ctx, sessionID, err)
	}

	info := &RoundInfo{
		RoundNumber:     nextRound,
		TotalRounds:     session.TotalRounds,
		PreviewURL:      round.Track.PreviewURL,
		DurationSeconds: round.Track.DurationSeconds,
		StartedAt:       now,
	}

	// 广播不带曲名和艺人，公布答案前客户端不应知道
	c.publisher.Publish(sessionID, NewEvent(EventRoundStart, sessionID, info))

	return info, nil
}

// Buzz 玩家抢答
//
// 耗时由服务端按回合开始时间计算，客户端报的时间一概不信。
// 谁先落座由回合行上的条件更新决定，输家收到 ErrBuzzTooLate。
func (c *Coordinator) Buzz(ctx context.Context, sessionID string, playerID uint) (*BuzzResult, error) {
	session, err := c.findSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if _, terr := Transition(session.State, ActionBuzz, c.transitionContext(session)); terr != nil {
		return nil, terr
	}

	if session.RoundStartTime == nil {
		return nil, apperrors.New(apperrors.ErrRoundNotStarted).WithState(session.State)
	}

	player, err := c.repos.Player().FindByID(ctx, playerID)
	if err != nil || player.SessionID != session.ID {
		return nil, apperrors.New(apperrors.ErrNotFound, "玩家不在本会话中")
	}

	now := c.now()
	elapsed := now.Sub(*session.RoundStartTime).Seconds()
	if !ValidElapsed(elapsed, c.cfg.Round.MaxTrackSeconds) {
		return nil, apperrors.Newf(apperrors.ErrElapsedOutOfRange, "耗时%.2f秒", elapsed)
	}

	round, err := c.repos.Round().FindBySessionAndNumber(ctx, session.ID, session.CurrentRound)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	// 先占座再流转：占座是唯一的竞争裁决点
	if err := c.repos.Round().ClaimBuzzer(ctx, round.ID, playerID, now, elapsed); err != nil {
		if errors.Is(err, repository.ErrBuzzerTaken) {
			return nil, apperrors.New(apperrors.ErrBuzzTooLate).WithState(session.State)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseUpdate)
	}

	// 占座已落库：会话被并发的结束/超时推走也不吞掉抢答结果，
	// 只有真正的数据库故障才报错
	transitioned := true
	err = c.repos.Session().TransitionState(ctx, sessionID, FromStates(ActionBuzz),
		map[string]interface{}{"state": models.SessionStateBuzzed})
	if err != nil {
		if !errors.Is(err, repository.ErrStateConflict) {
			return nil, apperrors.Wrap(err, apperrors.ErrDatabaseUpdate)
		}
		transitioned = false
		c.logger.Warn("抢答落座后会话状态已变化",
			zap.String("session_id", sessionID),
			zap.Uint("player_id", playerID))
	}

	c.logger.Info("抢答成功",
		zap.String("session_id", sessionID),
		zap.Uint("player_id", playerID),
		zap.Float64("elapsed", elapsed))

	result := &BuzzResult{
		PlayerID:       playerID,
		PlayerName:     player.Name,
		ElapsedSeconds: elapsed,
	}
	c.publisher.Publish(sessionID, NewEvent(EventBuzz, sessionID, result))
	if transitioned {
		c.publisher.Publish(sessionID, NewEvent(EventStateChange, sessionID, map[string]interface{}{
			"state": models.SessionStateBuzzed,
			"round": session.CurrentRound,
		}))
	}

	return result, nil
}

// SubmitAnswer 文字模式提交答案
//
// 与曲名做归一化比对得出预判，主持人判定时可以逐个覆盖。
// 会话只在全员交卷后才推进到submitted，之前的提交仅记录在案。
func (c *Coordinator) SubmitAnswer(ctx context.Context, sessionID string, playerID uint, text string) (*SubmitResult, error) {
	session, err := c.findSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if _, terr := Transition(session.State, ActionSubmit, c.transitionContext(session)); terr != nil {
		return nil, terr
	}

	if session.RoundStartTime == nil {
		return nil, apperrors.New(apperrors.ErrRoundNotStarted).WithState(session.State)
	}

	round, err := c.repos.Round().FindBySessionAndNumber(ctx, session.ID, session.CurrentRound)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	// 耗时在提交时刻用服务端时钟定格，判定阶段直接取用
	answer := &models.RoundAnswer{
		RoundID:        round.ID,
		PlayerID:       playerID,
		Text:           strings.TrimSpace(text),
		ElapsedSeconds: c.now().Sub(*session.RoundStartTime).Seconds(),
		AutoValidated:  MatchTitle(text, round.Track.Title),
	}
	if err := c.repos.Round().CreateAnswer(ctx, answer); err != nil {
		if errors.Is(err, repository.ErrDuplicateAnswer) {
			return nil, apperrors.New(apperrors.ErrDuplicateAnswer).WithState(session.State)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
	}

	playerCount, err := c.repos.Player().CountBySession(ctx, session.ID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	answers, err := c.repos.Round().ListAnswers(ctx, round.ID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	allSubmitted := int64(len(answers)) >= playerCount

	if allSubmitted {
		// 并发的末位提交者可能已经流转过，条件未命中不是错误
		err = c.repos.Session().TransitionState(ctx, sessionID,
			[]string{models.SessionStatePlaying},
			map[string]interface{}{"state": models.SessionStateSubmitted})
		if err != nil && !errors.Is(err, repository.ErrStateConflict) {
			return nil, apperrors.Wrap(err, apperrors.ErrDatabaseUpdate)
		}

		c.publisher.Publish(sessionID, NewEvent(EventStateChange, sessionID, map[string]interface{}{
			"state": models.SessionStateSubmitted,
			"round": session.CurrentRound,
		}))
	}

	return &SubmitResult{Answer: answer, AllSubmitted: allSubmitted}, nil
}

// JudgeRequest 判定参数
type JudgeRequest struct {
	// Correct 抢答模式下对抢答者的判定
	Correct bool `json:"correct"`
	// Overrides 文字模式下对自动预判的逐个覆盖，键为玩家ID
	Overrides map[uint]bool `json:"overrides,omitempty"`
}

// Judge 主持人判定
//
// 判回合、记分、状态流转在同一事务内完成：不存在
// "分加了但回合没判"或反过来的中间态。重复判定被回合行上的
// 条件更新挡住，整个事务回滚。
func (c *Coordinator) Judge(ctx context.Context, sessionID string, req *JudgeRequest) (*RoundResult, error) {
	session, err := c.findSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if _, terr := Transition(session.State, ActionJudge, c.transitionContext(session)); terr != nil {
		return nil, terr
	}

	round, err := c.repos.Round().FindBySessionAndNumber(ctx, session.ID, session.CurrentRound)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	var result *RoundResult
	if session.State == models.SessionStateBuzzed {
		result, err = c.judgeBuzzer(ctx, session, round, req.Correct)
	} else {
		result, err = c.judgeAnswers(ctx, session, round, req.Overrides)
	}
	if err != nil {
		return nil, err
	}

	c.publisher.Publish(sessionID, NewEvent(EventRoundResult, sessionID, result))
	c.publishReveal(sessionID, round)
	c.publisher.Publish(sessionID, NewEvent(EventStateChange, sessionID, map[string]interface{}{
		"state": models.SessionStateReveal,
		"round": session.CurrentRound,
	}))

	return result, nil
}

// judgeBuzzer 抢答模式判定
func (c *Coordinator) judgeBuzzer(ctx context.Context, session *models.GameSession, round *models.Round, correct bool) (*RoundResult, error) {
	if round.BuzzerPlayerID == nil || round.ElapsedSeconds == nil {
		return nil, apperrors.New(apperrors.ErrStateTransition, "本回合无人抢答").
			WithState(session.State)
	}

	points := Score(*round.ElapsedSeconds, correct, &c.cfg.Scoring)
	playerID := *round.BuzzerPlayerID

	err := c.repos.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := c.repos.Round().Judge(ctx, tx, round.ID, correct, points); err != nil {
			return err
		}

		if err := c.repos.Player().AddScore(ctx, tx, playerID, points); err != nil {
			return err
		}

		return c.transitionInTx(tx, session.SessionID, FromStates(ActionJudge),
			map[string]interface{}{"state": models.SessionStateReveal})
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyJudged) {
			return nil, apperrors.New(apperrors.ErrAlreadyJudged).WithState(session.State)
		}
		return nil, c.translateConflict(ctx, session.SessionID, err)
	}

	c.logger.Info("回合已判定",
		zap.String("session_id", session.SessionID),
		zap.Int("round", session.CurrentRound),
		zap.Bool("correct", correct),
		zap.Int("points", points))

	return &RoundResult{
		RoundNumber: session.CurrentRound,
		Correct:     correct,
		Awards: []PlayerAward{{
			PlayerID: playerID,
			Points:   points,
			Correct:  correct,
		}},
	}, nil
}

// judgeAnswers 文字模式判定，覆盖表缺省时采用自动预判
func (c *Coordinator) judgeAnswers(ctx context.Context, session *models.GameSession, round *models.Round, overrides map[uint]bool) (*RoundResult, error) {
	answers, err := c.repos.Round().ListAnswers(ctx, round.ID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	type verdict struct {
		answer  *models.RoundAnswer
		correct bool
		points  int
	}

	verdicts := make([]verdict, 0, len(answers))
	anyCorrect := false
	for _, a := range answers {
		correct := a.AutoValidated
		if v, ok := overrides[a.PlayerID]; ok {
			correct = v
		}
		points := Score(a.ElapsedSeconds, correct, &c.cfg.Scoring)
		if correct {
			anyCorrect = true
		}
		verdicts = append(verdicts, verdict{answer: a, correct: correct, points: points})
	}

	err = c.repos.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := c.repos.Round().Judge(ctx, tx, round.ID, anyCorrect, 0); err != nil {
			return err
		}

		for _, v := range verdicts {
			correct := v.correct
			if err := tx.Model(&models.RoundAnswer{}).
				Where("id = ?", v.answer.ID).
				Updates(map[string]interface{}{
					"is_correct":     correct,
					"points_awarded": v.points,
				}).Error; err != nil {
				return err
			}

			if err := c.repos.Player().AddScore(ctx, tx, v.answer.PlayerID, v.points); err != nil {
				return err
			}
		}

		return c.transitionInTx(tx, session.SessionID, FromStates(ActionJudge),
			map[string]interface{}{"state": models.SessionStateReveal})
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyJudged) {
			return nil, apperrors.New(apperrors.ErrAlreadyJudged).WithState(session.State)
		}
		return nil, c.translateConflict(ctx, session.SessionID, err)
	}

	result := &RoundResult{
		RoundNumber: session.CurrentRound,
		Correct:     anyCorrect,
	}
	for _, v := range verdicts {
		result.Awards = append(result.Awards, PlayerAward{
			PlayerID: v.answer.PlayerID,
			Points:   v.points,
			Correct:  v.correct,
		})
	}
	return result, nil
}

// Reveal 无人抢答时直接公布答案（主持人跳过或回合超时）
func (c *Coordinator) Reveal(ctx context.Context, sessionID string) error {
	session, err := c.findSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if _, terr := Transition(session.State, ActionReveal, c.transitionContext(session)); terr != nil {
		return terr
	}

	round, err := c.repos.Round().FindBySessionAndNumber(ctx, session.ID, session.CurrentRound)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	err = c.repos.Session().TransitionState(ctx, sessionID, FromStates(ActionReveal),
		map[string]interface{}{"state": models.SessionStateReveal})
	if err != nil {
		return c.translateConflict(ctx, sessionID, err)
	}

	c.publishReveal(sessionID, round)
	return nil
}

// NextRound 进入下一回合；末回合公布后调用则直接结算
func (c *Coordinator) NextRound(ctx context.Context, sessionID string) (*NextRoundResult, error) {
	session, err := c.findSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	target, terr := Transition(session.State, ActionNextRound, c.transitionContext(session))
	if terr != nil {
		return nil, terr
	}

	if target == models.SessionStateFinished {
		finished, err := c.Finish(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		board, err := c.Leaderboard(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		return &NextRoundResult{
			Session:     finished,
			Finished:    true,
			Leaderboard: board,
		}, nil
	}

	err = c.repos.Session().TransitionState(ctx, sessionID, FromStates(ActionNextRound),
		map[string]interface{}{
			"state":            models.SessionStateReady,
			"round_start_time": nil,
		})
	if err != nil {
		return nil, c.translateConflict(ctx, sessionID, err)
	}

	c.publisher.Publish(sessionID, NewEvent(EventStateChange, sessionID, map[string]interface{}{
		"state": models.SessionStateReady,
		"round": session.CurrentRound + 1,
	}))

	session.State = models.SessionStateReady
	return &NextRoundResult{Session: session}, nil
}

// Finish 结束游戏，广播最终排行榜
func (c *Coordinator) Finish(ctx context.Context, sessionID string) (*models.GameSession, error) {
	session, err := c.findSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if _, terr := Transition(session.State, ActionFinish, c.transitionContext(session)); terr != nil {
		return nil, terr
	}

	now := c.now()
	err = c.repos.Session().TransitionState(ctx, sessionID, FromStates(ActionFinish),
		map[string]interface{}{
			"state":       models.SessionStateFinished,
			"finished_at": now,
		})
	if err != nil {
		return nil, c.translateConflict(ctx, sessionID, err)
	}

	board, err := c.Leaderboard(ctx, sessionID)
	if err != nil {
		c.logger.Warn("结算排行榜查询失败", zap.String("session_id", sessionID), zap.Error(err))
		board = nil
	}

	c.logger.Info("游戏结束", zap.String("session_id", sessionID))
	c.publisher.Publish(sessionID, NewEvent(EventGameEnd, sessionID, map[string]interface{}{
		"leaderboard": board,
	}))

	session.State = models.SessionStateFinished
	session.FinishedAt = &now
	return session, nil
}

// Snapshot 会话快照，重连的客户端靠它重建本地状态
//
// 曲目信息只在reveal和finished状态暴露，其余状态只给播放所需的字段。
func (c *Coordinator) Snapshot(ctx context.Context, sessionID string) (*SessionSnapshot, error) {
	session, err := c.findSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	players, err := c.repos.Player().ListBySession(ctx, session.ID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	snapshot := &SessionSnapshot{
		SessionID:       session.SessionID,
		State:           session.State,
		CurrentRound:    session.CurrentRound,
		TotalRounds:     session.TotalRounds,
		Difficulty:      session.Difficulty,
		EnableTextInput: session.EnableTextInput,
		Players:         players,
	}

	if session.CurrentRound > 0 && !IsTerminal(session.State) {
		round, err := c.repos.Round().FindBySessionAndNumber(ctx, session.ID, session.CurrentRound)
		if err == nil {
			snapshot.Round = c.roundView(session, round)
		}
	}

	return snapshot, nil
}

// Leaderboard 会话排行榜
func (c *Coordinator) Leaderboard(ctx context.Context, sessionID string) ([]LeaderboardEntry, error) {
	session, err := c.findSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	players, err := c.repos.Player().ListBySession(ctx, session.ID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	entries := make([]LeaderboardEntry, 0, len(players))
	for i, p := range players {
		entry := LeaderboardEntry{
			Rank:     i + 1,
			PlayerID: p.ID,
			Name:     p.Name,
			Score:    p.Score,
		}
		if p.ExternalID != "" {
			if best, err := c.repos.Player().BestScore(ctx, p.ExternalID); err == nil {
				entry.PersonalBest = best
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// findSession 按会话ID查找并翻译错误
func (c *Coordinator) findSession(ctx context.Context, sessionID string) (*models.GameSession, error) {
	session, err := c.repos.Session().FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound, "会话不存在")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return session, nil
}

func (c *Coordinator) transitionContext(session *models.GameSession) TransitionContext {
	return TransitionContext{
		CurrentRound:    session.CurrentRound,
		TotalRounds:     session.TotalRounds,
		EnableTextInput: session.EnableTextInput,
	}
}

// checkPlayerCount 校验开局人数
func (c *Coordinator) checkPlayerCount(ctx context.Context, session *models.GameSession) error {
	count, err := c.repos.Player().CountBySession(ctx, session.ID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	min := c.cfg.Players.Min
	if session.AllowHostToPlay {
		min--
	}
	if session.AllowSingleUser {
		min = 1
	}
	if min < 1 {
		min = 1
	}

	if count < int64(min) {
		return apperrors.Newf(apperrors.ErrPlayerCount, "当前%d人，至少需要%d人", count, min)
	}
	return nil
}

// transitionInTx 事务内的会话状态条件更新
func (c *Coordinator) transitionInTx(tx *gorm.DB, sessionID string, from []string, updates map[string]interface{}) error {
	result := tx.Model(&models.GameSession{}).
		Where("session_id = ? AND state IN ?", sessionID, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repository.ErrStateConflict
	}
	return nil
}

// translateConflict 条件更新未命中时，带上数据库里的最新状态返回
func (c *Coordinator) translateConflict(ctx context.Context, sessionID string, err error) error {
	if !errors.Is(err, repository.ErrStateConflict) {
		return apperrors.Wrap(err, apperrors.ErrDatabaseUpdate)
	}

	state := ""
	if current, ferr := c.repos.Session().FindBySessionID(ctx, sessionID); ferr == nil {
		state = current.State
	}
	return apperrors.New(apperrors.ErrStateConflict).WithState(state)
}

// publishReveal 公布曲目答案
func (c *Coordinator) publishReveal(sessionID string, round *models.Round) {
	artists := make([]string, 0, len(round.Track.Artists))
	for _, a := range round.Track.Artists {
		artists = append(artists, a.Name)
	}
	c.publisher.Publish(sessionID, NewEvent(EventReveal, sessionID, map[string]interface{}{
		"round":   round.RoundNumber,
		"title":   round.Track.Title,
		"artists": artists,
		"year":    round.Track.ReleaseYear,
	}))
}
