package game

import (
	"context"
	"time"

	"github.com/wfunc/music-quiz/internal/models"
	"go.uber.org/zap"
)

// Sweeper 回合超时扫描器
//
// 周期性扫描playing状态的会话，回合开始后一直无人抢答的，
// 走与主持人跳过完全相同的条件更新路径公布答案。与真人操作
// 撞上时条件未命中，这一轮静默放弃。
type Sweeper struct {
	coordinator *Coordinator
	interval    time.Duration
	timeout     time.Duration
	logger      *zap.Logger
	stop        chan struct{}
	done        chan struct{}
}

// NewSweeper 创建扫描器
func NewSweeper(coordinator *Coordinator, interval, timeout time.Duration) *Sweeper {
	return &Sweeper{
		coordinator: coordinator,
		interval:    interval,
		timeout:     timeout,
		logger:      coordinator.logger.Named("sweeper"),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start 启动后台扫描
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

// Stop 停止扫描并等待当前一轮完成
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}

// sweep 扫描一轮
func (s *Sweeper) sweep(ctx context.Context) {
	sessions, err := s.coordinator.repos.Session().FindByState(ctx,
		[]string{models.SessionStatePlaying})
	if err != nil {
		s.logger.Error("超时扫描查询失败", zap.Error(err))
		return
	}

	now := s.coordinator.now()
	for _, session := range sessions {
		if session.RoundStartTime == nil {
			continue
		}
		if now.Sub(*session.RoundStartTime) < s.timeout {
			continue
		}

		if err := s.coordinator.Reveal(ctx, session.SessionID); err != nil {
			// 条件未命中说明有人抢先操作了，不算故障
			s.logger.Debug("超时公布未生效",
				zap.String("session_id", session.SessionID),
				zap.Error(err))
			continue
		}

		s.logger.Info("回合超时，已公布答案",
			zap.String("session_id", session.SessionID),
			zap.Int("round", session.CurrentRound))
	}
}
