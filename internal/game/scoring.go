package game

import (
	"math"

	"github.com/wfunc/music-quiz/internal/config"
)

// Score 根据抢答耗时计算本回合得分
//
// 答对：从满分起每过一整秒衰减一档，衰减到保底分为止。
// 答错：固定扣分（负值），不随时间变化。
func Score(elapsed float64, correct bool, cfg *config.ScoringConfig) int {
	if !correct {
		return cfg.WrongPenalty
	}

	if elapsed < 0 {
		elapsed = 0
	}

	points := cfg.MaxPoints - int(math.Floor(elapsed))*cfg.DecayPerSecond
	if points < cfg.FloorPoints {
		points = cfg.FloorPoints
	}
	return points
}

// ValidElapsed 抢答耗时是否落在回合允许的区间内
//
// 客户端时钟漂移可能送来负数，曲目最长播放时间之外的抢答同样无效。
func ValidElapsed(elapsed float64, maxTrackSeconds float64) bool {
	return elapsed >= 0 && elapsed <= maxTrackSeconds
}
