package models

import (
	"time"
)

// Round 回合表
//
// BuzzerPlayerID 只允许被设置一次，通过条件更新保证（见 repository.RoundRepository.ClaimBuzzer）。
// Correct/PointsAwarded 同时为空或同时非空，由判定事务一次性写入。
type Round struct {
	BaseModel
	SessionID      uint       `gorm:"not null;index;uniqueIndex:idx_session_round" json:"session_id"`
	RoundNumber    int        `gorm:"not null;uniqueIndex:idx_session_round" json:"round_number"`
	TrackID        uint       `gorm:"not null" json:"track_id"`
	BuzzerPlayerID *uint      `gorm:"index" json:"buzzer_player_id,omitempty"`
	BuzzTime       *time.Time `json:"buzz_time,omitempty"`
	ElapsedSeconds *float64   `json:"elapsed_seconds,omitempty"`
	Correct        *bool      `json:"correct,omitempty"`
	PointsAwarded  *int       `json:"points_awarded,omitempty"`

	// 关联
	Track Track `gorm:"foreignKey:TrackID" json:"track,omitempty"`
}

// Judged 回合是否已判定
func (r *Round) Judged() bool {
	return r.Correct != nil
}

// RoundAnswer 文字抢答模式下的玩家答案表
type RoundAnswer struct {
	BaseModel
	RoundID       uint   `gorm:"not null;index;uniqueIndex:idx_round_player" json:"round_id"`
	PlayerID      uint   `gorm:"not null;uniqueIndex:idx_round_player" json:"player_id"`
	Text          string `gorm:"size:255;not null" json:"text"`
	// ElapsedSeconds 提交时刻距回合开始的秒数，服务端时钟计
	ElapsedSeconds float64 `gorm:"default:0" json:"elapsed_seconds"`
	AutoValidated  bool    `gorm:"default:false" json:"auto_validated"`
	IsCorrect      *bool   `json:"is_correct,omitempty"` // 主持人可覆盖自动判定
	PointsAwarded  int     `gorm:"default:0" json:"points_awarded"`
}
