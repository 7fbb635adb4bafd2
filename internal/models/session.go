package models

import (
	"time"
)

// 会话状态
const (
	SessionStateLobby     = "lobby"
	SessionStateReady     = "ready"
	SessionStatePlaying   = "playing"
	SessionStateBuzzed    = "buzzed"
	SessionStateSubmitted = "submitted"
	SessionStateReveal    = "reveal"
	SessionStateFinished  = "finished"
)

// GameSession 游戏会话表
type GameSession struct {
	BaseModel
	SessionID       string     `gorm:"uniqueIndex;size:64;not null" json:"session_id"`
	HostUserID      uint       `gorm:"not null;index" json:"host_user_id"`
	PackID          uint       `gorm:"not null;index" json:"pack_id"`
	State           string     `gorm:"size:20;not null;default:'lobby'" json:"state"`
	CurrentRound    int        `gorm:"default:0" json:"current_round"`
	TotalRounds     int        `gorm:"not null" json:"total_rounds"`
	RoundStartTime  *time.Time `json:"round_start_time,omitempty"`
	AllowHostToPlay bool       `gorm:"default:false" json:"allow_host_to_play"`
	AllowSingleUser bool       `gorm:"default:false" json:"allow_single_user"`
	EnableTextInput bool       `gorm:"default:false" json:"enable_text_input"`
	Difficulty      string     `gorm:"size:20;default:'any'" json:"difficulty"` // easy, normal, hard, expert, any
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`

	// 关联
	Pack    Pack     `gorm:"foreignKey:PackID" json:"pack,omitempty"`
	Players []Player `gorm:"foreignKey:SessionID;references:ID" json:"players,omitempty"`
}

// Player 会话参与者表
type Player struct {
	BaseModel
	SessionID  uint      `gorm:"not null;index;uniqueIndex:idx_session_name" json:"session_id"`
	Name       string    `gorm:"size:50;not null;uniqueIndex:idx_session_name" json:"name"`
	Score      int       `gorm:"default:0" json:"score"`
	IsHost     bool      `gorm:"default:false" json:"is_host"`
	ExternalID string    `gorm:"size:100;index" json:"external_id,omitempty"` // 跨会话个人最佳榜用
	JoinedAt   time.Time `json:"joined_at"`
}
