package game

import (
	"time"

	"github.com/wfunc/music-quiz/internal/models"
)

// RoundInfo 回合开始时下发给客户端的信息，不含答案
type RoundInfo struct {
	RoundNumber     int       `json:"round_number"`
	TotalRounds     int       `json:"total_rounds"`
	PreviewURL      string    `json:"preview_url"`
	DurationSeconds int       `json:"duration_seconds"`
	StartedAt       time.Time `json:"started_at"`
}

// BuzzResult 抢答成功的结果
type BuzzResult struct {
	PlayerID       uint    `json:"player_id"`
	PlayerName     string  `json:"player_name"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// PlayerAward 单个玩家的判定结果
type PlayerAward struct {
	PlayerID uint `json:"player_id"`
	Points   int  `json:"points"`
	Correct  bool `json:"correct"`
}

// RoundResult 回合判定结果
type RoundResult struct {
	RoundNumber int           `json:"round_number"`
	Correct     bool          `json:"correct"`
	Awards      []PlayerAward `json:"awards"`
}

// RoundView 快照里的当前回合视图
//
// Title/Artists 只在答案已公布时填充。
type RoundView struct {
	RoundNumber     int      `json:"round_number"`
	PreviewURL      string   `json:"preview_url,omitempty"`
	DurationSeconds int      `json:"duration_seconds,omitempty"`
	BuzzerPlayerID  *uint    `json:"buzzer_player_id,omitempty"`
	ElapsedSeconds  *float64 `json:"elapsed_seconds,omitempty"`
	Title           string   `json:"title,omitempty"`
	Artists         []string `json:"artists,omitempty"`
}

// SessionSnapshot 会话快照
type SessionSnapshot struct {
	SessionID       string           `json:"session_id"`
	State           string           `json:"state"`
	CurrentRound    int              `json:"current_round"`
	TotalRounds     int              `json:"total_rounds"`
	Difficulty      string           `json:"difficulty"`
	EnableTextInput bool             `json:"enable_text_input"`
	Players         []*models.Player `json:"players"`
	Round           *RoundView       `json:"round,omitempty"`
}

// NextRoundResult 推进回合的结果
//
// 末回合公布后推进会直接结算，Finished置位并附最终排行榜。
type NextRoundResult struct {
	Session     *models.GameSession `json:"session"`
	Finished    bool                `json:"finished"`
	Leaderboard []LeaderboardEntry  `json:"leaderboard,omitempty"`
}

// SubmitResult 文字作答的受理结果
type SubmitResult struct {
	Answer       *models.RoundAnswer `json:"answer"`
	AllSubmitted bool                `json:"all_submitted"`
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank         int    `json:"rank"`
	PlayerID     uint   `json:"player_id"`
	Name         string `json:"name"`
	Score        int    `json:"score"`
	PersonalBest int    `json:"personal_best,omitempty"`
}

// roundView 按会话状态裁剪回合信息
func (c *Coordinator) roundView(session *models.GameSession, round *models.Round) *RoundView {
	view := &RoundView{
		RoundNumber:     round.RoundNumber,
		PreviewURL:      round.Track.PreviewURL,
		DurationSeconds: round.Track.DurationSeconds,
		BuzzerPlayerID:  round.BuzzerPlayerID,
		ElapsedSeconds:  round.ElapsedSeconds,
	}

	if session.State == models.SessionStateReveal {
		view.Title = round.Track.Title
		for _, a := range round.Track.Artists {
			view.Artists = append(view.Artists, a.Name)
		}
	}

	return view
}
