package game

import "time"

// 广播事件类型
const (
	EventPlayerJoined = "player_joined"
	EventGameStarted  = "game_started"
	EventRoundStart   = "round_start"
	EventBuzz         = "buzz"
	EventRoundResult  = "round_result"
	EventReveal       = "reveal"
	EventStateChange  = "state_change"
	EventGameEnd      = "game_end"
)

// Event 会话内广播事件
type Event struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// Publisher 事件发布接口，由WebSocket中心实现
//
// 协调器只在数据库写入成功之后发布事件：客户端看到的广播
// 永远不会先于（或有别于）落库的事实。
type Publisher interface {
	Publish(sessionID string, event *Event)
}

// NopPublisher 空实现，测试和离线工具用
type NopPublisher struct{}

// Publish 丢弃事件
func (NopPublisher) Publish(sessionID string, event *Event) {}

// NewEvent 创建事件
func NewEvent(eventType, sessionID string, data interface{}) *Event {
	return &Event{
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: time.Now(),
		Data:      data,
	}
}
