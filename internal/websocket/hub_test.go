package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/music-quiz/internal/game"
	"go.uber.org/zap"
)

// fakeClient 不挂真连接的客户端，只收Send通道
func fakeClient(hub *Hub, sessionID string, playerID uint) *Client {
	return NewClient(hub, nil, sessionID, playerID)
}

// recv 带超时读取客户端收到的消息
func recv(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case data := <-c.Send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return &msg
	case <-time.After(time.Second):
		t.Fatal("等待消息超时")
		return nil
	}
}

func TestHub_RegisterAndPublish(t *testing.T) {
	hub := NewHub(zap.NewNop())

	a1 := fakeClient(hub, "session-a", 1)
	a2 := fakeClient(hub, "session-a", 2)
	b1 := fakeClient(hub, "session-b", 3)

	hub.registerClient(a1)
	hub.registerClient(a2)
	hub.registerClient(b1)

	// 注册回执
	assert.Equal(t, MessageTypeConnected, recv(t, a1).Type)
	assert.Equal(t, MessageTypeConnected, recv(t, a2).Type)
	assert.Equal(t, MessageTypeConnected, recv(t, b1).Type)

	assert.Equal(t, 2, hub.SessionClientCount("session-a"))
	assert.Equal(t, 3, hub.GetOnlineCount())

	// 事件只到目标会话
	hub.Publish("session-a", game.NewEvent(game.EventBuzz, "session-a", map[string]interface{}{
		"player_id": 1,
	}))
	hub.deliver(<-hub.broadcast)

	assert.Equal(t, game.EventBuzz, recv(t, a1).Type)
	assert.Equal(t, game.EventBuzz, recv(t, a2).Type)
	assert.Empty(t, b1.Send)
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub(zap.NewNop())

	c1 := fakeClient(hub, "session-a", 1)
	c2 := fakeClient(hub, "session-a", 2)
	hub.registerClient(c1)
	hub.registerClient(c2)

	hub.unregisterClient(c1)
	assert.Equal(t, 1, hub.SessionClientCount("session-a"))
	assert.Equal(t, 1, hub.GetOnlineCount())

	// 通道被关闭
	_, ok := <-c1.Send
	for ok {
		_, ok = <-c1.Send
	}
	assert.False(t, ok)

	hub.unregisterClient(c2)
	assert.Equal(t, 0, hub.SessionClientCount("session-a"))
}

func TestHub_SendToClient(t *testing.T) {
	hub := NewHub(zap.NewNop())

	c := fakeClient(hub, "session-a", 1)
	hub.registerClient(c)
	recv(t, c) // 消费注册回执

	err := hub.SendToClient(c.ID, &Message{Type: MessageTypeSnapshot, Timestamp: time.Now().Unix()})
	require.NoError(t, err)
	assert.Equal(t, MessageTypeSnapshot, recv(t, c).Type)

	err = hub.SendToClient("不存在的ID", &Message{Type: MessageTypePing})
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestHub_PublishToEmptySession(t *testing.T) {
	hub := NewHub(zap.NewNop())

	// 没有客户端也不崩
	hub.Publish("空会话", game.NewEvent(game.EventReveal, "空会话", nil))
	hub.deliver(<-hub.broadcast)
}
