package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/wfunc/music-quiz/internal/game"
	"go.uber.org/zap"
)

// Hub WebSocket连接管理中心
//
// 客户端按会话分组，游戏事件只发给同一会话的连接。
type Hub struct {
	// 客户端连接池
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 会话ID到客户端的映射
	sessionClients map[string][]*Client
	sessionMu      sync.RWMutex

	// 消息广播通道
	broadcast chan *envelope

	// 注册/注销通道
	register   chan *Client
	unregister chan *Client

	// 客户端上行消息处理器
	messageHandler MessageHandler

	logger *zap.Logger
}

// envelope 待广播的消息及目标会话（空会话表示全员）
type envelope struct {
	sessionID string
	message   *Message
}

// Message WebSocket消息
type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// 系统消息类型，游戏事件类型见game包
const (
	MessageTypeConnected = "connected"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeError     = "error"
	MessageTypeSnapshot  = "snapshot"
	MessageTypeBuzz      = "buzz"
)

// MessageHandler 客户端上行消息处理器
type MessageHandler interface {
	HandleClientMessage(client *Client, msg *Message)
}

// NewHub 创建Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:        make(map[string]*Client),
		sessionClients: make(map[string][]*Client),
		broadcast:      make(chan *envelope, 256),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		logger:         logger,
	}
}

// SetMessageHandler 设置上行消息处理器
func (h *Hub) SetMessageHandler(handler MessageHandler) {
	h.messageHandler = handler
}

// Run 运行Hub
func (h *Hub) Run() {
	go h.runHeartbeat()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case env := <-h.broadcast:
			h.deliver(env)
		}
	}
}

// Publish 实现game.Publisher，把协调器的事件投递给会话内所有客户端
func (h *Hub) Publish(sessionID string, event *game.Event) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		h.logger.Error("事件序列化失败",
			zap.String("type", event.Type),
			zap.Error(err))
		return
	}

	msg := &Message{
		Type:      event.Type,
		SessionID: sessionID,
		Data:      data,
		Timestamp: event.Timestamp.Unix(),
	}

	select {
	case h.broadcast <- &envelope{sessionID: sessionID, message: msg}:
	default:
		h.logger.Warn("广播队列已满，事件被丢弃",
			zap.String("session_id", sessionID),
			zap.String("type", event.Type))
	}
}

// registerClient 注册客户端
func (h *Hub) registerClient(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	h.clientsMu.Unlock()

	if client.SessionID != "" {
		h.sessionMu.Lock()
		h.sessionClients[client.SessionID] = append(h.sessionClients[client.SessionID], client)
		h.sessionMu.Unlock()
	}

	h.logger.Info("WebSocket客户端连接",
		zap.String("client_id", client.ID),
		zap.String("session_id", client.SessionID))

	msg := &Message{
		Type:      MessageTypeConnected,
		SessionID: client.SessionID,
		Timestamp: time.Now().Unix(),
	}
	h.SendToClient(client.ID, msg)
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.Send)
	}
	h.clientsMu.Unlock()

	if client.SessionID != "" {
		h.sessionMu.Lock()
		clients := h.sessionClients[client.SessionID]
		for i, c := range clients {
			if c.ID == client.ID {
				h.sessionClients[client.SessionID] = append(clients[:i], clients[i+1:]...)
				break
			}
		}
		if len(h.sessionClients[client.SessionID]) == 0 {
			delete(h.sessionClients, client.SessionID)
		}
		h.sessionMu.Unlock()
	}

	h.logger.Info("WebSocket客户端断开",
		zap.String("client_id", client.ID),
		zap.String("session_id", client.SessionID))
}

// deliver 投递消息
func (h *Hub) deliver(env *envelope) {
	data, err := json.Marshal(env.message)
	if err != nil {
		h.logger.Error("序列化消息失败", zap.Error(err))
		return
	}

	if env.sessionID == "" {
		h.clientsMu.RLock()
		for _, client := range h.clients {
			h.send(client, data)
		}
		h.clientsMu.RUnlock()
		return
	}

	h.sessionMu.RLock()
	clients := h.sessionClients[env.sessionID]
	h.sessionMu.RUnlock()

	for _, client := range clients {
		h.send(client, data)
	}
}

// send 非阻塞投递，缓冲区满直接丢
func (h *Hub) send(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		h.logger.Warn("客户端发送缓冲区满",
			zap.String("client_id", client.ID),
			zap.String("session_id", client.SessionID))
	}
}

// SendToClient 发送消息给指定客户端
func (h *Hub) SendToClient(clientID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.clientsMu.RLock()
	client, ok := h.clients[clientID]
	h.clientsMu.RUnlock()

	if !ok {
		return ErrClientNotFound
	}

	select {
	case client.Send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// SessionClientCount 会话内的在线连接数
func (h *Hub) SessionClientCount(sessionID string) int {
	h.sessionMu.RLock()
	defer h.sessionMu.RUnlock()
	return len(h.sessionClients[sessionID])
}

// GetOnlineCount 获取在线连接数
func (h *Hub) GetOnlineCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// runHeartbeat 运行心跳检测
func (h *Hub) runHeartbeat() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		<-ticker.C
		ping := &Message{
			Type:      MessageTypePing,
			Timestamp: time.Now().Unix(),
		}
		h.broadcast <- &envelope{message: ping}
	}
}

// Register 注册客户端（公开方法）
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 注销客户端（公开方法）
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}
