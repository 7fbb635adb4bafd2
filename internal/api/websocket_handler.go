package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/wfunc/music-quiz/internal/game"
	ws "github.com/wfunc/music-quiz/internal/websocket"
	"go.uber.org/zap"
)

// WebSocketHandler WebSocket处理器
type WebSocketHandler struct {
	hub         *ws.Hub
	coordinator *game.Coordinator
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(hub *ws.Hub, coordinator *game.Coordinator, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		coordinator: coordinator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// 在生产环境中应该检查Origin
				return true
			},
		},
		logger: logger,
	}
}

// SessionWebSocket 会话事件订阅连接
//
// player_id 查询参数可选：玩家连接带上后可以通过本连接抢答，
// 不带则是旁观者连接，只收广播。
func (h *WebSocketHandler) SessionWebSocket(c *gin.Context) {
	sessionID := c.Param("id")

	// 升级前先确认会话存在，避免为无效会话占住连接
	snapshot, err := h.coordinator.Snapshot(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	var playerID uint
	if raw := c.Query("player_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_PLAYER_ID",
				"message": "player_id必须是数字",
			})
			return
		}
		playerID = uint(parsed)
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket升级失败",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, sessionID, playerID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	// 连接建立后立即推一份快照，客户端不必再发起查询
	if err := client.SendMessage(ws.MessageTypeSnapshot, snapshot); err != nil {
		h.logger.Warn("快照推送失败",
			zap.String("client_id", client.ID),
			zap.Error(err))
	}

	h.logger.Info("WebSocket连接建立",
		zap.String("client_id", client.ID),
		zap.String("session_id", sessionID),
		zap.Uint("player_id", playerID))
}
