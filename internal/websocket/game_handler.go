package websocket

import (
	"context"
	"time"

	apperrors "github.com/wfunc/music-quiz/internal/errors"
	"github.com/wfunc/music-quiz/internal/game"
	"go.uber.org/zap"
)

// GameMessageHandler 把客户端上行消息路由到协调器
//
// 抢答走WebSocket省一次HTTP握手的延迟，先后顺序照样由
// 数据库裁决，连接快慢只影响谁先到数据库。
type GameMessageHandler struct {
	coordinator *game.Coordinator
	logger      *zap.Logger
	timeout     time.Duration
}

// NewGameMessageHandler 创建消息处理器
func NewGameMessageHandler(coordinator *game.Coordinator, logger *zap.Logger) *GameMessageHandler {
	return &GameMessageHandler{
		coordinator: coordinator,
		logger:      logger,
		timeout:     5 * time.Second,
	}
}

// HandleClientMessage 处理上行消息
func (h *GameMessageHandler) HandleClientMessage(client *Client, msg *Message) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	switch msg.Type {
	case MessageTypeBuzz:
		h.handleBuzz(ctx, client)

	case MessageTypeSnapshot:
		h.handleSnapshot(ctx, client)

	default:
		client.SendError("不支持的消息类型: " + msg.Type)
	}
}

// handleBuzz 抢答
func (h *GameMessageHandler) handleBuzz(ctx context.Context, client *Client) {
	if client.PlayerID == 0 {
		client.SendError("观战连接不能抢答")
		return
	}

	result, err := h.coordinator.Buzz(ctx, client.SessionID, client.PlayerID)
	if err != nil {
		h.sendAppError(client, err)
		return
	}

	// 成功的广播由协调器发给全会话，这里只回执给抢答者本人
	if err := client.SendMessage("buzz_accepted", result); err != nil {
		h.logger.Warn("抢答回执发送失败",
			zap.String("client_id", client.ID),
			zap.Error(err))
	}
}

// handleSnapshot 重连后的状态同步
func (h *GameMessageHandler) handleSnapshot(ctx context.Context, client *Client) {
	snapshot, err := h.coordinator.Snapshot(ctx, client.SessionID)
	if err != nil {
		h.sendAppError(client, err)
		return
	}

	if err := client.SendMessage(MessageTypeSnapshot, snapshot); err != nil {
		h.logger.Warn("快照发送失败",
			zap.String("client_id", client.ID),
			zap.Error(err))
	}
}

// sendAppError 业务错误原样回给客户端，带错误码和当前状态
func (h *GameMessageHandler) sendAppError(client *Client, err error) {
	if appErr, ok := err.(*apperrors.AppError); ok {
		if sendErr := client.SendMessage(MessageTypeError, appErr); sendErr != nil {
			h.logger.Warn("错误消息发送失败",
				zap.String("client_id", client.ID),
				zap.Error(sendErr))
		}
		return
	}
	client.SendError("操作失败")
}
