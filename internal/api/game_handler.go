package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/music-quiz/internal/errors"
	"github.com/wfunc/music-quiz/internal/game"
	"github.com/wfunc/music-quiz/internal/middleware"
	"github.com/wfunc/music-quiz/internal/models"
	"github.com/wfunc/music-quiz/internal/repository"
	"gorm.io/gorm"
)

// GameHandler 游戏会话处理器
//
// 主持人操作（建房、开局、判定等）需要登录并校验房主身份；
// 玩家操作（加入、抢答、作答）凭会话内的玩家ID，不需要账号。
type GameHandler struct {
	coordinator *game.Coordinator
	repos       *repository.Manager
}

// NewGameHandler 创建游戏处理器
func NewGameHandler(coordinator *game.Coordinator, repos *repository.Manager) *GameHandler {
	return &GameHandler{
		coordinator: coordinator,
		repos:       repos,
	}
}

// CreateSession 创建游戏会话
// @Summary 创建游戏会话
// @Tags Game
// @Accept json
// @Produce json
// @Param request body game.CreateSessionRequest true "建房参数"
// @Success 200 {object} models.GameSession
// @Router /api/v1/sessions [post]
func (h *GameHandler) CreateSession(c *gin.Context) {
	var req game.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	userID, _ := middleware.GetUserID(c)
	req.HostUserID = userID

	session, err := h.coordinator.CreateSession(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// GetSession 查询会话快照
// @Summary 查询会话快照
// @Tags Game
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} game.SessionSnapshot
// @Router /api/v1/sessions/{id} [get]
func (h *GameHandler) GetSession(c *gin.Context) {
	snapshot, err := h.coordinator.Snapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// JoinRequest 加入会话参数
type JoinRequest struct {
	Name       string `json:"name" binding:"required"`
	ExternalID string `json:"external_id"`
}

// Join 玩家加入会话
// @Summary 玩家加入会话
// @Tags Game
// @Accept json
// @Produce json
// @Param id path string true "会话ID"
// @Param request body JoinRequest true "玩家信息"
// @Success 200 {object} models.Player
// @Router /api/v1/sessions/{id}/join [post]
func (h *GameHandler) Join(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	player, err := h.coordinator.Join(c.Request.Context(), c.Param("id"), req.Name, req.ExternalID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, player)
}

// Start 开始游戏（选曲、生成回合）
// @Summary 开始游戏
// @Tags Game
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} models.GameSession
// @Router /api/v1/sessions/{id}/start [post]
func (h *GameHandler) Start(c *gin.Context) {
	if !h.requireHost(c) {
		return
	}

	session, err := h.coordinator.Start(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// Play 开始播放当前回合
// @Summary 开始播放当前回合
// @Tags Game
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} game.RoundInfo
// @Router /api/v1/sessions/{id}/play [post]
func (h *GameHandler) Play(c *gin.Context) {
	if !h.requireHost(c) {
		return
	}

	info, err := h.coordinator.Play(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// BuzzRequest 抢答参数
type BuzzRequest struct {
	PlayerID uint `json:"player_id" binding:"required"`
}

// Buzz 玩家抢答
//
// WebSocket通道是抢答的首选路径，这里保留HTTP入口
// 供弱网环境和命令行客户端兜底。
// @Summary 玩家抢答
// @Tags Game
// @Accept json
// @Produce json
// @Param id path string true "会话ID"
// @Param request body BuzzRequest true "抢答玩家"
// @Success 200 {object} game.BuzzResult
// @Failure 409 {object} apperrors.ErrorResponse
// @Router /api/v1/sessions/{id}/buzz [post]
func (h *GameHandler) Buzz(c *gin.Context) {
	var req BuzzRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.coordinator.Buzz(c.Request.Context(), c.Param("id"), req.PlayerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AnswerRequest 文字作答参数
type AnswerRequest struct {
	PlayerID uint   `json:"player_id" binding:"required"`
	Text     string `json:"text" binding:"required"`
}

// SubmitAnswer 提交文字答案
// @Summary 提交文字答案
// @Tags Game
// @Accept json
// @Produce json
// @Param id path string true "会话ID"
// @Param request body AnswerRequest true "答案"
// @Success 200 {object} game.SubmitResult
// @Router /api/v1/sessions/{id}/answer [post]
func (h *GameHandler) SubmitAnswer(c *gin.Context) {
	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.coordinator.SubmitAnswer(c.Request.Context(), c.Param("id"), req.PlayerID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Judge 主持人判定
// @Summary 主持人判定
// @Tags Game
// @Accept json
// @Produce json
// @Param id path string true "会话ID"
// @Param request body game.JudgeRequest true "判定结果"
// @Success 200 {object} game.RoundResult
// @Failure 409 {object} apperrors.ErrorResponse
// @Router /api/v1/sessions/{id}/judge [post]
func (h *GameHandler) Judge(c *gin.Context) {
	if !h.requireHost(c) {
		return
	}

	var req game.JudgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.coordinator.Judge(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Reveal 公布当前回合答案
// @Summary 公布答案
// @Tags Game
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} game.SessionSnapshot
// @Router /api/v1/sessions/{id}/reveal [post]
func (h *GameHandler) Reveal(c *gin.Context) {
	if !h.requireHost(c) {
		return
	}

	if err := h.coordinator.Reveal(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	snapshot, err := h.coordinator.Snapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// NextRound 进入下一回合；末回合公布后调用则直接结算并返回排行榜
// @Summary 进入下一回合
// @Tags Game
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} game.NextRoundResult
// @Router /api/v1/sessions/{id}/next [post]
func (h *GameHandler) NextRound(c *gin.Context) {
	if !h.requireHost(c) {
		return
	}

	result, err := h.coordinator.NextRound(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Finish 结束游戏
// @Summary 结束游戏
// @Tags Game
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} models.GameSession
// @Router /api/v1/sessions/{id}/finish [post]
func (h *GameHandler) Finish(c *gin.Context) {
	if !h.requireHost(c) {
		return
	}

	session, err := h.coordinator.Finish(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// Leaderboard 查询排行榜
// @Summary 查询排行榜
// @Tags Game
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {array} game.LeaderboardEntry
// @Router /api/v1/sessions/{id}/leaderboard [get]
func (h *GameHandler) Leaderboard(c *gin.Context) {
	entries, err := h.coordinator.Leaderboard(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}

// ListSessions 查询主持人自己的会话列表
// @Summary 查询我的会话
// @Tags Game
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {array} models.GameSession
// @Router /api/v1/sessions [get]
func (h *GameHandler) ListSessions(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    "NO_TOKEN",
			"message": "缺少认证令牌",
		})
		return
	}

	pagination := repository.NewPagination(
		queryInt(c, "page", 1),
		queryInt(c, "page_size", 20),
	)

	sessions, err := h.repos.Session().FindByHostID(c.Request.Context(), userID, pagination)
	if err != nil {
		respondError(c, apperrors.Wrap(err, apperrors.ErrDatabaseQuery))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions":   sessions,
		"pagination": pagination,
	})
}

// requireHost 校验当前登录用户是会话房主
func (h *GameHandler) requireHost(c *gin.Context) bool {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    "NO_TOKEN",
			"message": "缺少认证令牌",
		})
		return false
	}

	session, err := h.findSession(c)
	if err != nil {
		respondError(c, err)
		return false
	}

	if session.HostUserID != userID {
		c.JSON(http.StatusForbidden, gin.H{
			"code":    "NOT_HOST",
			"message": "只有房主可以执行该操作",
		})
		return false
	}

	return true
}

func (h *GameHandler) findSession(c *gin.Context) (*models.GameSession, error) {
	session, err := h.repos.Session().FindBySessionID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound, "会话不存在")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return session, nil
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if raw := c.Query(key); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			return parsed
		}
	}
	return fallback
}
