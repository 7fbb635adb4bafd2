package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/music-quiz/internal/audio"
)

// AudioHandler 音频令牌处理器
type AudioHandler struct {
	tokens *audio.TokenProvider
}

// NewAudioHandler 创建音频令牌处理器
func NewAudioHandler(tokens *audio.TokenProvider) *AudioHandler {
	return &AudioHandler{tokens: tokens}
}

// Token 获取音频播放令牌
//
// 令牌在进程内缓存并用singleflight合并并发刷新，
// 上游授权服务不会被同一批玩家打穿。
// @Summary 获取音频播放令牌
// @Tags Audio
// @Produce json
// @Success 200 {object} audio.Token
// @Failure 503 {object} apperrors.ErrorResponse
// @Router /api/v1/audio/token [get]
func (h *AudioHandler) Token(c *gin.Context) {
	token, err := h.tokens.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, token)
}
