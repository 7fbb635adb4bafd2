package audio

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/wfunc/music-quiz/internal/config"
	apperrors "github.com/wfunc/music-quiz/internal/errors"
	"github.com/wfunc/music-quiz/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Token 播放端令牌
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Valid 令牌是否仍然可用，留30秒余量避免客户端拿到手就过期
func (t *Token) Valid(now time.Time) bool {
	return t != nil && t.Value != "" && now.Add(30*time.Second).Before(t.ExpiresAt)
}

// TokenProvider 向上游换取播放令牌并缓存
//
// 一屋子客户端在回合开始时同时来要令牌，singleflight 把并发请求
// 合并成对上游的一次调用，其余请求等着分享结果。
type TokenProvider struct {
	endpoint string
	ttl      time.Duration
	client   *http.Client
	logger   *zap.Logger

	group  singleflight.Group
	mu     sync.RWMutex
	cached *Token

	now func() time.Time
}

// NewTokenProvider 创建令牌提供器
func NewTokenProvider(cfg *config.AudioConfig) *TokenProvider {
	return &TokenProvider{
		endpoint: cfg.TokenEndpoint,
		ttl:      cfg.TokenTTL,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.GetModuleLogger("audio"),
		now:    time.Now,
	}
}

// Get 获取可用令牌，缓存命中直接返回，否则合并刷新
func (p *TokenProvider) Get(ctx context.Context) (*Token, error) {
	p.mu.RLock()
	cached := p.cached
	p.mu.RUnlock()

	if cached.Valid(p.now()) {
		return cached, nil
	}

	v, err, _ := p.group.Do("audio-token", func() (interface{}, error) {
		// 抢到执行权之前可能已有人刷新过了
		p.mu.RLock()
		current := p.cached
		p.mu.RUnlock()
		if current.Valid(p.now()) {
			return current, nil
		}

		token, err := p.fetch(ctx)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		p.cached = token
		p.mu.Unlock()

		p.logger.Info("播放令牌已刷新", zap.Time("expires_at", token.ExpiresAt))
		return token, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Token), nil
}

// Invalidate 作废缓存的令牌（上游报401时调用）
func (p *TokenProvider) Invalidate() {
	p.mu.Lock()
	p.cached = nil
	p.mu.Unlock()
}

// fetch 向上游换取新令牌
func (p *TokenProvider) fetch(ctx context.Context) (*Token, error) {
	if p.endpoint == "" {
		return nil, apperrors.New(apperrors.ErrConfigValidate, "未配置令牌接口地址")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUnknown)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTimeout, "令牌接口请求失败")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Newf(apperrors.ErrAuthentication, "令牌接口返回%d", resp.StatusCode)
	}

	var payload struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expires_in"` // 秒
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrMessageFormat, "令牌响应解析失败")
	}
	if payload.Token == "" {
		return nil, apperrors.New(apperrors.ErrAuthentication, "令牌接口响应为空")
	}

	ttl := p.ttl
	if payload.ExpiresIn > 0 {
		ttl = time.Duration(payload.ExpiresIn) * time.Second
	}

	return &Token{
		Value:     payload.Token,
		ExpiresAt: p.now().Add(ttl),
	}, nil
}
