package audio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/music-quiz/internal/config"
	"go.uber.org/zap"
)

// newTestProvider 指向假上游的提供器
func newTestProvider(endpoint string) *TokenProvider {
	p := NewTokenProvider(&config.AudioConfig{
		TokenEndpoint: endpoint,
		TokenTTL:      time.Hour,
		Timeout:       5 * time.Second,
	})
	p.logger = zap.NewNop()
	return p
}

func TestGet_FetchAndCache(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"token":      "tok-123",
			"expires_in": 3600,
		})
	}))
	defer server.Close()

	p := newTestProvider(server.URL)
	ctx := context.Background()

	token, err := p.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token.Value)

	// 第二次走缓存
	_, err = p.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGet_SingleFlight(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(50 * time.Millisecond) // 模拟慢上游
		json.NewEncoder(w).Encode(map[string]interface{}{
			"token":      "tok-sf",
			"expires_in": 3600,
		})
	}))
	defer server.Close()

	p := newTestProvider(server.URL)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := p.Get(ctx)
			assert.NoError(t, err)
			assert.Equal(t, "tok-sf", token.Value)
		}()
	}
	wg.Wait()

	// 十个并发请求合并成一次上游调用
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGet_RefreshAfterExpiry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"token":      "tok-fresh",
			"expires_in": 3600,
		})
	}))
	defer server.Close()

	p := newTestProvider(server.URL)
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }

	ctx := context.Background()
	_, err := p.Get(ctx)
	require.NoError(t, err)

	// 时钟推过有效期，触发刷新
	clock = clock.Add(2 * time.Hour)
	_, err = p.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGet_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	p := newTestProvider(server.URL)
	_, err := p.Get(context.Background())
	assert.Error(t, err)
}

func TestInvalidate(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"token":      "tok-x",
			"expires_in": 3600,
		})
	}))
	defer server.Close()

	p := newTestProvider(server.URL)
	ctx := context.Background()

	_, err := p.Get(ctx)
	require.NoError(t, err)

	p.Invalidate()

	_, err = p.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGet_NoEndpoint(t *testing.T) {
	p := newTestProvider("")
	_, err := p.Get(context.Background())
	assert.Error(t, err)
}
