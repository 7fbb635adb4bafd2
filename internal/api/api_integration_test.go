package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/music-quiz/internal/config"
	"github.com/wfunc/music-quiz/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// APITestSuite 走完整路由栈的接口测试
type APITestSuite struct {
	suite.Suite
	db          *gorm.DB
	router      *Router
	audioServer *httptest.Server
	hostToken   string
}

func (suite *APITestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	suite.db = repository.SetupTestDB()

	// 模拟上游音频授权服务
	suite.audioServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"token":      "audio-token-abc",
			"expires_in": 600,
		})
	}))

	cfg := &config.Config{
		Security: config.SecurityConfig{
			JWT: config.JWTConfig{
				Secret:       "test-secret-key",
				ExpireHours:  1,
				RefreshHours: 24,
			},
		},
		Audio: config.AudioConfig{
			TokenEndpoint: suite.audioServer.URL,
			TokenTTL:      10 * time.Minute,
			Timeout:       5 * time.Second,
		},
		Game: config.GameConfig{
			Scoring: config.ScoringConfig{
				MaxPoints:      100,
				FloorPoints:    10,
				DecayPerSecond: 5,
				WrongPenalty:   -10,
			},
			Players: config.PlayersConfig{Min: 2, Max: 8},
			Round: config.RoundConfig{
				MaxRounds:       10,
				MaxTrackSeconds: 30,
				Timeout:         30 * time.Second,
				TimeoutSweep:    5 * time.Second,
			},
			Selector: config.SelectorConfig{ExpandRange: 15},
		},
	}

	suite.router = NewRouter(suite.db, cfg, zap.NewNop())
	go suite.router.Hub().Run()

	// 注册一个主持人账号备用
	resp := suite.request("POST", "/api/v1/auth/register", "", map[string]interface{}{
		"username": "host_user",
		"password": "password123",
	})
	require.Equal(suite.T(), http.StatusOK, resp.Code)
	suite.hostToken = suite.field(resp, "access_token").(string)
}

func (suite *APITestSuite) TearDownTest() {
	suite.audioServer.Close()
	repository.CleanupTestDB(suite.db)
}

// request 发送JSON请求
func (suite *APITestSuite) request(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(suite.T(), json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	suite.router.GetEngine().ServeHTTP(w, req)
	return w
}

// field 从响应JSON中取顶层字段
func (suite *APITestSuite) field(w *httptest.ResponseRecorder, key string) interface{} {
	var resp map[string]interface{}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	return resp[key]
}

// importPack 导入一个测试曲包，返回曲包ID
func (suite *APITestSuite) importPack(trackCount int) uint {
	tracks := make([]map[string]interface{}, trackCount)
	for i := 0; i < trackCount; i++ {
		tracks[i] = map[string]interface{}{
			"title":       fmt.Sprintf("歌曲%d", i+1),
			"popularity":  95 - i*5,
			"preview_url": fmt.Sprintf("https://cdn.example.com/preview/%d.mp3", i+1),
			"artists": []map[string]interface{}{
				{"name": fmt.Sprintf("艺人%d", i+1)},
			},
		}
	}

	resp := suite.request("POST", "/api/v1/packs", suite.hostToken, map[string]interface{}{
		"name":   "测试曲包",
		"tracks": tracks,
	})
	require.Equal(suite.T(), http.StatusOK, resp.Code)
	return uint(suite.field(resp, "id").(float64))
}

// createSession 建房并返回会话ID
func (suite *APITestSuite) createSession(packID uint, rounds int) string {
	resp := suite.request("POST", "/api/v1/sessions", suite.hostToken, map[string]interface{}{
		"pack_id":      packID,
		"total_rounds": rounds,
	})
	require.Equal(suite.T(), http.StatusOK, resp.Code)
	return suite.field(resp, "session_id").(string)
}

// joinPlayer 玩家加入并返回玩家ID
func (suite *APITestSuite) joinPlayer(sessionID, name string) uint {
	resp := suite.request("POST", "/api/v1/sessions/"+sessionID+"/join", "", map[string]interface{}{
		"name": name,
	})
	require.Equal(suite.T(), http.StatusOK, resp.Code)
	return uint(suite.field(resp, "id").(float64))
}

func (suite *APITestSuite) TestHealthCheck() {
	resp := suite.request("GET", "/health", "", nil)

	assert.Equal(suite.T(), http.StatusOK, resp.Code)
	assert.Equal(suite.T(), "healthy", suite.field(resp, "status"))
}

func (suite *APITestSuite) TestPackImportRequiresAuth() {
	resp := suite.request("POST", "/api/v1/packs", "", map[string]interface{}{
		"name":   "未授权曲包",
		"tracks": []map[string]interface{}{},
	})

	assert.Equal(suite.T(), http.StatusUnauthorized, resp.Code)
}

func (suite *APITestSuite) TestRegisterDuplicateUsername() {
	resp := suite.request("POST", "/api/v1/auth/register", "", map[string]interface{}{
		"username": "host_user",
		"password": "password123",
	})

	assert.Equal(suite.T(), http.StatusConflict, resp.Code)
}

func (suite *APITestSuite) TestLoginWrongPassword() {
	resp := suite.request("POST", "/api/v1/auth/login", "", map[string]interface{}{
		"username": "host_user",
		"password": "wrong-password",
	})

	assert.Equal(suite.T(), http.StatusUnauthorized, resp.Code)
}

func (suite *APITestSuite) TestAudioToken() {
	resp := suite.request("GET", "/api/v1/audio/token", "", nil)

	assert.Equal(suite.T(), http.StatusOK, resp.Code)
	assert.Equal(suite.T(), "audio-token-abc", suite.field(resp, "token"))
}

// TestFullGameFlow 从建房到判定走一遍完整流程
func (suite *APITestSuite) TestFullGameFlow() {
	packID := suite.importPack(8)
	sessionID := suite.createSession(packID, 3)

	playerA := suite.joinPlayer(sessionID, "小明")
	suite.joinPlayer(sessionID, "小红")

	// 开局
	resp := suite.request("POST", "/api/v1/sessions/"+sessionID+"/start", suite.hostToken, nil)
	require.Equal(suite.T(), http.StatusOK, resp.Code)
	assert.Equal(suite.T(), "ready", suite.field(resp, "state"))

	// 播放第一回合，回合信息不应包含歌名
	resp = suite.request("POST", "/api/v1/sessions/"+sessionID+"/play", suite.hostToken, nil)
	require.Equal(suite.T(), http.StatusOK, resp.Code)
	assert.NotEmpty(suite.T(), suite.field(resp, "preview_url"))
	assert.NotContains(suite.T(), resp.Body.String(), "歌曲")

	// 玩家A抢答
	resp = suite.request("POST", "/api/v1/sessions/"+sessionID+"/buzz", "", map[string]interface{}{
		"player_id": playerA,
	})
	require.Equal(suite.T(), http.StatusOK, resp.Code)
	assert.Equal(suite.T(), float64(playerA), suite.field(resp, "player_id"))

	// 第二次抢答应当撞上冲突
	resp = suite.request("POST", "/api/v1/sessions/"+sessionID+"/buzz", "", map[string]interface{}{
		"player_id": playerA,
	})
	assert.NotEqual(suite.T(), http.StatusOK, resp.Code)

	// 主持人判定正确
	resp = suite.request("POST", "/api/v1/sessions/"+sessionID+"/judge", suite.hostToken, map[string]interface{}{
		"correct": true,
	})
	require.Equal(suite.T(), http.StatusOK, resp.Code)

	// 重复判定被状态机拒绝
	resp = suite.request("POST", "/api/v1/sessions/"+sessionID+"/judge", suite.hostToken, map[string]interface{}{
		"correct": true,
	})
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, resp.Code)

	// 快照处于公布状态，应当能看到歌名
	resp = suite.request("GET", "/api/v1/sessions/"+sessionID, "", nil)
	require.Equal(suite.T(), http.StatusOK, resp.Code)
	assert.Equal(suite.T(), "reveal", suite.field(resp, "state"))

	// 排行榜
	resp = suite.request("GET", "/api/v1/sessions/"+sessionID+"/leaderboard", "", nil)
	require.Equal(suite.T(), http.StatusOK, resp.Code)

	// 下一回合：还有回合可打，不触发结算
	resp = suite.request("POST", "/api/v1/sessions/"+sessionID+"/next", suite.hostToken, nil)
	require.Equal(suite.T(), http.StatusOK, resp.Code)
	assert.Equal(suite.T(), false, suite.field(resp, "finished"))
	assert.Equal(suite.T(), "ready", suite.field(resp, "session").(map[string]interface{})["state"])

	// 结束游戏
	resp = suite.request("POST", "/api/v1/sessions/"+sessionID+"/finish", suite.hostToken, nil)
	require.Equal(suite.T(), http.StatusOK, resp.Code)
	assert.Equal(suite.T(), "finished", suite.field(resp, "state"))
}

// TestJudgeRequiresHost 非房主不能判定
func (suite *APITestSuite) TestJudgeRequiresHost() {
	packID := suite.importPack(5)
	sessionID := suite.createSession(packID, 3)

	resp := suite.request("POST", "/api/v1/auth/register", "", map[string]interface{}{
		"username": "other_host",
		"password": "password456",
	})
	require.Equal(suite.T(), http.StatusOK, resp.Code)
	otherToken := suite.field(resp, "access_token").(string)

	resp = suite.request("POST", "/api/v1/sessions/"+sessionID+"/judge", otherToken, map[string]interface{}{
		"correct": true,
	})
	assert.Equal(suite.T(), http.StatusForbidden, resp.Code)
}

// TestSessionNotFound 不存在的会话
func (suite *APITestSuite) TestSessionNotFound() {
	resp := suite.request("GET", "/api/v1/sessions/no-such-session", "", nil)
	assert.Equal(suite.T(), http.StatusNotFound, resp.Code)
}

// TestCreateSessionPackTooSmall 曲目不足时拒绝建房
func (suite *APITestSuite) TestCreateSessionPackTooSmall() {
	packID := suite.importPack(2)

	resp := suite.request("POST", "/api/v1/sessions", suite.hostToken, map[string]interface{}{
		"pack_id":      packID,
		"total_rounds": 5,
	})
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, resp.Code)
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
