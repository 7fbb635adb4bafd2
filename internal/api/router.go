package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/music-quiz/internal/audio"
	"github.com/wfunc/music-quiz/internal/config"
	"github.com/wfunc/music-quiz/internal/game"
	"github.com/wfunc/music-quiz/internal/middleware"
	"github.com/wfunc/music-quiz/internal/repository"
	"github.com/wfunc/music-quiz/internal/service"
	"github.com/wfunc/music-quiz/internal/utils"
	ws "github.com/wfunc/music-quiz/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Router API路由器
type Router struct {
	engine      *gin.Engine
	db          *gorm.DB
	repos       *repository.Manager
	coordinator *game.Coordinator
	hub         *ws.Hub

	authHandler      *AuthHandler
	gameHandler      *GameHandler
	packHandler      *PackHandler
	audioHandler     *AudioHandler
	websocketHandler *WebSocketHandler
	authMiddleware   *middleware.AuthMiddleware

	log *zap.Logger
}

// NewRouter 创建路由器并完成全部装配
func NewRouter(db *gorm.DB, cfg *config.Config, log *zap.Logger) *Router {
	// 创建Gin引擎
	engine := gin.New()

	// 全局中间件
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	// 仓储与服务
	repos := repository.NewManager(db)

	jwtManager := utils.NewJWTManager(
		cfg.Security.JWT.Secret,
		time.Duration(cfg.Security.JWT.ExpireHours)*time.Hour,
		time.Duration(cfg.Security.JWT.RefreshHours)*time.Hour,
	)
	authService := service.NewAuthService(repos, jwtManager)
	packService := service.NewPackService(repos)
	tokenProvider := audio.NewTokenProvider(&cfg.Audio)

	// 事件中心与游戏协调器
	hub := ws.NewHub(log)
	coordinator := game.NewCoordinator(repos, hub, &cfg.Game)
	hub.SetMessageHandler(ws.NewGameMessageHandler(coordinator, log))

	// 处理器与中间件
	router := &Router{
		engine:           engine,
		db:               db,
		repos:            repos,
		coordinator:      coordinator,
		hub:              hub,
		authHandler:      NewAuthHandler(authService),
		gameHandler:      NewGameHandler(coordinator, repos),
		packHandler:      NewPackHandler(packService),
		audioHandler:     NewAudioHandler(tokenProvider),
		websocketHandler: NewWebSocketHandler(hub, coordinator, log),
		authMiddleware:   middleware.NewAuthMiddleware(authService),
		log:              log,
	}

	// 设置路由
	router.setupRoutes()

	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// API文档
	registerOpenAPIRoutes(r.engine)
	registerSwaggerRoutes(r.engine)

	// API v1路由组
	v1 := r.engine.Group("/api/v1")
	{
		// 认证相关路由（不需要认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/refresh", r.authHandler.RefreshToken)
		}

		// 曲包管理（主持人专属）
		packs := v1.Group("/packs")
		packs.Use(r.authMiddleware.RequireAuth())
		{
			packs.POST("", r.packHandler.Import)
			packs.GET("", r.packHandler.List)
			packs.GET("/:id", r.packHandler.Get)
		}

		// 音频播放令牌（玩家无账号，开放获取）
		audioGroup := v1.Group("/audio")
		{
			audioGroup.GET("/token", r.audioHandler.Token)
		}

		// 游戏会话
		sessions := v1.Group("/sessions")
		{
			// 主持人操作（需要登录，处理器内再校验房主身份）
			hostOnly := sessions.Group("")
			hostOnly.Use(r.authMiddleware.RequireAuth())
			{
				hostOnly.POST("", r.gameHandler.CreateSession)
				hostOnly.GET("", r.gameHandler.ListSessions)
				hostOnly.POST("/:id/start", r.gameHandler.Start)
				hostOnly.POST("/:id/play", r.gameHandler.Play)
				hostOnly.POST("/:id/judge", r.gameHandler.Judge)
				hostOnly.POST("/:id/reveal", r.gameHandler.Reveal)
				hostOnly.POST("/:id/next", r.gameHandler.NextRound)
				hostOnly.POST("/:id/finish", r.gameHandler.Finish)
			}

			// 玩家操作（凭会话内玩家ID）
			sessions.GET("/:id", r.gameHandler.GetSession)
			sessions.POST("/:id/join", r.gameHandler.Join)
			sessions.POST("/:id/buzz", r.gameHandler.Buzz)
			sessions.POST("/:id/answer", r.gameHandler.SubmitAnswer)
			sessions.GET("/:id/leaderboard", r.gameHandler.Leaderboard)
		}
	}

	// WebSocket路由（玩家与旁观者订阅会话事件）
	wsGroup := r.engine.Group("/ws")
	{
		wsGroup.GET("/sessions/:id", r.websocketHandler.SessionWebSocket)
	}

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
		})
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	// 检查数据库连接
	sqlDB, err := r.db.DB()
	if err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库连接失败",
		})
		return
	}

	if err := sqlDB.Ping(); err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库ping失败",
		})
		return
	}

	c.JSON(200, gin.H{
		"status":  "healthy",
		"message": "服务运行正常",
		"online":  r.hub.GetOnlineCount(),
	})
}

// Hub 返回事件中心（由调用方启动事件循环）
func (r *Router) Hub() *ws.Hub {
	return r.hub
}

// Coordinator 返回游戏协调器（供超时扫描器复用）
func (r *Router) Coordinator() *game.Coordinator {
	return r.coordinator
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
