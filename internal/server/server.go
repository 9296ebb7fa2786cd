package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hypnotools/internal/api/v1"
	"hypnotools/internal/app"
)

// maxBodyBytes 上传工作簿的大小上限
const maxBodyBytes = 32 << 20

// Server HTTP服务器
type Server struct {
	router *gin.Engine
	app    *app.App
	v1     *v1.Handler
	logger *zap.Logger
}

// NewServer 创建服务器
func NewServer(a *app.App) *Server {
	if !a.Config.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := a.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		router: gin.New(),
		app:    a,
		v1:     v1.NewHandler(a),
		logger: logger.Named("http"),
	}

	s.setupRoutes()

	return s
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(requestLogger(s.logger))
	s.router.Use(requestMetrics(s.app.Metrics))

	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// V1 API 路由
	api := s.router.Group("/api/v1", bodyLimit(maxBodyBytes))
	{
		s.v1.RegisterRoutes(api)
	}

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.app.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.app.Metrics.Handler()))
	}

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Rota não encontrada"})
	})
}

// Handler 供测试直接调用
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run 启动服务器
func (s *Server) Run(addr string) error {
	s.logger.Info("listening", zap.String("addr", addr))
	return s.router.Run(addr)
}
