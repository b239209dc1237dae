package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/suPer8Hu/community-chat/internal/common"
	"github.com/suPer8Hu/community-chat/internal/config"
	"github.com/suPer8Hu/community-chat/internal/httpapi/handlers"
	"github.com/suPer8Hu/community-chat/internal/httpapi/middleware"
	"go.uber.org/zap"
)

const (
	videoRouteTimeout      = 300 * time.Second
	transcribeRouteTimeout = 60 * time.Second
	defaultRouteTimeout    = 60 * time.Second
)

func NewRouter(deps handlers.Deps, cfg config.Config, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery(logger))

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(cfg.AppBaseURL),
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	deps.Logger = logger
	h := handlers.NewHandler(deps)

	r.GET("/ping", h.Ping)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/")
	if cfg.ServiceJWTSecret != "" {
		api.Use(middleware.ServiceAuth(cfg.ServiceJWTSecret))
	}

	// video rendering is polled to completion inside the request
	slow := api.Group("/", middleware.Timeout(videoRouteTimeout))
	slow.POST("/auto-response", h.AutoResponse)
	slow.POST("/video-reply", h.VideoReply)

	fast := api.Group("/", middleware.Timeout(defaultRouteTimeout))
	fast.POST("/video-generate", h.VideoGenerate)
	fast.GET("/video-status/:videoId", h.VideoStatus)
	fast.POST("/tts", h.TTS)
	fast.POST("/tts-11labs", h.TTSElevenLabs)
	fast.POST("/generate", h.Generate)
	fast.POST("/spaces", h.Space)

	api.POST("/transcribe", middleware.Timeout(transcribeRouteTimeout), h.Transcribe)

	return r
}

func allowedOrigins(base string) []string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return []string{"http://localhost:3000"}
	}
	return []string{base}
}
