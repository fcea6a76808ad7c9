package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"quiz-learning-service/internal/app"
)

// RouterConfig carries the HTTP-facing settings.
type RouterConfig struct {
	Mode           string
	AllowedOrigins []string
	MaxUploadBytes int64
	Metrics        http.Handler // served on /metrics when set
}

// NewRouter wires the REST API, the WebSocket endpoint and health checks.
func NewRouter(service *app.QuizService, log zerolog.Logger, cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	quizzes := NewQuizHandler(service, cfg.MaxUploadBytes)
	api := router.Group("/api")
	{
		api.GET("/topics", quizzes.SuggestTopics)
		api.POST("/quizzes/generate", quizzes.Generate)
		api.GET("/quizzes/:id", quizzes.GetQuiz)
		api.POST("/quizzes/:id/sessions", quizzes.StartSession)
		api.GET("/sessions/:id", quizzes.GetSession)
		api.GET("/sessions/:id/result", quizzes.GetResult)
		api.POST("/sessions/:id/retake", quizzes.Retake)
		api.DELETE("/sessions/:id", quizzes.Exit)
	}

	ws := NewWSHandler(service, log, cfg.AllowedOrigins)
	router.GET("/ws", gin.WrapF(ws.ServeWS))

	return router
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "http").Logger()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := log.Debug()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
