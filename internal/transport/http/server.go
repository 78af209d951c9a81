package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wizzychat/internal/auth"
	"github.com/vovakirdan/wizzychat/internal/backend"
	"github.com/vovakirdan/wizzychat/internal/config"
	"github.com/vovakirdan/wizzychat/internal/service/chat"
)

// NewServer builds the HTTP server with all API routes.
func NewServer(
	authService *auth.Service,
	chatService *chat.Service,
	backends *backend.Set,
	cfg *config.Config,
	logger *zerolog.Logger,
) *stdhttp.Server {
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	apiHandlers := NewAPIHandlers(authService, backends, logger)
	userHandlers := NewUserHandlers(chatService, logger)
	directHandlers := NewDirectHandlers(chatService, logger)
	groupHandlers := NewGroupHandlers(chatService, logger)

	api := router.Group("/api")
	api.GET("/backends", apiHandlers.Backends)
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)

	limiter := newSendLimiter(cfg.Limits.MessagesPerMinute, cfg.Limits.Burst)

	authed := api.Group("")
	authed.Use(AuthMiddleware(authService, logger))
	{
		authed.POST("/logout", apiHandlers.Logout)
		authed.GET("/users/online", userHandlers.OnlineUsers)

		authed.POST("/direct/:peer/messages", limiter.middleware(), directHandlers.SendDirect)
		authed.GET("/direct/:peer/messages", directHandlers.DirectHistory)

		authed.POST("/groups", groupHandlers.CreateGroup)
		authed.GET("/groups", groupHandlers.ListGroups)
		authed.GET("/groups/:name", groupHandlers.GetGroup)
		authed.POST("/groups/:name/members", groupHandlers.AddMember)
		authed.POST("/groups/:name/messages", limiter.middleware(), groupHandlers.SendGroup)
		authed.GET("/groups/:name/messages", groupHandlers.GroupHistory)
	}

	return &stdhttp.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
