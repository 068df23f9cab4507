package handler

import (
	"github.com/agb/securityjwt/internal/logging"
	"github.com/agb/securityjwt/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterConfig holds what NewRouter needs to assemble the engine.
type RouterConfig struct {
	AllowedOrigins []string
	Policy         SessionPolicy
	Codec          *service.TokenCodec
	Auth           *service.AuthService
	Log            zerolog.Logger
}

// NewRouter wires middleware in the order request id, logging, CORS,
// authentication, policy, followed by the routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(logging.GinRequestLogger(logging.Component(cfg.Log, "http")))
	router.Use(CORSMiddleware(cfg.AllowedOrigins))
	router.Use(Authenticate(cfg.Codec, cfg.Auth, logging.Component(cfg.Log, "auth")))
	router.Use(cfg.Policy.Enforce())

	authHandler := NewAuthHandler(cfg.Auth)

	router.GET("/ping", Ping)
	router.GET("/openapi.json", OpenAPIDoc)

	auth := router.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/authenticate", authHandler.Authenticate)

	router.GET("/me", authHandler.Me)

	return router
}
