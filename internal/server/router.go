package server

import (
	"net/http"

	"gide/internal/config"
	"gide/internal/server/middleware"
	"gide/internal/svc"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with all API routes.
func NewRouter(svcCtx *svc.ServiceContext) *gin.Engine {
	cfg := svcCtx.Config
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.TraceMiddleware())
	router.Use(middleware.CORSMiddleware(middleware.CORSConfig{
		Enabled:          cfg.CORS.Enabled,
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.CORSMaxAge(),
	}))
	router.Use(middleware.RequestLogger())

	router.GET("/healthz", health)
	router.GET("/readyz", health)

	h := NewHandler(svcCtx)
	api := router.Group("/api/v1")
	{
		api.GET("/languages", h.Languages)
		api.GET("/shortcuts", h.Shortcuts)

		api.GET("/preferences", h.GetPreferences)
		api.PUT("/preferences", h.UpdatePreferences)

		api.GET("/snippets", h.ListSnippets)
		api.GET("/snippets/:name", h.GetSnippet)
		api.PUT("/snippets/:name", h.SaveSnippet)
		api.DELETE("/snippets/:name", h.DeleteSnippet)

		api.POST("/format", h.Format)
		api.POST("/run", h.Run)
		api.GET("/run/ws", h.RunStream)
	}
	return router
}

// NewHTTPServer wraps handler with the configured timeouts.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:           cfg.Addr,
		Handler:        handler,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}
}
