package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jimyag/netrca/internal/netrca/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type API struct {
	engine *gin.Engine
	server *http.Server

	snapshot *Snapshot
	tool     *Tool
}

func New(cfg *config.Config, snapshotService SnapshotServiceInterface, toolService ToolServiceInterface) (*API, error) {
	engine := gin.New()
	// handler 直接把 *gin.Context 当 context.Context 传给 service，需要回落到 Request.Context()
	engine.ContextWithFallback = true
	engine.Use(gin.Recovery(), requestLogger(), requestMetrics())

	auth := NewAuthenticator(cfg.Auth.Keys)
	api := &API{
		engine:   engine,
		snapshot: NewSnapshot(snapshotService),
		tool:     NewTool(toolService),
	}

	group := engine.Group("/api/batfish")
	api.tool.RegisterPublicRoutes(group)
	authed := group.Group("", auth.Middleware())
	api.snapshot.RegisterRoutes(authed)
	api.tool.RegisterRoutes(authed)

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api.server = &http.Server{
		Addr:    cfg.Address,
		Handler: engine,
	}
	return api, nil
}

// Name 实现 grace.Grace 接口
func (a *API) Name() string {
	return "netrca API"
}

func (a *API) Run(ctx context.Context) error {
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *API) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

// Handler 返回路由，便于测试和嵌入
func (a *API) Handler() http.Handler {
	return a.engine
}
