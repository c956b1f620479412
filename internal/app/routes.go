package app

import (
	"github.com/gin-gonic/gin"
	"github.com/yoola/core/internal/modules/health"
	"github.com/yoola/core/internal/modules/language"
	"github.com/yoola/core/internal/modules/summarizer"
	"github.com/yoola/core/internal/modules/summary"
	"github.com/yoola/core/internal/pkg/response"
)

func (a *App) registerRoutes() {
	r := a.router

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.Error(c, 405, "method not allowed")
	})

	appInfo := gin.H{
		"name":    "yoola-core",
		"version": "1.0.0",
		"store":   a.store.Kind(),
	}

	root := r.Group("")
	root.GET("/", func(c *gin.Context) {
		response.OK(c, appInfo)
	})

	summary.NewHandler(a.summaries).RegisterRoutes(root)
	language.NewHandler(a.languages).RegisterRoutes(root)

	var models summarizer.ModelLister
	if a.summarizer != nil {
		models = a.summarizer
	}
	summarizer.NewHandler(models).RegisterRoutes(root)

	deps := health.Deps{
		Store:     a.store,
		StoreKind: a.store.Kind(),
		Degraded:  a.degraded,
		StartedAt: a.startedAt,
	}
	if a.redis != nil {
		deps.Redis = a.redis
	}
	if a.summarizer != nil {
		deps.Summarizer = a.summarizer.ProviderName()
	}
	health.RegisterRoutes(root, deps)
}
