/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/dfliao/redmine-report/internal/config"
	"github.com/rs/zerolog"
)

func NewRouter(cfg config.Config, log zerolog.Logger, svc reportService, gen reportGenerator) *gin.Engine {
	if cfg.AppEnv != "dev" { gin.SetMode(gin.ReleaseMode) }
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		c.Next()
		log.Info().Str("m", c.Request.Method).Str("p", c.FullPath()).Int("s", c.Writer.Status()).Msg("http")
	})

	h := NewHandlers(cfg, log, svc, gen)

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	api.GET("/report1/data", h.Report1Data)
	api.GET("/report2/data", h.Report2Data)
	api.GET("/report3/data", h.Report3Data)
	api.GET("/users", h.Users)
	api.GET("/statuses", h.Statuses)
	api.GET("/trackers", h.Trackers)
	api.GET("/dashboard/stats", h.DashboardStats)
	api.POST("/send-report", h.SendReport)

	r.POST("/admin/run", h.RunNow)
	r.GET("/admin/last-run", h.LastRun)

	return r
}
