/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dfliao/redmine-report/internal/adapters/mail"
	"github.com/dfliao/redmine-report/internal/adapters/redmine"
	"github.com/dfliao/redmine-report/internal/config"
	httpapi "github.com/dfliao/redmine-report/internal/http"
	"github.com/dfliao/redmine-report/internal/jobs"
	"github.com/dfliao/redmine-report/internal/logger"
	"github.com/dfliao/redmine-report/internal/render"
	"github.com/dfliao/redmine-report/internal/services"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("configuration invalid")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Adapters
	rm := redmine.NewClient(cfg, log)
	sender := mail.NewSender(cfg, log)

	// Special project family resolved once at startup; the set stays
	// immutable for the process lifetime.
	special := services.ResolveSpecialProjects(ctx, rm, cfg.Spec.SpecialProject, log)

	// Services
	classifier := services.NewRoleClassifier(cfg.Spec.Roles)
	svc := services.New(cfg, log, rm, classifier, special)
	renderer := render.New(cfg.Spec)
	gen := services.NewGenerator(cfg, log, svc, renderer, sender, services.NewRunLog())

	// HTTP server (Gin)
	router := httpapi.NewRouter(cfg, log, svc, gen)

	// Cron
	cron := jobs.NewCron(cfg, log, gen)
	cron.Start()
	defer cron.Stop()

	// graceful shutdown
	errCh := make(chan error, 1)
	go func() { errCh <- router.Run(cfg.HTTPAddr) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info().Msg("shutting down...")
	case err := <-errCh:
		if err != nil { log.Error().Err(err).Msg("http server error") }
	}

	time.Sleep(500 * time.Millisecond)
}
