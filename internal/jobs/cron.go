package jobs

import (
	"context"
	"time"

	"github.com/dfliao/redmine-report/internal/config"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type runner interface {
	RunScheduled(ctx context.Context)
}

type Cron struct {
	cfg config.Config
	log zerolog.Logger
	gen runner
	c   *cron.Cron
}

func NewCron(cfg config.Config, log zerolog.Logger, gen runner) *Cron {
	loc, _ := time.LoadLocation(cfg.TZ)
	c := cron.New(cron.WithLocation(loc), cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)))
	cr := &Cron{cfg: cfg, log: log, gen: gen, c: c}
	if _, err := c.AddFunc(cfg.ScheduleCron, cr.fire); err != nil {
		log.Error().Err(err).Str("expr", cfg.ScheduleCron).Msg("cron: invalid schedule, scheduled reports disabled")
	}
	return cr
}

func (cr *Cron) Start() { cr.c.Start() }
func (cr *Cron) Stop()  { cr.c.Stop() }

func (cr *Cron) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	cr.log.Info().Str("expr", cr.cfg.ScheduleCron).Msg("cron: scheduled reports")
	cr.gen.RunScheduled(ctx)
}
