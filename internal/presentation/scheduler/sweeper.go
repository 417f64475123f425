package scheduler

import (
	"log/slog"

	"github.com/formlock/formlock-backend/internal/infra/render"
	"github.com/formlock/formlock-backend/pkg/env"
	"github.com/robfig/cron/v3"
)

type SweepConfig struct {
	Schedule string
}

func NewSweepConfig() *SweepConfig {
	return &SweepConfig{
		Schedule: env.GetEnv("CACHE_SWEEP_SCHEDULE", "@every 24h"),
	}
}

// CacheSweeper evicts expired PDF artifacts once at startup and then on a
// schedule.
type CacheSweeper struct {
	cfg   *SweepConfig
	cache *render.Cache
	cron  *cron.Cron
}

func NewCacheSweeper(cfg *SweepConfig, cache *render.Cache) *CacheSweeper {
	return &CacheSweeper{cfg: cfg, cache: cache, cron: cron.New()}
}

func (s *CacheSweeper) Start() error {
	slog.Info("Starting PDF cache sweeper...")
	s.sweep()
	if _, err := s.cron.AddFunc(s.cfg.Schedule, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *CacheSweeper) Stop() {
	slog.Info("Stopping PDF cache sweeper")
	<-s.cron.Stop().Done()
}

func (s *CacheSweeper) sweep() {
	removed, err := s.cache.SweepExpired()
	if err != nil {
		slog.Error("sweeper: error sweeping PDF cache", "err", err)
		return
	}
	if removed > 0 {
		slog.Info("sweeper: evicted expired PDFs", "count", removed)
	}
}
