package core

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
)

// Run drives the periodic tick: the one-time startup purge, then
// Matchmaker followed by Resolver on a single goroutine. The timer is
// rearmed only after a tick finishes, so ticks never overlap; a failed
// tick rearms with the error backoff instead of the normal interval.
func (s *Service) Run(ctx context.Context) error {
	s.Resolver.PurgeQueues(ctx)

	timer := time.NewTimer(s.Cfg.TickInterval)
	defer timer.Stop()

	log.Infof("scheduler running, tick every %s", s.Cfg.TickInterval)
	for {
		select {
		case <-ctx.Done():
			log.Info("scheduler shutting down")
			return ctx.Err()
		case <-timer.C:
			next := s.Cfg.TickInterval
			if err := s.tick(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				log.Errorf("tick abandoned - %v", err)
				next = s.Cfg.ErrorBackoff
			}
			timer.Reset(next)
		}
	}
}

func (s *Service) tick(ctx context.Context) error {
	if err := s.Matchmaker.Run(ctx); err != nil {
		return err
	}
	return s.Resolver.Run(ctx)
}
