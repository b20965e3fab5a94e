package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/eschota/secs-matchmaking/internal/app/core"
	"github.com/eschota/secs-matchmaking/internal/app/gateway"
	"github.com/eschota/secs-matchmaking/internal/app/matchmake"
	"github.com/eschota/secs-matchmaking/internal/app/resolver"
	"github.com/eschota/secs-matchmaking/internal/shared/archive"
	"github.com/eschota/secs-matchmaking/internal/shared/config"
	"github.com/eschota/secs-matchmaking/internal/shared/match"
	"github.com/eschota/secs-matchmaking/internal/shared/notify"
	"github.com/eschota/secs-matchmaking/internal/shared/players"
	"github.com/eschota/secs-matchmaking/internal/shared/queue"
	"github.com/eschota/secs-matchmaking/internal/shared/utils/redisutils"
	"github.com/eschota/secs-matchmaking/internal/shared/utils/redisutils/rediskeys"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config - %v", err)
	}
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	queueStore := queue.NewMemoryStore()
	tracker := players.NewTracker()
	registry := match.NewRegistry()

	var notifiers notify.Multi
	if cfg.RedisAddr != "" {
		rdb, err := redisutils.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("failed to connect to redis at %s - %v", cfg.RedisAddr, err)
		}
		notifiers = append(notifiers, notify.NewRedisNotifier(rdb, rediskeys.MatchFoundStream))
		log.Infof("publishing match announcements to redis stream %s", rediskeys.MatchFoundStream)
	}
	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL, nats.Name("matchsvc"))
		if err != nil {
			log.Fatalf("failed to connect to nats at %s - %v", cfg.NatsURL, err)
		}
		defer nc.Close()
		notifiers = append(notifiers, notify.NewNatsNotifier(nc, "matchmaking.match_found"))
		log.Info("publishing match announcements to nats")
	}

	var archiveStore archive.Store = archive.Discard{}
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to postgres - %v", err)
		}
		defer pool.Close()
		pg := archive.NewPostgresStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatalf("failed to prepare match archive - %v", err)
		}
		archiveStore = pg
		log.Info("archiving finished matches to postgres")
	}

	policy := queue.ThresholdPolicy{
		Base:       cfg.BaseThreshold,
		Multiplier: cfg.ThresholdMultiplier,
		Step:       cfg.ThresholdStep,
		Min:        cfg.MinThreshold,
	}
	deltas := players.Deltas{
		Win:  cfg.WinDelta,
		Lose: cfg.LoseDelta,
		Draw: cfg.DrawDelta,
	}

	matchmaker := matchmake.New(queueStore, tracker, registry, &notifiers, policy, cfg.MaxDurations)
	timeoutResolver := resolver.New(queueStore, tracker, registry, archiveStore, deltas, cfg.StaleAfter, cfg.FinishedRetention)
	svc := core.NewService(cfg, queueStore, tracker, registry, archiveStore, matchmaker, timeoutResolver)

	gw := gateway.New(cfg.GatewayPort, svc)
	notifiers = append(notifiers, gw.Hub())

	eg, eCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { return svc.Run(eCtx) })
	eg.Go(func() error { return gw.Start(eCtx) })

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("shutting down due to error - %v", err)
		os.Exit(1)
	}
	log.Info("shutting down gracefully")
}
