package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/zerodice0/readzone/pkg/auth"
	"github.com/zerodice0/readzone/pkg/kafka"
	"github.com/zerodice0/readzone/pkg/logger"
	"github.com/zerodice0/readzone/pkg/postgres"
	"github.com/zerodice0/readzone/pkg/redisdb"
	"github.com/zerodice0/readzone/pkg/snowflake"
	"github.com/zerodice0/readzone/readzone/config"
	"github.com/zerodice0/readzone/readzone/internal/cache"
	"github.com/zerodice0/readzone/readzone/internal/cursor"
	"github.com/zerodice0/readzone/readzone/internal/events"
	"github.com/zerodice0/readzone/readzone/internal/handler"
	"github.com/zerodice0/readzone/readzone/internal/kakao"
	"github.com/zerodice0/readzone/readzone/internal/quota"
	"github.com/zerodice0/readzone/readzone/internal/repository"
	"github.com/zerodice0/readzone/readzone/internal/scheduler"
	"github.com/zerodice0/readzone/readzone/internal/server"
	"github.com/zerodice0/readzone/readzone/internal/service"
	"github.com/zerodice0/readzone/readzone/migrations"
)

const (
	storeRedis  = "redis"
	storeMemory = "memory"
	storePG     = "postgres"
)

// Migrate applies the embedded migrations and exits.
func Migrate(cfg *config.Config) error {
	return postgres.Migrate(&cfg.Database, migrations.MigrationFiles)
}

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "readzone")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	secret, err := jwtSecret(cfg.Auth)
	if err != nil {
		log.Fatal("auth config", zap.Error(err))
	}
	if err := snowflake.Init(cfg.NodeID); err != nil {
		log.Fatal("snowflake.Init", zap.Error(err), zap.Int64("node", cfg.NodeID))
	}
	db, err := postgres.NewPostgresDB(ctx, &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		log.Fatal("db init", zap.Error(err))
	}
	rdb, err := redisdb.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("redis init", zap.Error(err))
	}

	cacheStore, sweeper, err := newCacheStore(cfg.Cache, rdb)
	if err != nil {
		log.Fatal("cache store", zap.Error(err))
	}
	quotaStore, err := newQuotaStore(cfg.Quota, db, rdb)
	if err != nil {
		log.Fatal("quota store", zap.Error(err))
	}
	tracker, err := quota.NewTracker(quotaStore, quota.Config{
		DailyLimit:   cfg.Quota.DailyLimit,
		WarningRatio: cfg.Quota.WarningRatio,
		Timezone:     cfg.Quota.Timezone,
	}, log)
	if err != nil {
		log.Fatal("quota tracker", zap.Error(err))
	}
	codec, err := cursor.NewCodec(cfg.Feed.CursorSalt)
	if err != nil {
		log.Fatal("cursor codec", zap.Error(err))
	}
	repo, err := repository.NewRepository(db, repository.FeedWeights{
		Like:     cfg.Feed.WeightLike,
		Comment:  cfg.Feed.WeightComment,
		Bookmark: cfg.Feed.WeightBookmark,
	}, log)
	if err != nil {
		log.Fatal("repo", zap.Error(err))
	}

	if cfg.Kakao.APIKey == "" {
		log.Warn("KAKAO_API_KEY is empty, provider calls will be rejected")
	}
	provider := kakao.NewClient(kakao.Config{
		BaseURL: cfg.Kakao.BaseURL,
		APIKey:  cfg.Kakao.APIKey,
		RPS:     cfg.Kakao.RPS,
		Timeout: cfg.Kakao.Timeout,
	}, log)

	bookSvc := service.NewBookService(repo, provider, tracker, cache.New(cacheStore, log), service.BookConfig{
		MinLocalResults: cfg.Search.MinLocalResults,
		SearchTTL:       cfg.Cache.SearchTTL,
		ISBNTTL:         cfg.Cache.ISBNTTL,
		ISBNMissTTL:     cfg.Cache.ISBNMissTTL,
		BatchWorkers:    cfg.Search.BatchWorkers,
	}, log)
	feedSvc := service.NewFeedService(repo, codec, log)
	reviewSvc := service.NewReviewService(repo, log)

	var (
		publisher = events.NewNopPublisher()
		producer  sarama.AsyncProducer
		consumer  sarama.ConsumerGroup
	)
	if cfg.Kafka.Enable {
		producer, err = kafka.NewAsyncProducer(cfg.Kafka)
		if err != nil {
			log.Fatal("kafka.NewAsyncProducer", zap.Error(err))
		}
		go kafka.DrainErrors(producer, log)
		publisher = events.NewKafkaPublisher(producer, kafka.InteractionTopic, log)

		consumer, err = kafka.NewConsumer(cfg.Kafka, kafka.InteractionConsumerGroup)
		if err != nil {
			log.Fatal("kafka.NewConsumer", zap.Error(err))
		}
	}
	interactionSvc := service.NewInteractionService(repo, publisher, log)
	if consumer != nil {
		go kafka.Consume(ctx, consumer, handler.NewConsumer(interactionSvc.Recount, log), log, kafka.InteractionTopic)
	}

	sched := scheduler.New(log)
	if sweeper != nil {
		if err := sched.AddSweep(cfg.Cache.SweepSchedule, sweeper); err != nil {
			log.Fatal("scheduler", zap.Error(err))
		}
	}
	if err := sched.AddQuotaWarning(cfg.Quota.WarningSchedule, tracker); err != nil {
		log.Fatal("scheduler", zap.Error(err))
	}
	sched.Start()

	h := handler.New(bookSvc, feedSvc, reviewSvc, interactionSvc, log)
	srv := server.NewServer(cfg.Server, h.NewRouter(handler.RouterConfig{
		JWTSecret: secret,
		BaseRPS:   cfg.Server.BaseRPS,
		APIRPS:    cfg.Server.APIRPS,
	}))
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second*5)
	defer closeCancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	cancel()
	sched.Stop(closeCtx)
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			log.Error("consumer.Close", zap.Error(err))
		}
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error("producer.Close", zap.Error(err))
		}
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	db.Close()
	log.Info("Graceful shutdown finished")
}

func jwtSecret(cfg auth.Config) ([]byte, error) {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.Wrap(auth.ErrEmptySecret, "AUTH_JWT_SECRET must be set")
	}
	return []byte(cfg.JWTSecret), nil
}

// newCacheStore returns the sweeper only for the in-memory store; redis expires keys itself.
func newCacheStore(cfg config.Cache, rdb *redis.Client) (cache.Store, scheduler.Sweeper, error) {
	switch cfg.Store {
	case storeMemory, "":
		store := cache.NewMemoryStore()
		return store, store, nil
	case storeRedis:
		if rdb == nil {
			return nil, nil, errors.New("CACHE_STORE=redis requires REDIS_ENABLE=true")
		}
		return cache.NewRedisStore(rdb), nil, nil
	}
	return nil, nil, errors.Errorf("unknown cache store %q", cfg.Store)
}

func newQuotaStore(cfg config.Quota, db *pgxpool.Pool, rdb *redis.Client) (quota.Store, error) {
	switch cfg.Store {
	case storePG, "":
		return quota.NewPostgresStore(db), nil
	case storeRedis:
		if rdb == nil {
			return nil, errors.New("QUOTA_STORE=redis requires REDIS_ENABLE=true")
		}
		return quota.NewRedisStore(rdb), nil
	}
	return nil, errors.Errorf("unknown quota store %q", cfg.Store)
}
