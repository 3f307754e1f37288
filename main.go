package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shopify/sarama"
	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"PRelay/global/config"
	"PRelay/logger"
	mid "PRelay/middleware"
	"PRelay/module/history"
	"PRelay/module/offline"
	"PRelay/service/broadcast"
	"PRelay/service/chat"
	"PRelay/service/kafka"
	mgoSrv "PRelay/service/mgo"
	"PRelay/service/natsx"
	"PRelay/service/relay"
	"PRelay/service/relay/handlers"
	"PRelay/service/storage"
	redis "PRelay/service/storage/redis"
)

func main() {
	defer logger.Sync()

	if err := config.Load(); err != nil {
		logger.Errorf("load config: %v", err)
		os.Exit(1)
	}
	config.ConfigIds()

	cfg := config.Global
	logger.Infof("starting node=%s role=%s", cfg.NodeID, cfg.NodeType)

	go serveGrpcHealth(cfg.GrpcPort)

	var err error
	switch cfg.NodeType {
	case config.NodeTypeGateway:
		err = runGateway(cfg)
	case config.NodeTypeArchiver:
		err = runArchiver(cfg)
	case config.NodeTypeBacklog:
		err = runBacklog(cfg)
	}
	if err != nil {
		logger.Errorf("node stopped: %v", err)
		os.Exit(1)
	}
	logger.Infof("node exit")
}

// ===== gateway =====

// runGateway terminates client sockets, relays room traffic across the
// fleet and feeds the archive and offline pipelines.
func runGateway(cfg config.AppConfig) error {
	if err := config.ConfigRedis(); err != nil {
		return err
	}
	defer func() { _ = redis.CloseRedis() }()

	bus := broadcast.NewRedisBus(redis.GetPub(), redis.GetSub())
	reg := storage.NewRedisRegistry(storage.RedisRegistryConf{})
	backlog := offline.NewBacklog(redis.GetKV(), cfg.Relay.BacklogWindow)

	var hooks []relay.AfterSend

	if err := kafka.InitKafka(kafka.Config{Brokers: cfg.Kafka.Brokers}); err != nil {
		logger.Warnf("kafka unavailable, messages will not be archived: %v", err)
	} else {
		defer kafka.CloseKafka()
		hooks = append(hooks, history.ArchiveSink(cfg.Kafka.ArchiveTopic))
	}

	nm, err := natsx.NewNatsManager(natsx.NatsxConfig{
		Servers: []string{cfg.Nats.URL},
		Name:    cfg.NodeID,
	})
	if err != nil {
		logger.Warnf("nats unavailable, messages will not reach the offline stream: %v", err)
	} else {
		defer func() { _ = nm.Close() }()
		if err := nm.EnsureStream(cfg.Nats.Stream, []string{cfg.Nats.Subject}); err != nil {
			return err
		}
		if err := offline.RegisterRoute(nm, cfg.Nats.Subject, cfg.Nats.Durable); err != nil {
			return err
		}
		hooks = append(hooks, offline.OfflineSink(nm))
	}

	co := relay.NewCoordinator(relay.Conf{
		ServerID:      cfg.NodeID,
		Workers:       cfg.Relay.Workers,
		Queue:         cfg.Relay.Queue,
		BackfillLimit: cfg.Relay.BackfillLimit,
		AfterSend:     mergeHooks(hooks),
		Backfill:      backlog.Recent,
	}, bus, reg)
	handlers.RegisterAll(co)

	edge := chat.NewServer(co, cfg.Relay.Queue)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(mid.Cors())
	edge.RegisterRoutes(r)

	err = serveHTTP(cfg.Port, r)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	co.Shutdown(ctx)
	return err
}

// mergeHooks folds the enabled post-send hooks into one.
func mergeHooks(hooks []relay.AfterSend) relay.AfterSend {
	switch len(hooks) {
	case 0:
		return nil
	case 1:
		return hooks[0]
	}
	return func(msg relay.ChatMessage) {
		for _, h := range hooks {
			h(msg)
		}
	}
}

// ===== archiver =====

// runArchiver drains the archive topic into Mongo and serves the
// history query API.
func runArchiver(cfg config.AppConfig) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config.ConfigMgo(ctx)
	if err := mgoSrv.WaitReady(ctx, mgoSrv.GetManager()); err != nil {
		return err
	}

	store := history.NewStore(mgoSrv.GetDB())
	if err := store.EnsureIndexes(ctx); err != nil {
		return err
	}

	kcfg := kafka.Config{Brokers: cfg.Kafka.Brokers}
	if err := ensureArchiveTopic(kcfg, cfg.Kafka.ArchiveTopic); err != nil {
		return err
	}

	archiver := history.NewArchiver(store)
	archiver.Register(cfg.Kafka.ArchiveTopic)

	consumerDone := make(chan error, 1)
	go func() {
		consumerDone <- kafka.StartConsumerGroup(ctx, kcfg, cfg.Kafka.GroupID, []string{cfg.Kafka.ArchiveTopic})
	}()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(mid.Cors())
	history.RegisterRoutes(r, store)

	err := serveHTTP(cfg.Port, r)

	cancel()
	if cerr := <-consumerDone; cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func ensureArchiveTopic(kcfg kafka.Config, topic string) error {
	admin, err := sarama.NewClusterAdmin(kcfg.Brokers, kafka.BuildBaseConfig(kcfg))
	if err != nil {
		return err
	}
	defer func() { _ = admin.Close() }()
	return kafka.EnsureTopic(admin, topic, 8, 1)
}

// ===== backlog worker =====

// runBacklog pulls the offline stream and maintains the per-room
// recent-message windows in Redis.
func runBacklog(cfg config.AppConfig) error {
	if err := config.ConfigRedis(); err != nil {
		return err
	}
	defer func() { _ = redis.CloseRedis() }()

	nm, err := natsx.NewNatsManager(natsx.NatsxConfig{
		Servers: []string{cfg.Nats.URL},
		Name:    cfg.NodeID,
	}, natsx.NatsxIdemMiddleware(natsx.NewMemIdem(2*time.Minute), 2*time.Minute))
	if err != nil {
		return err
	}
	defer func() { _ = nm.Close() }()

	if err := nm.EnsureStream(cfg.Nats.Stream, []string{cfg.Nats.Subject}); err != nil {
		return err
	}
	if err := offline.RegisterRoute(nm, cfg.Nats.Subject, cfg.Nats.Durable); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker := offline.NewWorker(nm, offline.NewBacklog(redis.GetKV(), cfg.Relay.BacklogWindow))
	workerDone := make(chan error, 1)
	go func() { workerDone <- worker.Run(ctx) }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		cancel()
		return <-workerDone
	case err := <-workerDone:
		return err
	}
}

// ===== shared plumbing =====

// serveHTTP runs the engine until SIGINT/SIGTERM, then drains in-flight
// requests.
func serveHTTP(port int, r *gin.Engine) error {
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: r}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("[http] listening on %s", srv.Addr)
		serveErr <- srv.ListenAndServe()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return err
	case s := <-sig:
		logger.Infof("[http] signal %v, shutting down", s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func serveGrpcHealth(port int) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		logger.Errorf("[grpc] listen failed: %v", err)
		return
	}
	gs := grpc.NewServer()

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(gs, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	logger.Infof("[grpc] health listening on :%d", port)
	if err := gs.Serve(lis); err != nil {
		logger.Errorf("[grpc] server failed: %v", err)
	}
}
