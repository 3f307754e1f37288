package config

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"

	"PRelay/logger"
	mgoSrv "PRelay/service/mgo"
	redis "PRelay/service/storage/redis"
	"PRelay/tools/errs"
	ids "PRelay/tools/ids"
)

// Node roles. One binary, three jobs: the gateway terminates client
// sockets and relays, the archiver drains the archive topic into
// Mongo, the backlog worker maintains the recent-message window.
const NodeTypeGateway = "gateway"
const NodeTypeArchiver = "archiver"
const NodeTypeBacklog = "backlog"

type RedisConf struct {
	Addr     string `env:"PRELAY_REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	Password string `env:"PRELAY_REDIS_PASSWORD"`
	DB       int    `env:"PRELAY_REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"PRELAY_REDIS_POOL_SIZE" envDefault:"32"`
}

type MongoConf struct {
	URI         string `env:"PRELAY_MONGO_URI" envDefault:"mongodb://localhost:27017"`
	Database    string `env:"PRELAY_MONGO_DATABASE" envDefault:"prelay"`
	Username    string `env:"PRELAY_MONGO_USERNAME"`
	Password    string `env:"PRELAY_MONGO_PASSWORD"`
	MaxPoolSize int    `env:"PRELAY_MONGO_MAX_POOL_SIZE" envDefault:"20"`
	MaxRetry    int    `env:"PRELAY_MONGO_MAX_RETRY" envDefault:"3"`
}

type KafkaConf struct {
	Brokers      []string `env:"PRELAY_KAFKA_BROKERS" envSeparator:"," envDefault:"127.0.0.1:9092"`
	ArchiveTopic string   `env:"PRELAY_KAFKA_ARCHIVE_TOPIC" envDefault:"chat.message.archive"`
	GroupID      string   `env:"PRELAY_KAFKA_GROUP_ID" envDefault:"prelay-archiver-1"`
}

type NatsConf struct {
	URL     string `env:"PRELAY_NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	Stream  string `env:"PRELAY_NATS_STREAM" envDefault:"OFFLINE"`
	Subject string `env:"PRELAY_NATS_SUBJECT" envDefault:"offline.room.ingest"`
	Durable string `env:"PRELAY_NATS_DURABLE" envDefault:"prelay-backlog"`
}

type RelayConf struct {
	Workers       int `env:"PRELAY_FANOUT_WORKERS" envDefault:"4"`
	Queue         int `env:"PRELAY_FANOUT_QUEUE" envDefault:"1024"`
	BackfillLimit int `env:"PRELAY_BACKFILL_LIMIT" envDefault:"20"`
	BacklogWindow int `env:"PRELAY_BACKLOG_WINDOW" envDefault:"100"`
}

type AppConfig struct {
	NodeType string `env:"PRELAY_NODE_TYPE" envDefault:"gateway"`
	NodeID   string `env:"PRELAY_NODE_ID"`
	Port     int    `env:"PRELAY_PORT" envDefault:"8080"`
	GrpcPort int    `env:"PRELAY_GRPC_PORT" envDefault:"50051"`

	Redis RedisConf
	Mongo MongoConf
	Kafka KafkaConf
	Nats  NatsConf
	Relay RelayConf
}

var Global AppConfig

// Load fills Global from the environment and mints a node ID when
// none is given.
func Load() error {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		return errs.WrapMsg(err, "parse environment")
	}
	switch cfg.NodeType {
	case NodeTypeGateway, NodeTypeArchiver, NodeTypeBacklog:
	default:
		return errs.New("unknown node type", "nodeType", cfg.NodeType)
	}
	if cfg.NodeID == "" {
		cfg.NodeID = cfg.NodeType + "-" + strings.Split(uuid.NewString(), "-")[0]
	}
	Global = cfg
	return nil
}

// ConfigIds seeds the snowflake generator. The node ID string is
// hashed down to the 10 bits the generator has for it.
func ConfigIds() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(Global.NodeID))
	ids.SetNodeID(int64(h.Sum32() % 1024))
}

func ConfigRedis() error {
	return redis.InitRedis(redis.Config{
		Addr:     Global.Redis.Addr,
		Password: Global.Redis.Password,
		DB:       Global.Redis.DB,
		PoolSize: Global.Redis.PoolSize,
	})
}

// ConfigMgo starts the Mongo manager in the background. Callers that
// need the handle gate on mgoSrv.WaitReady.
func ConfigMgo(ctx context.Context) {
	logger.Infof("starting mongo manager database=%s", Global.Mongo.Database)
	mgoSrv.StartAsync(ctx, &mgoSrv.Config{
		Uri:         Global.Mongo.URI,
		Database:    Global.Mongo.Database,
		Username:    Global.Mongo.Username,
		Password:    Global.Mongo.Password,
		MaxPoolSize: Global.Mongo.MaxPoolSize,
		MaxRetry:    Global.Mongo.MaxRetry,
	})
}
