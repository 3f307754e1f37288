package kafka

import (
	"strings"
	"sync"
	"time"

	"github.com/Shopify/sarama"

	"PRelay/logger"
	"PRelay/tools/errs"
)

// Config keeps every tunable of the archive stream in code, no YAML.
type Config struct {
	Brokers               []string
	KafkaVersion          sarama.KafkaVersion
	ProducerRetries       int
	ProducerCompression   string // none/snappy/lz4/zstd
	ConsumerInitialOffset string // newest/oldest
}

type Manager struct {
	client sarama.Client
	prod   sarama.SyncProducer
}

var (
	mgr  *Manager
	once sync.Once
)

// BuildBaseConfig maps our Config onto sarama's. The hash partitioner
// is load-bearing: messages are keyed by room, so one room always
// lands on one partition and stays in order.
func BuildBaseConfig(cfg Config) *sarama.Config {
	sc := sarama.NewConfig()
	if cfg.KafkaVersion == (sarama.KafkaVersion{}) {
		cfg.KafkaVersion = sarama.V2_1_0_0
	}
	sc.Version = cfg.KafkaVersion

	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	if cfg.ProducerRetries <= 0 {
		cfg.ProducerRetries = 5
	}
	sc.Producer.Retry.Max = cfg.ProducerRetries
	sc.Producer.Partitioner = sarama.NewHashPartitioner
	switch strings.ToLower(cfg.ProducerCompression) {
	case "snappy":
		sc.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		sc.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		sc.Producer.Compression = sarama.CompressionZSTD
	default:
		sc.Producer.Compression = sarama.CompressionNone
	}

	switch strings.ToLower(cfg.ConsumerInitialOffset) {
	case "oldest":
		sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	default:
		sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	sc.Consumer.Return.Errors = true

	sc.Net.DialTimeout = 10 * time.Second
	sc.Net.ReadTimeout = 30 * time.Second
	sc.Net.WriteTimeout = 30 * time.Second
	return sc
}

// InitKafka connects the shared client and sync producer.
func InitKafka(cfg Config) error {
	var initErr error
	once.Do(func() {
		client, err := sarama.NewClient(cfg.Brokers, BuildBaseConfig(cfg))
		if err != nil {
			initErr = errs.WrapMsg(err, "connect kafka", "brokers", strings.Join(cfg.Brokers, ","))
			return
		}
		prod, err := sarama.NewSyncProducerFromClient(client)
		if err != nil {
			_ = client.Close()
			initErr = errs.WrapMsg(err, "new sync producer")
			return
		}
		mgr = &Manager{client: client, prod: prod}
		logger.Infof("[kafka] connected, brokers=%d", len(client.Brokers()))
	})
	return initErr
}

func get() *Manager {
	if mgr == nil {
		panic("Kafka not initialized, call InitKafka first")
	}
	return mgr
}

func GetClient() sarama.Client { return get().client }

// SendSync publishes one keyed record and waits for the broker ack.
func SendSync(topic string, key, value []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.ByteEncoder(key),
		Value: sarama.ByteEncoder(value),
	}
	_, _, err := get().prod.SendMessage(msg)
	if err != nil {
		return errs.WrapMsg(err, "send kafka message", "topic", topic)
	}
	return nil
}

func CloseKafka() {
	if mgr == nil {
		return
	}
	if err := mgr.prod.Close(); err != nil {
		logger.Warnf("[kafka] close producer: %v", err)
	}
	if err := mgr.client.Close(); err != nil {
		logger.Warnf("[kafka] close client: %v", err)
	}
}
