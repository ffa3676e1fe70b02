package kafka

import (
	"strings"
	"time"

	"CollabNotes/global/config"

	"github.com/Shopify/sarama"
)

const clientID = "collab-notes"

// BuildConfig 活动流生产者配置：Key 决定分区，同一房间的动态有序
func BuildConfig(c config.KafkaConfig) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Version = sarama.V2_1_0_0

	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = c.Retries
	if cfg.Producer.Retry.Max <= 0 {
		cfg.Producer.Retry.Max = 1
	}
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	cfg.Producer.Compression = compressionOf(c.Compression)

	cfg.Net.DialTimeout = 10 * time.Second
	cfg.Net.ReadTimeout = 30 * time.Second
	cfg.Net.WriteTimeout = 30 * time.Second
	return cfg
}

func compressionOf(name string) sarama.CompressionCodec {
	switch strings.ToLower(name) {
	case "snappy":
		return sarama.CompressionSnappy
	case "lz4":
		return sarama.CompressionLZ4
	case "zstd":
		return sarama.CompressionZSTD
	default:
		return sarama.CompressionNone
	}
}
