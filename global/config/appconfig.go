package config

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// 存储驱动
const (
	StoreDriverMemory = "memory"
	StoreDriverMongo  = "mongo"
)

type AppConfig struct {
	App   AppSection  `yaml:"app"`
	Auth  AuthConfig  `yaml:"auth"`
	Chat  ChatConfig  `yaml:"chat"`
	Store StoreConfig `yaml:"store"`
	Mongo MongoConfig `yaml:"mongo"`
	Redis RedisConfig `yaml:"redis"`
	Nats  NatsConfig  `yaml:"nats"`
	Kafka KafkaConfig `yaml:"kafka"`
}

func (c *AppConfig) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Chat.Validate(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if c.Store.Driver == StoreDriverMongo {
		if err := c.Mongo.Validate(); err != nil {
			return fmt.Errorf("mongo: %w", err)
		}
	}
	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if err := c.Nats.Validate(); err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	if err := c.Kafka.Validate(); err != nil {
		return fmt.Errorf("kafka: %w", err)
	}
	return nil
}

type AppSection struct {
	NodeID   string `yaml:"node_id"`   // 节点ID，跨节点转发时用于识别自身消息
	SnowNode int64  `yaml:"snow_node"` // 雪花节点号 0~1023
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

func (c *AppSection) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *AppSection) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.NodeID, validation.Required),
		validation.Field(&c.SnowNode, validation.Min(0), validation.Max(1023)),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
	)
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Alg       string `yaml:"alg"`
}

func (c *AuthConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.JWTSecret, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.Alg, validation.In("HS256", "HS384", "HS512")),
	)
}

type ChatConfig struct {
	TypingTTL      time.Duration `yaml:"typing_ttl"`
	HandlerTimeout time.Duration `yaml:"handler_timeout"`
	SendQueue      int           `yaml:"send_queue"`
	WriteWait      time.Duration `yaml:"write_wait"`
	PongWait       time.Duration `yaml:"pong_wait"`
	MaxMessageSize int64         `yaml:"max_message_size"`
	RegistryShards int           `yaml:"registry_shards"`
	FanoutWorkers  int           `yaml:"fanout_workers"`
	FanoutQueue    int           `yaml:"fanout_queue"`
	AllowedOrigins []string      `yaml:"allowed_origins"` // 为空表示不限制
}

func (c *ChatConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TypingTTL, validation.Required, validation.Min(100*time.Millisecond)),
		validation.Field(&c.HandlerTimeout, validation.Required, validation.Min(100*time.Millisecond)),
		validation.Field(&c.SendQueue, validation.Required, validation.Min(1)),
		validation.Field(&c.WriteWait, validation.Required),
		validation.Field(&c.PongWait, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.MaxMessageSize, validation.Required, validation.Min(int64(1024))),
		validation.Field(&c.RegistryShards, validation.Required, validation.Min(1)),
		validation.Field(&c.FanoutWorkers, validation.Required, validation.Min(1)),
		validation.Field(&c.FanoutQueue, validation.Required, validation.Min(1)),
	)
}

// PingPeriod 必须小于 PongWait
func (c *ChatConfig) PingPeriod() time.Duration {
	return c.PongWait * 9 / 10
}

type StoreConfig struct {
	Driver   string `yaml:"driver"`
	SeedFile string `yaml:"seed_file"` // memory 驱动启动时导入的用户/候选人
}

func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(StoreDriverMemory, StoreDriverMongo)),
	)
}

type MongoConfig struct {
	Uri         string   `yaml:"uri"`
	Address     []string `yaml:"address"`
	Database    string   `yaml:"database"`
	Username    string   `yaml:"username"`
	Password    string   `yaml:"password"`
	AuthSource  string   `yaml:"auth_source"`
	MaxPoolSize int      `yaml:"max_pool_size"`
	MaxRetry    int      `yaml:"max_retry"`
}

func (c *MongoConfig) Validate() error {
	if c.Uri == "" && len(c.Address) == 0 {
		return fmt.Errorf("either uri or address must be provided")
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Database, validation.Required),
	)
}

type RedisConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	PoolSize    int           `yaml:"pool_size"`
	PresenceTTL time.Duration `yaml:"presence_ttl"`
}

func (c *RedisConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.PresenceTTL, validation.Required, validation.Min(time.Second)),
	)
}

type NatsConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Servers       []string      `yaml:"servers"`
	Name          string        `yaml:"name"`
	User          string        `yaml:"user"`
	Password      string        `yaml:"password"`
	SubjectPrefix string        `yaml:"subject_prefix"`
	Timeout       time.Duration `yaml:"timeout"`
}

func (c *NatsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Servers, validation.Required),
		validation.Field(&c.SubjectPrefix, validation.Required),
	)
}

type KafkaConfig struct {
	Enabled           bool     `yaml:"enabled"`
	Brokers           []string `yaml:"brokers"`
	Topic             string   `yaml:"topic"`
	Retries           int      `yaml:"retries"`
	Compression       string   `yaml:"compression"`  // none/snappy/lz4/zstd
	EnsureTopic       bool     `yaml:"ensure_topic"` // 启动时不存在就创建
	Partitions        int32    `yaml:"partitions"`
	ReplicationFactor int16    `yaml:"replication_factor"`
}

func (c *KafkaConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Brokers, validation.Required),
		validation.Field(&c.Topic, validation.Required),
		validation.Field(&c.Compression, validation.In("", "none", "snappy", "lz4", "zstd")),
		validation.Field(&c.Partitions, validation.Min(int32(1))),
		validation.Field(&c.ReplicationFactor, validation.Min(int16(1))),
	)
}

// NewDefaultConfig 默认配置；YAML 中未出现的字段沿用这里的值
func NewDefaultConfig() *AppConfig {
	return &AppConfig{
		App: AppSection{
			NodeID:   "gateway-1",
			SnowNode: 1,
			Port:     8080,
			LogLevel: "info",
		},
		Auth: AuthConfig{
			Alg: "HS256",
		},
		Chat: ChatConfig{
			TypingTTL:      3 * time.Second,
			HandlerTimeout: 5 * time.Second,
			SendQueue:      256,
			WriteWait:      10 * time.Second,
			PongWait:       60 * time.Second,
			MaxMessageSize: 512 * 1024,
			RegistryShards: 32,
			FanoutWorkers:  4,
			FanoutQueue:    1024,
		},
		Store: StoreConfig{
			Driver: StoreDriverMemory,
		},
		Mongo: MongoConfig{
			Database:    "collab_notes",
			MaxPoolSize: 100,
			MaxRetry:    3,
		},
		Redis: RedisConfig{
			PoolSize:    20,
			PresenceTTL: 2 * time.Hour,
		},
		Nats: NatsConfig{
			Name:          "collab-notes",
			SubjectPrefix: "collab.notes",
			Timeout:       3 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic:             "collab.notes.activity",
			Retries:           5,
			Compression:       "snappy",
			Partitions:        8,
			ReplicationFactor: 1,
		},
	}
}
