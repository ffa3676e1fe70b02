package kafka

import (
	"errors"

	"CollabNotes/global/config"
	"CollabNotes/tools/errs"

	"github.com/Shopify/sarama"
	"go.uber.org/zap"
)

// EnsureTopicFromConfig 启动时确保活动流 topic 存在
func EnsureTopicFromConfig(c config.KafkaConfig, log *zap.Logger) error {
	admin, err := sarama.NewClusterAdmin(c.Brokers, BuildConfig(c))
	if err != nil {
		return errs.WrapMsg(err, "kafka admin init failed", "brokers", c.Brokers)
	}
	defer admin.Close()
	return EnsureTopic(admin, c.Topic, c.Partitions, c.ReplicationFactor, log)
}

// EnsureTopic 会：
// 1) 不存在就创建；
// 2) 已存在且分区数 < 期望值时扩分区（Kafka 只能增加分区）。
func EnsureTopic(admin sarama.ClusterAdmin, topic string, partitions int32, rf int16, log *zap.Logger) error {
	descs, err := admin.DescribeTopics([]string{topic})
	if err != nil {
		return errs.WrapMsg(err, "describe topic failed", "topic", topic)
	}
	exists := len(descs) == 1 && descs[0].Err == sarama.ErrNoError

	if !exists {
		minISR := "1"
		if rf >= 3 {
			minISR = "2"
		}
		td := &sarama.TopicDetail{
			NumPartitions:     partitions,
			ReplicationFactor: rf,
			ConfigEntries: map[string]*string{
				"cleanup.policy":                 strPtr("delete"),
				"min.insync.replicas":            strPtr(minISR),
				"unclean.leader.election.enable": strPtr("false"),
				"compression.type":               strPtr("producer"),
			},
		}
		if err := admin.CreateTopic(topic, td, false); err != nil {
			var te *sarama.TopicError
			if (errors.As(err, &te) && te.Err == sarama.ErrTopicAlreadyExists) || errors.Is(err, sarama.ErrTopicAlreadyExists) {
				log.Info("topic exists (race)", zap.String("topic", topic))
				return nil
			}
			return errs.WrapMsg(err, "create topic failed", "topic", topic)
		}
		log.Info("topic created", zap.String("topic", topic), zap.Int32("partitions", partitions), zap.Int16("rf", rf))
		return nil
	}

	cur := int32(len(descs[0].Partitions))
	if partitions > cur {
		if err := admin.CreatePartitions(topic, partitions, nil, false); err != nil {
			return errs.WrapMsg(err, "expand partitions failed", "topic", topic, "from", cur, "to", partitions)
		}
		log.Info("topic partitions expanded", zap.String("topic", topic), zap.Int32("from", cur), zap.Int32("to", partitions))
		return nil
	}
	log.Info("topic exists", zap.String("topic", topic), zap.Int32("partitions", cur))
	return nil
}

func strPtr(s string) *string { return &s }
