package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"CollabNotes/global/config"
	"CollabNotes/service/chat"
	"CollabNotes/tools/errs"

	"github.com/Shopify/sarama"
	"go.uber.org/zap"
)

var errPublisherClosed = errs.New("activity publisher closed")

// ActivityPublisher 把笔记动态异步写入 Kafka，结果由后台协程消费
type ActivityPublisher struct {
	producer sarama.AsyncProducer
	topic    string
	log      *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	sent   atomic.Int64
	failed atomic.Int64
}

func NewActivityPublisher(c config.KafkaConfig, log *zap.Logger) (*ActivityPublisher, error) {
	p, err := sarama.NewAsyncProducer(c.Brokers, BuildConfig(c))
	if err != nil {
		return nil, errs.WrapMsg(err, "kafka producer init failed", "brokers", c.Brokers)
	}
	return NewActivityPublisherFromProducer(p, c.Topic, log), nil
}

// NewActivityPublisherFromProducer 生产者需要开启 Return.Successes / Return.Errors
func NewActivityPublisherFromProducer(p sarama.AsyncProducer, topic string, log *zap.Logger) *ActivityPublisher {
	ap := &ActivityPublisher{producer: p, topic: topic, log: log}
	ap.wg.Add(2)
	go ap.drainSuccesses()
	go ap.drainErrors()
	return ap
}

func (p *ActivityPublisher) drainSuccesses() {
	defer p.wg.Done()
	for msg := range p.producer.Successes() {
		p.sent.Add(1)
		p.log.Debug("activity sent", zap.String("topic", msg.Topic), zap.Int32("partition", msg.Partition), zap.Int64("offset", msg.Offset))
	}
}

func (p *ActivityPublisher) drainErrors() {
	defer p.wg.Done()
	for perr := range p.producer.Errors() {
		p.failed.Add(1)
		p.log.Warn("activity send failed", zap.String("topic", perr.Msg.Topic), zap.Error(perr.Err))
	}
}

// Publish 入队即返回；队列满时等到 ctx 结束
func (p *ActivityPublisher) Publish(ctx context.Context, a chat.Activity) error {
	value, err := json.Marshal(a)
	if err != nil {
		return errs.WrapMsg(err, "encode activity failed", "kind", a.Kind)
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(a.RoomID),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("kind"), Value: []byte(a.Kind)},
			{Key: []byte("node"), Value: []byte(a.Node)},
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errPublisherClosed
	}
	select {
	case p.producer.Input() <- msg:
		return nil
	case <-ctx.Done():
		return errs.WrapMsg(ctx.Err(), "enqueue activity timeout", "kind", a.Kind)
	}
}

// Sent / Failed 已确认和失败的条数
func (p *ActivityPublisher) Sent() int64   { return p.sent.Load() }
func (p *ActivityPublisher) Failed() int64 { return p.failed.Load() }

// Close 停止接收，等待已入队的消息全部有结果
func (p *ActivityPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.producer.AsyncClose()
	p.wg.Wait()
	return nil
}
