package chat

import (
	"context"
	"sync"
	"time"

	"CollabNotes/tools/safe"

	"go.uber.org/zap"
)

const relayTimeout = 2 * time.Second

type fanoutJob struct {
	recipients []string
	payloads   [][]byte // 与 recipients 一一对应
}

// Fanout 私有推送的工作池：本节点在线则入队，否则交给 relay
type Fanout struct {
	jobs     chan fanoutJob
	registry *ConnManager
	relay    Relay
	log      *zap.Logger

	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

func NewFanout(workers, queue int, registry *ConnManager, relay Relay, log *zap.Logger) *Fanout {
	if workers <= 0 {
		workers = 4
	}
	if queue <= 0 {
		queue = 1024
	}
	f := &Fanout{
		jobs:     make(chan fanoutJob, queue),
		registry: registry,
		relay:    relay,
		log:      log,
	}
	for i := 0; i < workers; i++ {
		f.wg.Add(1)
		go f.worker()
	}
	return f
}

func (f *Fanout) worker() {
	defer f.wg.Done()
	for job := range f.jobs {
		f.deliver(job)
	}
}

func (f *Fanout) deliver(job fanoutJob) {
	defer safe.Recover("chat.Fanout", nil)
	for i, uid := range job.recipients {
		payload := job.payloads[i]
		if c, ok := f.registry.Lookup(uid); ok {
			if !c.Enqueue(payload) {
				f.log.Warn("drop notification, recipient queue unavailable", zap.String("userID", uid))
			}
			continue
		}
		if f.relay == nil {
			// 不在线：之后通过查询接口读取
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), relayTimeout)
		if err := f.relay.PublishUser(ctx, uid, payload); err != nil {
			f.log.Warn("relay notification failed", zap.String("userID", uid), zap.Error(err))
		}
		cancel()
	}
}

// Submit 非阻塞提交，队列满时丢弃并返回 false
func (f *Fanout) Submit(recipients []string, payloads [][]byte) bool {
	if len(recipients) == 0 || len(recipients) != len(payloads) {
		return false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return false
	}
	select {
	case f.jobs <- fanoutJob{recipients: recipients, payloads: payloads}:
		return true
	default:
		f.log.Warn("fanout queue full, drop delivery", zap.Int("recipients", len(recipients)))
		return false
	}
}

// Close 停止接收，等待已入队的投递完成
func (f *Fanout) Close() {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closed = true
		close(f.jobs)
		f.mu.Unlock()
		f.wg.Wait()
	})
}
