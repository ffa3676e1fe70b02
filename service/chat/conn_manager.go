package chat

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"
)

const presenceTimeout = 2 * time.Second

type shard struct {
	mu     sync.RWMutex
	byUser map[string]*Client
}

// ConnManager 身份 -> 在线连接。按用户哈希分片，不同用户互不竞争。
// 每个身份最多一条连接，后注册的覆盖先注册的。
type ConnManager struct {
	shards   []*shard
	presence PresenceMirror
	log      *zap.Logger
}

func NewConnManager(shards int, presence PresenceMirror, log *zap.Logger) *ConnManager {
	if shards <= 0 {
		shards = 32
	}
	m := &ConnManager{
		shards:   make([]*shard, shards),
		presence: presence,
		log:      log,
	}
	for i := range m.shards {
		m.shards[i] = &shard{byUser: make(map[string]*Client)}
	}
	return m
}

func (m *ConnManager) shardOf(userID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return m.shards[h.Sum32()%uint32(len(m.shards))]
}

// Register 登记连接，返回被顶替的旧连接（没有则 nil）
func (m *ConnManager) Register(c *Client) *Client {
	s := m.shardOf(c.Identity.ID)
	s.mu.Lock()
	prev := s.byUser[c.Identity.ID]
	s.byUser[c.Identity.ID] = c
	s.mu.Unlock()

	if prev != nil && prev != c {
		m.log.Info("connection superseded",
			zap.String("userID", c.Identity.ID),
			zap.String("old", prev.ID),
			zap.String("new", c.ID))
	} else {
		prev = nil
	}
	m.mirror(func(ctx context.Context) error { return m.presence.Online(ctx, c.Identity.ID, c.ID) })
	return prev
}

// Unregister 仅当登记的仍是这条连接时移除；已被顶替时什么都不做
func (m *ConnManager) Unregister(c *Client) bool {
	s := m.shardOf(c.Identity.ID)
	s.mu.Lock()
	cur, ok := s.byUser[c.Identity.ID]
	removed := ok && cur == c
	if removed {
		delete(s.byUser, c.Identity.ID)
	}
	s.mu.Unlock()

	if removed {
		m.mirror(func(ctx context.Context) error { return m.presence.Offline(ctx, c.Identity.ID, c.ID) })
	}
	return removed
}

// Lookup 不在线不是错误
func (m *ConnManager) Lookup(userID string) (*Client, bool) {
	s := m.shardOf(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byUser[userID]
	return c, ok
}

func (m *ConnManager) Count() int {
	n := 0
	for _, s := range m.shards {
		s.mu.RLock()
		n += len(s.byUser)
		s.mu.RUnlock()
	}
	return n
}

// Snapshot 所有在线连接
func (m *ConnManager) Snapshot() []*Client {
	var out []*Client
	for _, s := range m.shards {
		s.mu.RLock()
		for _, c := range s.byUser {
			out = append(out, c)
		}
		s.mu.RUnlock()
	}
	return out
}

func (m *ConnManager) mirror(fn func(ctx context.Context) error) {
	if m.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		m.log.Warn("presence mirror failed", zap.Error(err))
	}
}
