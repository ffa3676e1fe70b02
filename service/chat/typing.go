package chat

import (
	"sync"
	"time"
)

type typingKey struct {
	room string
	user string
}

type typingEntry struct {
	timer *time.Timer
	gen   uint64
}

// TypingTracker (room, user) -> 一个到期定时器。重复 start 替换定时器而不是叠加，
// 过期后回调 onExpire。
type TypingTracker struct {
	ttl      time.Duration
	onExpire func(roomID, userID string)

	mu      sync.Mutex
	entries map[typingKey]*typingEntry
	gen     uint64
	closed  bool
}

func NewTypingTracker(ttl time.Duration, onExpire func(roomID, userID string)) *TypingTracker {
	if ttl <= 0 {
		ttl = 3 * time.Second
	}
	return &TypingTracker{
		ttl:      ttl,
		onExpire: onExpire,
		entries:  make(map[typingKey]*typingEntry),
	}
}

// Start 返回之前是否已经处于输入状态
func (t *TypingTracker) Start(roomID, userID string) bool {
	key := typingKey{room: roomID, user: userID}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.gen++
	gen := t.gen
	prev, existed := t.entries[key]
	if existed {
		prev.timer.Stop()
	}
	t.entries[key] = &typingEntry{
		gen:   gen,
		timer: time.AfterFunc(t.ttl, func() { t.expire(key, gen) }),
	}
	return existed
}

// Stop 提前清除；返回是否存在输入状态
func (t *TypingTracker) Stop(roomID, userID string) bool {
	return t.Clear(roomID, userID)
}

// Clear 静默清除，不触发 onExpire
func (t *TypingTracker) Clear(roomID, userID string) bool {
	key := typingKey{room: roomID, user: userID}
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(t.entries, key)
	return true
}

func (t *TypingTracker) Active(roomID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[typingKey{room: roomID, user: userID}]
	return ok
}

func (t *TypingTracker) expire(key typingKey, gen uint64) {
	t.mu.Lock()
	e, ok := t.entries[key]
	// 已被新的 start 替换或已清除
	if !ok || e.gen != gen || t.closed {
		t.mu.Unlock()
		return
	}
	delete(t.entries, key)
	t.mu.Unlock()

	if t.onExpire != nil {
		t.onExpire(key.room, key.user)
	}
}

func (t *TypingTracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for k, e := range t.entries {
		e.timer.Stop()
		delete(t.entries, k)
	}
}
