package store

import (
	"context"
	"sync"
	"time"

	notificationmodel "CollabNotes/module/notification/model"
	"CollabNotes/tools/ids"
)

type MemoryStore struct {
	mu    sync.RWMutex
	items []*notificationmodel.Notification
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// InsertMany 全部校验通过才写入
func (s *MemoryStore) InsertMany(_ context.Context, batch []*notificationmodel.Notification) ([]*notificationmodel.Notification, error) {
	for _, n := range batch {
		if err := n.Validate(); err != nil {
			return nil, err
		}
	}
	now := time.Now()
	out := make([]*notificationmodel.Notification, 0, len(batch))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range batch {
		cp := *n
		cp.ID = ids.GenerateString()
		cp.CreatedAt = now
		s.items = append(s.items, &cp)
		ret := cp
		out = append(out, &ret)
	}
	return out, nil
}

// ByRecipient 按写入顺序返回某用户的通知
func (s *MemoryStore) ByRecipient(recipient string) []notificationmodel.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []notificationmodel.Notification
	for _, n := range s.items {
		if n.Recipient == recipient {
			out = append(out, *n)
		}
	}
	return out
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
