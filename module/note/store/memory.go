package store

import (
	"context"
	"sync"
	"time"

	notemodel "CollabNotes/module/note/model"
	"CollabNotes/tools/errs"
	"CollabNotes/tools/ids"
)

// MemoryStore 进程内笔记存储；每次读写都拷贝，调用方拿到的对象可随意修改
type MemoryStore struct {
	mu    sync.RWMutex
	notes map[string]*notemodel.Note
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{notes: make(map[string]*notemodel.Note), now: time.Now}
}

func clone(n *notemodel.Note) *notemodel.Note {
	cp := *n
	cp.Mentions = append([]string(nil), n.Mentions...)
	if n.EditedAt != nil {
		t := *n.EditedAt
		cp.EditedAt = &t
	}
	return &cp
}

func (s *MemoryStore) Create(_ context.Context, n *notemodel.Note) (*notemodel.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := clone(n)
	cp.ID = ids.GenerateString()
	now := s.now()
	cp.CreatedAt, cp.UpdatedAt = now, now
	s.notes[cp.ID] = cp
	return clone(cp), nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*notemodel.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	if !ok {
		return nil, errs.ErrNotFound.WrapMsg("note not found")
	}
	return clone(n), nil
}

func (s *MemoryStore) UpdateContent(_ context.Context, id, content string, mentions []string) (*notemodel.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok {
		return nil, errs.ErrNotFound.WrapMsg("note not found")
	}
	now := s.now()
	n.Content = content
	n.Mentions = append([]string(nil), mentions...)
	n.IsEdited = true
	n.EditedAt = &now
	n.UpdatedAt = now
	return clone(n), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notes[id]; !ok {
		return errs.ErrNotFound.WrapMsg("note not found")
	}
	delete(s.notes, id)
	return nil
}

// ToggleHighlight 在锁内翻转，并发翻转不会丢失
func (s *MemoryStore) ToggleHighlight(_ context.Context, id string) (*notemodel.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok {
		return nil, errs.ErrNotFound.WrapMsg("note not found")
	}
	n.IsHighlighted = !n.IsHighlighted
	n.UpdatedAt = s.now()
	return clone(n), nil
}
