package store

import (
	"context"
	"strings"
	"sync"
	"time"

	usermodel "CollabNotes/module/user/model"
	"CollabNotes/tools/errs"
	"CollabNotes/tools/ids"
)

// MemoryStore 进程内目录，单机开发和测试用
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]*usermodel.User
	order []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*usermodel.User)}
}

// Add 写入用户；ID 为空时分配雪花ID
func (s *MemoryStore) Add(u usermodel.User) *usermodel.User {
	if u.ID == "" {
		u.ID = ids.GenerateString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[u.ID]; !ok {
		s.order = append(s.order, u.ID)
	}
	cp := u
	s.byID[u.ID] = &cp
	return &cp
}

func (s *MemoryStore) SetActive(id string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byID[id]; ok {
		u.IsActive = active
	}
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*usermodel.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, errs.ErrNotFound.WrapMsg("user not found")
	}
	cp := *u
	return &cp, nil
}

// FindActiveByName 大小写不敏感的精确匹配，只查启用用户；重名时取最早写入的
func (s *MemoryStore) FindActiveByName(_ context.Context, name string) (*usermodel.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		u := s.byID[id]
		if u.IsActive && strings.EqualFold(u.Name, name) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errs.ErrNotFound.WrapMsg("user not found")
}
