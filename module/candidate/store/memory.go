package store

import (
	"context"
	"sync"
	"time"

	candidatemodel "CollabNotes/module/candidate/model"
	"CollabNotes/tools/errs"
	"CollabNotes/tools/ids"
)

type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]*candidatemodel.Candidate
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*candidatemodel.Candidate)}
}

func (s *MemoryStore) Add(c candidatemodel.Candidate) *candidatemodel.Candidate {
	if c.ID == "" {
		c.ID = ids.GenerateString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := c
	s.byID[c.ID] = &cp
	return &cp
}

func (s *MemoryStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*candidatemodel.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	if !ok {
		return nil, errs.ErrNotFound.WrapMsg("candidate not found")
	}
	cp := *c
	return &cp, nil
}
