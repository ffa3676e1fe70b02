package chat

import (
	"context"
	"sync"
	"testing"

	usermodel "CollabNotes/module/user/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePresence struct {
	mu     sync.Mutex
	events []string
}

func (p *fakePresence) Online(_ context.Context, userID, connID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "on:"+userID+":"+connID)
	return nil
}

func (p *fakePresence) Offline(_ context.Context, userID, connID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "off:"+userID+":"+connID)
	return nil
}

func TestConnManagerLastRegistrationWins(t *testing.T) {
	presence := &fakePresence{}
	m := NewConnManager(4, presence, zap.NewNop())
	ident := usermodel.Identity{ID: "u1", Name: "Alice"}
	c1 := NewClient("c1", ident, nil, 4, zap.NewNop())
	c2 := NewClient("c2", ident, nil, 4, zap.NewNop())

	assert.Nil(t, m.Register(c1))
	assert.Same(t, c1, m.Register(c2))

	got, ok := m.Lookup("u1")
	require.True(t, ok)
	assert.Same(t, c2, got)

	// 旧连接注销不影响新连接
	assert.False(t, m.Unregister(c1))
	got, ok = m.Lookup("u1")
	require.True(t, ok)
	assert.Same(t, c2, got)

	assert.True(t, m.Unregister(c2))
	_, ok = m.Lookup("u1")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Count())

	assert.Equal(t, []string{"on:u1:c1", "on:u1:c2", "off:u1:c2"}, presence.events)
}

func TestConnManagerShards(t *testing.T) {
	m := NewConnManager(8, nil, zap.NewNop())
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('A'+i%26)) + string(rune('a'+i/26))
			m.Register(NewClient("c-"+id, usermodel.Identity{ID: id}, nil, 1, zap.NewNop()))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 100, m.Count())
	assert.Len(t, m.Snapshot(), 100)
}

func TestClientEnqueue(t *testing.T) {
	c := NewClient("c1", usermodel.Identity{ID: "u1"}, nil, 1, zap.NewNop())
	assert.True(t, c.Enqueue([]byte("a")))
	assert.False(t, c.Enqueue([]byte("b")), "queue full")
	assert.False(t, c.Enqueue(nil))
	c.closeSend()
	c.closeSend()
	assert.False(t, c.Enqueue([]byte("c")))
}
