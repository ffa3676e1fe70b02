package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"CollabNotes/global/config"
	candidatemodel "CollabNotes/module/candidate/model"
	candidatestore "CollabNotes/module/candidate/store"
	notestore "CollabNotes/module/note/store"
	notificationstore "CollabNotes/module/notification/store"
	usermodel "CollabNotes/module/user/model"
	userstore "CollabNotes/module/user/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret-0123456789abcdef"

type fixture struct {
	t      *testing.T
	conf   *config.AppConfig
	srv    *Server
	users  *userstore.MemoryStore
	cands  *candidatestore.MemoryStore
	notes  *notestore.MemoryStore
	notifs *notificationstore.MemoryStore

	clients []*Client
	seq     int
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	conf := config.NewDefaultConfig()
	conf.Auth.JWTSecret = testSecret
	conf.Chat.TypingTTL = 80 * time.Millisecond
	conf.Chat.HandlerTimeout = 2 * time.Second
	conf.Chat.RegistryShards = 4

	f := &fixture{
		t:      t,
		conf:   conf,
		users:  userstore.NewMemoryStore(),
		cands:  candidatestore.NewMemoryStore(),
		notes:  notestore.NewMemoryStore(),
		notifs: notificationstore.NewMemoryStore(),
	}
	stores := Stores{Users: f.users, Threads: f.cands, Notes: f.notes, Notifications: f.notifs}
	f.srv = NewServer(conf, stores, append([]Option{WithLogger(zap.NewNop())}, opts...)...)

	t.Cleanup(func() {
		for _, c := range f.clients {
			f.srv.Disconnect(c)
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = f.srv.Close(ctx)
	})
	return f
}

func (f *fixture) user(name string) usermodel.Identity {
	u := f.users.Add(usermodel.User{Name: name, Email: name + "@example.com", Role: usermodel.RoleRecruiter, IsActive: true})
	return u.Identity()
}

func (f *fixture) candidate(name string) string {
	return f.cands.Add(candidatemodel.Candidate{Name: name, Position: "Engineer", Status: "active"}).ID
}

// connect 模拟握手成功后的连接（无 socket），并丢弃 connected 确认
func (f *fixture) connect(ident usermodel.Identity) *Client {
	f.t.Helper()
	f.seq++
	c := NewClient(fmt.Sprintf("%s-conn-%d", ident.ID, f.seq), ident, nil, 64, zap.NewNop())
	require.NoError(f.t, f.srv.Attach(c))
	f.clients = append(f.clients, c)
	require.Equal(f.t, EventConnected, f.next(c).Event)
	return c
}

func (f *fixture) send(c *Client, event string, data any) {
	f.t.Helper()
	raw, err := json.Marshal(map[string]any{"event": event, "data": data})
	require.NoError(f.t, err)
	f.srv.HandleFrame(c, raw)
}

type inFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	TS    int64           `json:"ts"`
}

func (f *fixture) next(c *Client) inFrame {
	f.t.Helper()
	select {
	case raw, ok := <-c.Send():
		require.True(f.t, ok, "send queue closed")
		var fr inFrame
		require.NoError(f.t, json.Unmarshal(raw, &fr))
		return fr
	case <-time.After(time.Second):
		f.t.Fatalf("no frame for %s", c.Identity.Name)
		return inFrame{}
	}
}

// expectNone 在 d 内没有任何下行帧
func (f *fixture) expectNone(c *Client, d time.Duration) {
	f.t.Helper()
	select {
	case raw, ok := <-c.Send():
		if ok {
			f.t.Fatalf("unexpected frame for %s: %s", c.Identity.Name, raw)
		}
	case <-time.After(d):
	}
}

func decodeData[T any](t *testing.T, fr inFrame) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(fr.Data, &v))
	return v
}

// noteFrame 只取测试关心的字段
type noteFrame struct {
	Note struct {
		ID            string               `json:"id"`
		CandidateID   string               `json:"candidateId"`
		Content       string               `json:"content"`
		IsEdited      bool                 `json:"isEdited"`
		IsHighlighted bool                 `json:"isHighlighted"`
		Author        usermodel.Identity   `json:"author"`
		Mentions      []usermodel.Identity `json:"mentions"`
	} `json:"note"`
	Author string `json:"author"`
}
