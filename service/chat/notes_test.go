package chat

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	candidatemodel "CollabNotes/module/candidate/model"
	usermodel "CollabNotes/module/user/model"
	"CollabNotes/tools/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingRelay struct {
	mu    sync.Mutex
	rooms []string
	users []string
}

func (r *recordingRelay) PublishRoom(_ context.Context, roomID, _ string, _ []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms = append(r.rooms, roomID)
	return nil
}

func (r *recordingRelay) PublishUser(_ context.Context, userID string, _ []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, userID)
	return nil
}

func (r *recordingRelay) userTargets() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.users...)
}

type recordingSink struct {
	mu    sync.Mutex
	kinds []string
}

func (s *recordingSink) Publish(_ context.Context, a Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kinds = append(s.kinds, a.Kind)
	return nil
}

func (s *recordingSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.kinds...)
}

// noteRoom 作者 Sam 与 Alice 都在房间里；Bob 已注册但不在线
type noteRoom struct {
	*fixture
	room            string
	sam, alice, bob usermodel.Identity
	samC, aliceC    *Client
}

func newNoteRoom(t *testing.T, opts ...Option) *noteRoom {
	f := newFixture(t, opts...)
	nr := &noteRoom{fixture: f, room: f.candidate("Carol")}
	nr.sam, nr.alice, nr.bob = f.user("Sam"), f.user("Alice"), f.user("Bob")
	nr.samC, nr.aliceC = f.connect(nr.sam), f.connect(nr.alice)
	f.send(nr.samC, KindJoinRoom, nr.room)
	f.send(nr.aliceC, KindJoinRoom, nr.room)
	require.Equal(t, EventJoined, f.next(nr.samC).Event)
	return nr
}

func (nr *noteRoom) create(content string) noteFrame {
	nr.t.Helper()
	nr.send(nr.samC, KindCreateNote, map[string]any{"roomId": nr.room, "content": content})
	fr := nr.next(nr.aliceC)
	require.Equal(nr.t, EventNoteCreated, fr.Event)
	return decodeData[noteFrame](nr.t, fr)
}

func TestCreateNoteBroadcastAndMentions(t *testing.T) {
	nr := newNoteRoom(t)

	n := nr.create("  hello @alice and @nobody and @Alice  ")
	assert.Equal(t, "hello @alice and @nobody and @Alice", n.Note.Content)
	assert.Equal(t, nr.room, n.Note.CandidateID)
	assert.Equal(t, nr.sam, n.Note.Author)
	assert.Equal(t, []usermodel.Identity{nr.alice, nr.alice}, n.Note.Mentions)
	assert.Equal(t, "Sam", n.Author)
	// 发送者不收 note-created
	nr.expectNone(nr.samC, 30*time.Millisecond)

	fr := nr.next(nr.aliceC)
	require.Equal(t, EventNotification, fr.Event)
	p := decodeData[NotificationPayload](t, fr)
	assert.Equal(t, "Sam mentioned you in a note about Carol", p.Message)
	assert.Equal(t, n.Note.ID, p.NoteID)
	assert.Equal(t, nr.room, p.CandidateID)

	// 重复 @ 只生成一条
	require.Len(t, nr.notifs.ByRecipient(nr.alice.ID), 1)
	assert.Equal(t, 1, nr.notifs.Len())
}

func TestEditNotifiesOnlyNetNewMentions(t *testing.T) {
	nr := newNoteRoom(t)
	n := nr.create("ping @Alice")
	require.Equal(t, EventNotification, nr.next(nr.aliceC).Event)
	require.Equal(t, 1, nr.notifs.Len())

	nr.send(nr.samC, KindUpdateNote, map[string]any{"noteId": n.Note.ID, "content": "ping @Alice and @Bob"})
	fr := nr.next(nr.aliceC)
	require.Equal(t, EventNoteUpdated, fr.Event)
	upd := decodeData[noteFrame](t, fr)
	assert.True(t, upd.Note.IsEdited)
	assert.Equal(t, []usermodel.Identity{nr.alice, nr.bob}, upd.Note.Mentions)
	// 编辑者自己不收 note-updated
	nr.expectNone(nr.samC, 30*time.Millisecond)

	assert.Equal(t, 2, nr.notifs.Len())
	assert.Len(t, nr.notifs.ByRecipient(nr.alice.ID), 1)
	assert.Len(t, nr.notifs.ByRecipient(nr.bob.ID), 1)

	nr.send(nr.samC, KindUpdateNote, map[string]any{"noteId": n.Note.ID, "content": "ping @Alice"})
	require.Equal(t, EventNoteUpdated, nr.next(nr.aliceC).Event)

	// 去掉 Bob 不撤回，也不新增
	assert.Equal(t, 2, nr.notifs.Len())
	assert.Len(t, nr.notifs.ByRecipient(nr.bob.ID), 1)
	nr.expectNone(nr.aliceC, 50*time.Millisecond)
}

func TestOnlyAuthorMayEditOrDelete(t *testing.T) {
	nr := newNoteRoom(t)
	n := nr.create("original")

	nr.send(nr.aliceC, KindUpdateNote, map[string]any{"noteId": n.Note.ID, "content": "hijacked"})
	fr := nr.next(nr.aliceC)
	require.Equal(t, EventError, fr.Event)
	p := decodeData[ErrorPayload](t, fr)
	assert.Equal(t, errs.PermissionDeniedError, p.Code)
	assert.Equal(t, "You can only edit your own notes", p.Message)

	nr.send(nr.aliceC, KindDeleteNote, map[string]any{"noteId": n.Note.ID})
	fr = nr.next(nr.aliceC)
	require.Equal(t, EventError, fr.Event)
	p = decodeData[ErrorPayload](t, fr)
	assert.Equal(t, errs.PermissionDeniedError, p.Code)
	assert.Equal(t, "You can only delete your own notes", p.Message)

	stored, err := nr.notes.FindByID(context.Background(), n.Note.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", stored.Content)
	assert.False(t, stored.IsEdited)
	nr.expectNone(nr.samC, 30*time.Millisecond)

	nr.send(nr.samC, KindDeleteNote, n.Note.ID)
	fr = nr.next(nr.aliceC)
	require.Equal(t, EventNoteDeleted, fr.Event)
	assert.Equal(t, n.Note.ID, decodeData[NoteDeletedPayload](t, fr).NoteID)
	nr.expectNone(nr.samC, 30*time.Millisecond)
	_, err = nr.notes.FindByID(context.Background(), n.Note.ID)
	assert.True(t, errs.ErrNotFound.Is(err))

	nr.send(nr.samC, KindDeleteNote, n.Note.ID)
	fr = nr.next(nr.samC)
	require.Equal(t, EventError, fr.Event)
	assert.Equal(t, "Note not found", decodeData[ErrorPayload](t, fr).Message)
}

func TestAnyParticipantMayHighlight(t *testing.T) {
	nr := newNoteRoom(t)
	n := nr.create("worth a look")

	nr.send(nr.aliceC, KindToggleHighlight, map[string]any{"noteId": n.Note.ID})
	fr := nr.next(nr.samC)
	require.Equal(t, EventNoteHighlighted, fr.Event)
	p := decodeData[HighlightPayload](t, fr)
	assert.True(t, p.IsHighlighted)
	assert.Equal(t, n.Note.ID, p.NoteID)
	assert.Equal(t, "Alice", p.Author)
	nr.expectNone(nr.aliceC, 30*time.Millisecond)

	nr.send(nr.samC, KindToggleHighlight, n.Note.ID)
	fr = nr.next(nr.aliceC)
	require.Equal(t, EventNoteHighlighted, fr.Event)
	assert.False(t, decodeData[HighlightPayload](t, fr).IsHighlighted)
	nr.expectNone(nr.samC, 30*time.Millisecond)
}

type panicRelay struct{}

func (panicRelay) PublishRoom(context.Context, string, string, []byte) error { panic("relay down") }
func (panicRelay) PublishUser(context.Context, string, []byte) error         { panic("relay down") }

func TestTypingExpiryPanicIsContained(t *testing.T) {
	f := newFixture(t, WithRelay(panicRelay{}))
	room := f.candidate("Carol")
	alice := f.user("Alice")

	assert.NotPanics(t, func() { f.srv.onTypingExpired(room, alice.ID) })
}

func TestCreateNoteValidation(t *testing.T) {
	nr := newNoteRoom(t)

	cases := []struct {
		name string
		data map[string]any
		code int
		msg  string
	}{
		{"blank content", map[string]any{"roomId": nr.room, "content": "   "}, errs.ValidationError, "Note content is required"},
		{"missing room", map[string]any{"content": "x"}, errs.ValidationError, "roomId is required"},
		{"unknown room", map[string]any{"roomId": "nope", "content": "x"}, errs.NotFoundError, "Candidate not found"},
		{"unknown parent", map[string]any{"roomId": nr.room, "content": "x", "parentId": "nope"}, errs.NotFoundError, "Parent note not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			nr.send(nr.samC, KindCreateNote, tc.data)
			fr := nr.next(nr.samC)
			require.Equal(t, EventError, fr.Event)
			p := decodeData[ErrorPayload](t, fr)
			assert.Equal(t, tc.code, p.Code)
			assert.Equal(t, tc.msg, p.Message)
			assert.Equal(t, KindCreateNote, p.Event)
		})
	}
	nr.expectNone(nr.aliceC, 30*time.Millisecond)
}

func TestReplyToParent(t *testing.T) {
	nr := newNoteRoom(t)
	parent := nr.create("parent")

	nr.send(nr.samC, KindCreateNote, map[string]any{"candidateId": nr.room, "content": "child", "parentNote": parent.Note.ID})
	fr := nr.next(nr.aliceC)
	require.Equal(t, EventNoteCreated, fr.Event)

	other := nr.candidate("Dave")
	nr.send(nr.samC, KindCreateNote, map[string]any{"roomId": other, "content": "child", "parentId": parent.Note.ID})
	fr = nr.next(nr.samC)
	require.Equal(t, EventError, fr.Event)
	assert.Equal(t, errs.ValidationError, decodeData[ErrorPayload](t, fr).Code)
}

func TestProtocolErrors(t *testing.T) {
	f := newFixture(t)
	a := f.connect(f.user("Alice"))

	f.srv.HandleFrame(a, []byte("not json"))
	fr := f.next(a)
	require.Equal(t, EventError, fr.Event)
	assert.Equal(t, errs.ProtocolError, decodeData[ErrorPayload](t, fr).Code)

	f.send(a, "bogus", nil)
	fr = f.next(a)
	require.Equal(t, EventError, fr.Event)
	p := decodeData[ErrorPayload](t, fr)
	assert.Equal(t, errs.ProtocolError, p.Code)
	assert.Equal(t, "bogus", p.Event)

	// 错误不关闭连接
	_, ok := f.srv.Registry().Lookup(a.Identity.ID)
	assert.True(t, ok)
}

func TestOfflineRecipientGoesToRelay(t *testing.T) {
	relay := &recordingRelay{}
	sink := &recordingSink{}
	nr := newNoteRoom(t, WithRelay(relay), WithActivity(sink))

	nr.create("cc @Bob")
	assert.Eventually(t, func() bool {
		targets := relay.userTargets()
		return len(targets) == 1 && targets[0] == nr.bob.ID
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, sink.snapshot(), ActivityNoteCreated)
	assert.Contains(t, sink.snapshot(), ActivityMentionsNotified)
}

type panicThreads struct{}

func (panicThreads) FindByID(context.Context, string) (*candidatemodel.Candidate, error) {
	panic("boom")
}

func TestHandlerPanicIsContained(t *testing.T) {
	f := newFixture(t)
	stores := f.srv.stores
	stores.Threads = panicThreads{}
	srv := NewServer(f.conf, stores, WithLogger(zap.NewNop()))

	alice := f.user("Alice")
	c := NewClient("c1", alice, nil, 8, zap.NewNop())
	require.NoError(t, srv.Attach(c))
	t.Cleanup(func() {
		srv.Disconnect(c)
		_ = srv.Close(context.Background())
	})
	<-c.Send()

	assert.False(t, srv.HandleFrame(c, []byte(`{"event":"join-room","data":"r1"}`)))
	raw := <-c.Send()
	var fr inFrame
	require.NoError(t, json.Unmarshal(raw, &fr))
	require.Equal(t, EventError, fr.Event)
	p := decodeData[ErrorPayload](t, fr)
	assert.Equal(t, errs.ServerInternalError, p.Code)
	assert.Equal(t, "Error joining candidate room", p.Message)
}
