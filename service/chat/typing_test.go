package chat

import (
	"sync/atomic"
	"testing"
	"time"

	"CollabNotes/tools/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypingTrackerReplacesTimer(t *testing.T) {
	var fired atomic.Int32
	tr := NewTypingTracker(100*time.Millisecond, func(roomID, userID string) { fired.Add(1) })
	defer tr.Close()

	assert.False(t, tr.Start("r", "u"))
	time.Sleep(40 * time.Millisecond)
	assert.True(t, tr.Start("r", "u"))
	time.Sleep(70 * time.Millisecond)
	// 第一个定时器已被替换，不会触发
	assert.Equal(t, int32(0), fired.Load())
	assert.True(t, tr.Active("r", "u"))

	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, tr.Active("r", "u"))
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestTypingTrackerStop(t *testing.T) {
	var fired atomic.Int32
	tr := NewTypingTracker(30*time.Millisecond, func(roomID, userID string) { fired.Add(1) })
	defer tr.Close()

	assert.False(t, tr.Stop("r", "u"))
	tr.Start("r", "u")
	assert.True(t, tr.Stop("r", "u"))
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestTypingExpiresForPeers(t *testing.T) {
	f := newFixture(t)
	room := f.candidate("Carol")
	alice, bob := f.user("Alice"), f.user("Bob")
	a, b := f.connect(alice), f.connect(bob)
	f.send(a, KindJoinRoom, room)
	f.send(b, KindJoinRoom, room)
	require.Equal(t, EventJoined, f.next(a).Event)

	f.send(a, KindTypingStart, map[string]any{"roomId": room})
	fr := f.next(b)
	require.Equal(t, EventTypingStart, fr.Event)
	assert.Equal(t, alice.ID, decodeData[TypingPayload](t, fr).UserID)
	f.expectNone(a, 20*time.Millisecond)

	// 没有 typing-stop，TTL 后对端收到过期的 typing-stop
	fr = f.next(b)
	require.Equal(t, EventTypingStop, fr.Event)
	p := decodeData[TypingPayload](t, fr)
	assert.Equal(t, alice.ID, p.UserID)
	assert.Equal(t, "Alice", p.UserName)
	assert.True(t, p.Expired)
	assert.False(t, f.srv.Typing().Active(room, alice.ID))
}

func TestTypingStopOnlyWhenActive(t *testing.T) {
	f := newFixture(t)
	room := f.candidate("Carol")
	a, b := f.connect(f.user("Alice")), f.connect(f.user("Bob"))
	f.send(a, KindJoinRoom, room)
	f.send(b, KindJoinRoom, room)
	require.Equal(t, EventJoined, f.next(a).Event)

	f.send(a, KindTypingStop, room)
	f.expectNone(b, 30*time.Millisecond)

	f.send(a, KindTypingStart, room)
	require.Equal(t, EventTypingStart, f.next(b).Event)
	f.send(a, KindTypingStop, room)
	fr := f.next(b)
	require.Equal(t, EventTypingStop, fr.Event)
	assert.False(t, decodeData[TypingPayload](t, fr).Expired)
	f.expectNone(b, 150*time.Millisecond)
}

func TestLeaveClearsTyping(t *testing.T) {
	f := newFixture(t)
	room := f.candidate("Carol")
	alice := f.user("Alice")
	a := f.connect(alice)
	f.send(a, KindJoinRoom, room)
	f.send(a, KindTypingStart, room)
	require.True(t, f.srv.Typing().Active(room, alice.ID))

	f.srv.Disconnect(a)
	assert.False(t, f.srv.Typing().Active(room, alice.ID))
}

func TestTypingStartRequiresJoin(t *testing.T) {
	f := newFixture(t)
	room := f.candidate("Carol")
	alice := f.user("Alice")
	a, b := f.connect(alice), f.connect(f.user("Bob"))
	f.send(b, KindJoinRoom, room)

	f.send(a, KindTypingStart, room)
	fr := f.next(a)
	require.Equal(t, EventError, fr.Event)
	p := decodeData[ErrorPayload](t, fr)
	assert.Equal(t, errs.ValidationError, p.Code)
	assert.Equal(t, "Join the candidate room first", p.Message)
	assert.Equal(t, KindTypingStart, p.Event)

	assert.False(t, f.srv.Typing().Active(room, alice.ID))
	f.expectNone(b, 30*time.Millisecond)
}
