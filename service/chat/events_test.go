package chat

import (
	"testing"

	"CollabNotes/tools/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, raw string) (Event, error) {
	t.Helper()
	f, err := ParseFrameJSON([]byte(raw))
	require.NoError(t, err)
	return ParseEvent(f)
}

func TestParseEvent(t *testing.T) {
	cases := []struct {
		raw  string
		want Event
	}{
		{`{"event":"join-room","data":"c1"}`, JoinRoom{RoomID: "c1"}},
		{`{"event":"join-room","data":{"roomId":" c1 "}}`, JoinRoom{RoomID: "c1"}},
		{`{"event":"leave-room","data":{"candidateId":"c1"}}`, LeaveRoom{RoomID: "c1"}},
		{`{"event":"create-note","data":{"candidateId":"c1","content":"hi","parentNote":"n0"}}`, CreateNote{RoomID: "c1", Content: "hi", ParentID: "n0"}},
		{`{"event":"create-note","data":{"roomId":"c1","content":"hi","parentId":"n1"}}`, CreateNote{RoomID: "c1", Content: "hi", ParentID: "n1"}},
		{`{"event":"update-note","data":{"noteId":"n1","content":"x"}}`, UpdateNote{NoteID: "n1", Content: "x"}},
		{`{"event":"delete-note","data":"n1"}`, DeleteNote{NoteID: "n1"}},
		{`{"event":"toggle-highlight","data":{"noteId":"n1"}}`, ToggleHighlight{NoteID: "n1"}},
		{`{"event":"typing-start","data":{"roomId":"c1"}}`, TypingStart{RoomID: "c1"}},
		{`{"event":"typing-stop","data":"c1"}`, TypingStop{RoomID: "c1"}},
		{`{"event":"disconnect"}`, Disconnect{}},
	}
	for _, tc := range cases {
		ev, err := parse(t, tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, ev, tc.raw)
		assert.Equal(t, tc.want.Kind(), ev.Kind())
	}
}

func TestParseEventErrors(t *testing.T) {
	_, err := parse(t, `{"event":"shout","data":{}}`)
	assert.True(t, errs.ErrProtocol.Is(err))

	_, err = parse(t, `{"event":"join-room","data":{}}`)
	assert.True(t, errs.ErrValidation.Is(err))

	_, err = parse(t, `{"event":"delete-note"}`)
	assert.True(t, errs.ErrValidation.Is(err))

	_, err = parse(t, `{"event":"create-note","data":[1,2]}`)
	assert.True(t, errs.ErrProtocol.Is(err))

	_, err = ParseFrameJSON([]byte(`{"data":{}}`))
	assert.True(t, errs.ErrProtocol.Is(err))
	_, err = ParseFrameJSON([]byte(`{`))
	assert.True(t, errs.ErrProtocol.Is(err))
}
