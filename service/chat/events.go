package chat

import (
	"encoding/json"
	"strings"

	"CollabNotes/tools/decode"
	"CollabNotes/tools/errs"
)

// 上行事件
const (
	KindJoinRoom        = "join-room"
	KindLeaveRoom       = "leave-room"
	KindCreateNote      = "create-note"
	KindUpdateNote      = "update-note"
	KindDeleteNote      = "delete-note"
	KindToggleHighlight = "toggle-highlight"
	KindTypingStart     = "typing-start"
	KindTypingStop      = "typing-stop"
	KindDisconnect      = "disconnect"
)

// Event 上行事件的封闭集合，只有本包内的类型实现
type Event interface {
	Kind() string
	event()
}

type JoinRoom struct{ RoomID string }
type LeaveRoom struct{ RoomID string }
type CreateNote struct {
	RoomID   string
	Content  string
	ParentID string
}
type UpdateNote struct {
	NoteID  string
	Content string
}
type DeleteNote struct{ NoteID string }
type ToggleHighlight struct{ NoteID string }
type TypingStart struct{ RoomID string }
type TypingStop struct{ RoomID string }
type Disconnect struct{}

func (JoinRoom) Kind() string        { return KindJoinRoom }
func (LeaveRoom) Kind() string       { return KindLeaveRoom }
func (CreateNote) Kind() string      { return KindCreateNote }
func (UpdateNote) Kind() string      { return KindUpdateNote }
func (DeleteNote) Kind() string      { return KindDeleteNote }
func (ToggleHighlight) Kind() string { return KindToggleHighlight }
func (TypingStart) Kind() string     { return KindTypingStart }
func (TypingStop) Kind() string      { return KindTypingStop }
func (Disconnect) Kind() string      { return KindDisconnect }

func (JoinRoom) event()        {}
func (LeaveRoom) event()       {}
func (CreateNote) event()      {}
func (UpdateNote) event()      {}
func (DeleteNote) event()      {}
func (ToggleHighlight) event() {}
func (TypingStart) event()     {}
func (TypingStop) event()      {}
func (Disconnect) event()      {}

// roomPayload 兼容 roomId / candidateId 两种写法
type roomPayload struct {
	RoomID      string `json:"roomId"`
	CandidateID string `json:"candidateId"`
}

func (p *roomPayload) room() string {
	if p.RoomID != "" {
		return strings.TrimSpace(p.RoomID)
	}
	return strings.TrimSpace(p.CandidateID)
}

type createNotePayload struct {
	RoomID      string `json:"roomId"`
	CandidateID string `json:"candidateId"`
	Content     string `json:"content"`
	ParentID    string `json:"parentId"`
	ParentNote  string `json:"parentNote"`
}

type notePayload struct {
	NoteID  string `json:"noteId"`
	Content string `json:"content"`
}

// ParseEvent 把帧解码成具体事件；未知事件返回 ProtocolError
func ParseEvent(f *Frame) (Event, error) {
	switch f.Event {
	case KindJoinRoom, KindLeaveRoom, KindTypingStart, KindTypingStop:
		room, err := parseRoomID(f.Data)
		if err != nil {
			return nil, err
		}
		switch f.Event {
		case KindJoinRoom:
			return JoinRoom{RoomID: room}, nil
		case KindLeaveRoom:
			return LeaveRoom{RoomID: room}, nil
		case KindTypingStart:
			return TypingStart{RoomID: room}, nil
		default:
			return TypingStop{RoomID: room}, nil
		}

	case KindCreateNote:
		p, err := decodePayload[createNotePayload](f.Data)
		if err != nil {
			return nil, err
		}
		room := (&roomPayload{RoomID: p.RoomID, CandidateID: p.CandidateID}).room()
		if room == "" {
			return nil, errs.ErrValidation.WrapMsg("roomId is required")
		}
		parent := p.ParentID
		if parent == "" {
			parent = p.ParentNote
		}
		return CreateNote{RoomID: room, Content: p.Content, ParentID: strings.TrimSpace(parent)}, nil

	case KindUpdateNote:
		p, err := decodePayload[notePayload](f.Data)
		if err != nil {
			return nil, err
		}
		id := strings.TrimSpace(p.NoteID)
		if id == "" {
			return nil, errs.ErrValidation.WrapMsg("noteId is required")
		}
		return UpdateNote{NoteID: id, Content: p.Content}, nil

	case KindDeleteNote, KindToggleHighlight:
		id, err := parseNoteID(f.Data)
		if err != nil {
			return nil, err
		}
		if f.Event == KindDeleteNote {
			return DeleteNote{NoteID: id}, nil
		}
		return ToggleHighlight{NoteID: id}, nil

	case KindDisconnect:
		return Disconnect{}, nil

	default:
		return nil, errs.ErrProtocol.WrapMsg("Unknown event: " + f.Event)
	}
}

func decodePayload[T any](raw json.RawMessage) (*T, error) {
	p, err := decode.DecodeRaw[T](raw)
	if err != nil {
		return nil, errs.ErrProtocol.WrapMsg("malformed payload")
	}
	return p, nil
}

// bareString data 直接是字符串时按 id 处理：{"event":"join-room","data":"<id>"}
func bareString(raw json.RawMessage) (string, bool) {
	var s string
	if len(raw) > 0 && raw[0] == '"' && json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s), true
	}
	return "", false
}

func parseRoomID(raw json.RawMessage) (string, error) {
	room, ok := bareString(raw)
	if !ok {
		p, err := decodePayload[roomPayload](raw)
		if err != nil {
			return "", err
		}
		room = p.room()
	}
	if room == "" {
		return "", errs.ErrValidation.WrapMsg("roomId is required")
	}
	return room, nil
}

func parseNoteID(raw json.RawMessage) (string, error) {
	id, ok := bareString(raw)
	if !ok {
		p, err := decodePayload[notePayload](raw)
		if err != nil {
			return "", err
		}
		id = strings.TrimSpace(p.NoteID)
	}
	if id == "" {
		return "", errs.ErrValidation.WrapMsg("noteId is required")
	}
	return id, nil
}
