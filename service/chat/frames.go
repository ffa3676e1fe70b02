package chat

import (
	"encoding/json"
	"time"

	"CollabNotes/logger"
	notemodel "CollabNotes/module/note/model"
	usermodel "CollabNotes/module/user/model"
	"CollabNotes/tools/errs"

	"go.uber.org/zap"
)

// 下行事件
const (
	EventConnected       = "connected"
	EventJoined          = "joined"
	EventLeft            = "left"
	EventNoteCreated     = "note-created"
	EventNoteUpdated     = "note-updated"
	EventNoteDeleted     = "note-deleted"
	EventNoteHighlighted = "note-highlighted"
	EventTypingStart     = "typing-start"
	EventTypingStop      = "typing-stop"
	EventNotification    = "notification"
	EventError           = "error"
)

// Frame 上行帧：{"event": "...", "data": {...}}
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func ParseFrameJSON(raw []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, errs.ErrProtocol.WrapMsg("malformed frame")
	}
	if f.Event == "" {
		return nil, errs.ErrProtocol.WrapMsg("event is required")
	}
	return &f, nil
}

// OutFrame 下行帧
type OutFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
	TS    int64  `json:"ts"`
}

func encodeFrame(event string, data any) []byte {
	b, err := json.Marshal(OutFrame{Event: event, Data: data, TS: time.Now().UnixMilli()})
	if err != nil {
		logger.Error("encode frame failed", zap.String("event", event), zap.Error(err))
		return nil
	}
	return b
}

// ---- 下行负载 ----

type ConnectedPayload struct {
	ConnectionID string `json:"connectionId"`
	UserID       string `json:"userId"`
	UserName     string `json:"userName"`
	NodeID       string `json:"nodeId"`
}

type PresencePayload struct {
	RoomID    string    `json:"roomId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Timestamp time.Time `json:"timestamp"`
}

// NoteView 带作者与被@用户展开的笔记
type NoteView struct {
	*notemodel.Note
	Author   usermodel.Identity   `json:"author"`
	Mentions []usermodel.Identity `json:"mentions"`
}

type NotePayload struct {
	Note      NoteView  `json:"note"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
}

type NoteDeletedPayload struct {
	NoteID    string    `json:"noteId"`
	RoomID    string    `json:"roomId"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
}

type HighlightPayload struct {
	NoteID        string    `json:"noteId"`
	RoomID        string    `json:"roomId"`
	IsHighlighted bool      `json:"isHighlighted"`
	Author        string    `json:"author"`
	Timestamp     time.Time `json:"timestamp"`
}

type TypingPayload struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Expired  bool   `json:"expired,omitempty"`
}

type NotificationPayload struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Message     string    `json:"message"`
	CandidateID string    `json:"candidateId"`
	NoteID      string    `json:"noteId"`
	Sender      string    `json:"sender"`
	Timestamp   time.Time `json:"timestamp"`
}

type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}
