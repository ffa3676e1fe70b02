package chat

import (
	"context"
	"errors"

	"CollabNotes/tools/errs"
	"CollabNotes/tools/safe"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// 各事件失败时的通用提示，内部错误不把细节下发给客户端
var fallbackMessages = map[string]string{
	KindJoinRoom:        "Error joining candidate room",
	KindLeaveRoom:       "Error leaving candidate room",
	KindCreateNote:      "Error creating note",
	KindUpdateNote:      "Error updating note",
	KindDeleteNote:      "Error deleting note",
	KindToggleHighlight: "Error highlighting note",
	KindTypingStart:     "Error updating typing status",
	KindTypingStop:      "Error updating typing status",
}

// HandleFrame 解析并分发一帧。错误只回给当前连接，不影响连接本身。
// 返回 true 表示客户端要求断开。
func (s *Server) HandleFrame(c *Client, raw []byte) (stop bool) {
	kind := ""
	defer safe.Recover("chat.HandleFrame", func(err error) {
		s.replyError(c, kind, err)
	})

	f, err := ParseFrameJSON(raw)
	if err != nil {
		s.replyError(c, kind, err)
		return false
	}
	kind = f.Event
	ev, err := ParseEvent(f)
	if err != nil {
		s.replyError(c, kind, err)
		return false
	}
	if _, ok := ev.(Disconnect); ok {
		s.Disconnect(c)
		c.kick(websocket.CloseNormalClosure, "client disconnect")
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.conf.HandlerTimeout)
	defer cancel()
	if err := s.Dispatch(ctx, c, ev); err != nil {
		s.replyError(c, kind, err)
	}
	return false
}

// Dispatch 穷举所有事件类型；未知类型为协议错误
func (s *Server) Dispatch(ctx context.Context, c *Client, ev Event) error {
	switch e := ev.(type) {
	case JoinRoom:
		return s.Join(ctx, c, e.RoomID)
	case LeaveRoom:
		s.Leave(ctx, c, e.RoomID)
		return nil
	case CreateNote:
		return s.createNote(ctx, c, e)
	case UpdateNote:
		return s.updateNote(ctx, c, e)
	case DeleteNote:
		return s.deleteNote(ctx, c, e)
	case ToggleHighlight:
		return s.toggleHighlight(ctx, c, e)
	case TypingStart:
		return s.typingStart(ctx, c, e.RoomID)
	case TypingStop:
		s.typingStop(ctx, c, e.RoomID)
		return nil
	case Disconnect:
		s.Disconnect(c)
		return nil
	default:
		return errs.ErrProtocol.WrapMsg("Unknown event")
	}
}

func (s *Server) replyError(c *Client, kind string, err error) {
	fallback, ok := fallbackMessages[kind]
	if !ok {
		fallback = "Error processing event"
	}
	code := errs.CodeOf(err)
	if errors.Is(err, context.DeadlineExceeded) {
		code = errs.ServerInternalError
	}
	msg := errs.ClientMessage(err, fallback)
	if code == errs.ServerInternalError {
		c.log.Error("handler failed", zap.String("event", kind), zap.Error(err))
	} else {
		c.log.Debug("handler rejected", zap.String("event", kind), zap.Int("code", code), zap.String("message", msg))
	}
	c.Enqueue(encodeFrame(EventError, ErrorPayload{Code: code, Message: msg, Event: kind}))
}
