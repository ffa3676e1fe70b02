package chat

import (
	"context"

	"CollabNotes/tools/errs"
)

var errNotInRoom = errs.ErrValidation.WithDetail("Join the candidate room first")

func (s *Server) typingPayload(roomID string, c *Client) TypingPayload {
	return TypingPayload{RoomID: roomID, UserID: c.Identity.ID, UserName: c.Identity.Name}
}

// typingStart 每次都广播，同时刷新到期定时器；未加入的房间直接拒绝
func (s *Server) typingStart(ctx context.Context, c *Client, roomID string) error {
	if !c.InRoom(roomID) {
		return errNotInRoom
	}
	s.typing.Start(roomID, c.Identity.ID)
	s.broadcastRoom(ctx, roomID, c.Identity.ID, EventTypingStart, s.typingPayload(roomID, c))
	return nil
}

// typingStop 没有输入状态时不广播
func (s *Server) typingStop(ctx context.Context, c *Client, roomID string) {
	if !s.typing.Stop(roomID, c.Identity.ID) {
		return
	}
	s.broadcastRoom(ctx, roomID, c.Identity.ID, EventTypingStop, s.typingPayload(roomID, c))
}
