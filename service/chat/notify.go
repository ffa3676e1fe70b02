package chat

import (
	"context"
	"time"

	"CollabNotes/module/note/mention"
	notemodel "CollabNotes/module/note/model"
	notificationmodel "CollabNotes/module/notification/model"
	usermodel "CollabNotes/module/user/model"
	"CollabNotes/tools/errs"

	"go.uber.org/zap"
)

// notify 为新增的被@用户各写一条通知，再推送给在线的接收者。
// 笔记已经落库，通知写失败不回滚笔记。
func (s *Server) notify(ctx context.Context, c *Client, candidateName string, n *notemodel.Note, targets []usermodel.Identity) error {
	if len(targets) == 0 {
		return nil
	}
	now := time.Now()
	msg := notificationmodel.MentionMessage(c.Identity.Name, candidateName)
	batch := make([]*notificationmodel.Notification, 0, len(targets))
	for _, t := range targets {
		rec := &notificationmodel.Notification{
			Recipient: t.ID,
			Sender:    c.Identity.ID,
			Candidate: n.CandidateID,
			Note:      n.ID,
			Type:      notificationmodel.TypeMention,
			Message:   msg,
			CreatedAt: now,
		}
		if err := rec.Validate(); err != nil {
			return err
		}
		batch = append(batch, rec)
	}

	saved, err := s.stores.Notifications.InsertMany(ctx, batch)
	if err != nil {
		c.log.Error("persist notifications failed", zap.String("noteId", n.ID), zap.Int("count", len(batch)), zap.Error(err))
		return errs.WrapMsg(err, "insert notifications", "noteId", n.ID)
	}

	recipients := make([]string, 0, len(saved))
	payloads := make([][]byte, 0, len(saved))
	for _, rec := range saved {
		payload := encodeFrame(EventNotification, NotificationPayload{
			ID:          rec.ID,
			Type:        rec.Type,
			Message:     rec.Message,
			CandidateID: rec.Candidate,
			NoteID:      rec.Note,
			Sender:      c.Identity.Name,
			Timestamp:   rec.CreatedAt,
		})
		if payload == nil {
			continue
		}
		recipients = append(recipients, rec.Recipient)
		payloads = append(payloads, payload)
	}
	s.fanout.Submit(recipients, payloads)
	s.emit(ctx, Activity{
		Kind:    ActivityMentionsNotified,
		RoomID:  n.CandidateID,
		NoteID:  n.ID,
		Actor:   c.Identity.ID,
		Targets: mention.IDs(targets),
	})
	return nil
}
