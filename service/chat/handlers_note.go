package chat

import (
	"context"
	"time"

	candidatemodel "CollabNotes/module/candidate/model"
	"CollabNotes/module/note/mention"
	notemodel "CollabNotes/module/note/model"
	usermodel "CollabNotes/module/user/model"
	"CollabNotes/tools/errs"

	"go.uber.org/zap"
)

// 活动流事件类型
const (
	ActivityNoteCreated      = "note.created"
	ActivityNoteUpdated      = "note.updated"
	ActivityNoteDeleted      = "note.deleted"
	ActivityNoteHighlighted  = "note.highlighted"
	ActivityMentionsNotified = "mention.notified"
)

// notFound 把存储层的 NotFound 换成面向客户端的文案，其余错误加栈返回
func notFound(err error, msg string) error {
	if errs.ErrNotFound.Is(err) {
		return errs.ErrNotFound.WrapMsg(msg)
	}
	return errs.Wrap(err)
}

func (s *Server) findCandidate(ctx context.Context, roomID string) (*candidatemodel.Candidate, error) {
	cand, err := s.stores.Threads.FindByID(ctx, roomID)
	if err != nil {
		return nil, notFound(err, "Candidate not found")
	}
	return cand, nil
}

func (s *Server) findNote(ctx context.Context, noteID string) (*notemodel.Note, error) {
	n, err := s.stores.Notes.FindByID(ctx, noteID)
	if err != nil {
		return nil, notFound(err, "Note not found")
	}
	return n, nil
}

// noteView 展开作者与被@用户
func (s *Server) noteView(ctx context.Context, n *notemodel.Note, author usermodel.Identity, mentions []usermodel.Identity) NoteView {
	if author.ID != n.Author {
		author = usermodel.Identity{ID: n.Author}
		if u, err := s.stores.Users.FindByID(ctx, n.Author); err == nil {
			author = u.Identity()
		}
	}
	if mentions == nil {
		mentions = []usermodel.Identity{}
	}
	return NoteView{Note: n, Author: author, Mentions: mentions}
}

func (s *Server) createNote(ctx context.Context, c *Client, e CreateNote) error {
	cand, err := s.findCandidate(ctx, e.RoomID)
	if err != nil {
		return err
	}
	content, err := notemodel.NormalizeContent(e.Content)
	if err != nil {
		return err
	}
	if e.ParentID != "" {
		parent, err := s.stores.Notes.FindByID(ctx, e.ParentID)
		if err != nil {
			return notFound(err, "Parent note not found")
		}
		if parent.CandidateID != e.RoomID {
			return errs.ErrValidation.WrapMsg("Parent note belongs to another candidate")
		}
	}

	mentions, err := mention.Resolve(ctx, s.stores.Users, content)
	if err != nil {
		return err
	}
	created, err := s.stores.Notes.Create(ctx, &notemodel.Note{
		CandidateID: e.RoomID,
		Author:      c.Identity.ID,
		Content:     content,
		Mentions:    mention.IDs(mentions),
		ParentNote:  e.ParentID,
	})
	if err != nil {
		return err
	}
	c.log.Debug("note created", zap.String("noteId", created.ID), zap.String("roomId", e.RoomID), zap.Int("mentions", len(mentions)))

	s.broadcastRoom(ctx, e.RoomID, c.Identity.ID, EventNoteCreated, NotePayload{
		Note:      s.noteView(ctx, created, c.Identity, mentions),
		Author:    c.Identity.Name,
		Timestamp: time.Now(),
	})
	s.emit(ctx, Activity{Kind: ActivityNoteCreated, RoomID: e.RoomID, NoteID: created.ID, Actor: c.Identity.ID})

	return s.notify(ctx, c, cand.Name, created, mention.NetNew(nil, mentions))
}

func (s *Server) updateNote(ctx context.Context, c *Client, e UpdateNote) error {
	prior, err := s.findNote(ctx, e.NoteID)
	if err != nil {
		return err
	}
	if prior.Author != c.Identity.ID {
		return errs.ErrPermissionDenied.WrapMsg("You can only edit your own notes")
	}
	content, err := notemodel.NormalizeContent(e.Content)
	if err != nil {
		return err
	}
	mentions, err := mention.Resolve(ctx, s.stores.Users, content)
	if err != nil {
		return err
	}
	fresh := mention.NetNew(prior.Mentions, mentions)

	updated, err := s.stores.Notes.UpdateContent(ctx, prior.ID, content, mention.IDs(mentions))
	if err != nil {
		return notFound(err, "Note not found")
	}

	s.broadcastRoom(ctx, updated.CandidateID, c.Identity.ID, EventNoteUpdated, NotePayload{
		Note:      s.noteView(ctx, updated, c.Identity, mentions),
		Author:    c.Identity.Name,
		Timestamp: time.Now(),
	})
	s.emit(ctx, Activity{Kind: ActivityNoteUpdated, RoomID: updated.CandidateID, NoteID: updated.ID, Actor: c.Identity.ID})

	if len(fresh) == 0 {
		return nil
	}
	candName := ""
	if cand, err := s.stores.Threads.FindByID(ctx, updated.CandidateID); err == nil {
		candName = cand.Name
	} else {
		c.log.Warn("candidate lookup for mention message failed", zap.String("roomId", updated.CandidateID), zap.Error(err))
	}
	return s.notify(ctx, c, candName, updated, fresh)
}

func (s *Server) deleteNote(ctx context.Context, c *Client, e DeleteNote) error {
	n, err := s.findNote(ctx, e.NoteID)
	if err != nil {
		return err
	}
	if n.Author != c.Identity.ID {
		return errs.ErrPermissionDenied.WrapMsg("You can only delete your own notes")
	}
	if err := s.stores.Notes.Delete(ctx, n.ID); err != nil {
		return notFound(err, "Note not found")
	}

	s.broadcastRoom(ctx, n.CandidateID, c.Identity.ID, EventNoteDeleted, NoteDeletedPayload{
		NoteID:    n.ID,
		RoomID:    n.CandidateID,
		Author:    c.Identity.Name,
		Timestamp: time.Now(),
	})
	s.emit(ctx, Activity{Kind: ActivityNoteDeleted, RoomID: n.CandidateID, NoteID: n.ID, Actor: c.Identity.ID})
	return nil
}

// toggleHighlight 任何参与者都可以切换，不校验作者
func (s *Server) toggleHighlight(ctx context.Context, c *Client, e ToggleHighlight) error {
	n, err := s.stores.Notes.ToggleHighlight(ctx, e.NoteID)
	if err != nil {
		return notFound(err, "Note not found")
	}

	s.broadcastRoom(ctx, n.CandidateID, c.Identity.ID, EventNoteHighlighted, HighlightPayload{
		NoteID:        n.ID,
		RoomID:        n.CandidateID,
		IsHighlighted: n.IsHighlighted,
		Author:        c.Identity.Name,
		Timestamp:     time.Now(),
	})
	s.emit(ctx, Activity{Kind: ActivityNoteHighlighted, RoomID: n.CandidateID, NoteID: n.ID, Actor: c.Identity.ID})
	return nil
}
