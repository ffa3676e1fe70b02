package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"CollabNotes/tools/errs"

	"go.uber.org/zap"
)

var errClosing = errs.ErrValidation.WithDetail("connection is closing")

type room struct {
	mu   sync.Mutex
	dead bool // 已从索引摘除，迟到的 join 需要重新取
	// 身份 -> 该身份在本房间的连接；同一身份可能有多条会话
	members map[string]map[*Client]struct{}
}

// RoomIndex roomId -> 已加入的身份及其连接。房间空了就从索引删除。
// 索引锁只管 map 的查找和摘除，成员变更只锁对应房间。
type RoomIndex struct {
	mu    sync.Mutex
	rooms map[string]*room
	log   *zap.Logger
}

func NewRoomIndex(log *zap.Logger) *RoomIndex {
	return &RoomIndex{rooms: make(map[string]*room), log: log}
}

func (idx *RoomIndex) acquire(roomID string) *room {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	r, ok := idx.rooms[roomID]
	if !ok {
		r = &room{members: make(map[string]map[*Client]struct{})}
		idx.rooms[roomID] = r
	}
	return r
}

func (idx *RoomIndex) get(roomID string) *room {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.rooms[roomID]
}

// add 写入连接，返回是否为该身份在房间里的第一条连接，以及此时其他身份的连接
func (idx *RoomIndex) add(roomID string, c *Client) (bool, []*Client) {
	for {
		r := idx.acquire(roomID)
		r.mu.Lock()
		if r.dead {
			r.mu.Unlock()
			continue
		}
		conns, ok := r.members[c.Identity.ID]
		if !ok {
			conns = make(map[*Client]struct{})
			r.members[c.Identity.ID] = conns
		}
		first := len(conns) == 0
		conns[c] = struct{}{}
		var peers []*Client
		if first {
			peers = peersLocked(r, c.Identity.ID)
		}
		r.mu.Unlock()
		return first, peers
	}
}

// remove 删除这条连接。last 表示该身份已没有连接留在房间，此时返回剩余成员。
func (idx *RoomIndex) remove(roomID string, c *Client) (removed, last bool, peers []*Client) {
	r := idx.get(roomID)
	if r == nil {
		return false, false, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	conns, ok := r.members[c.Identity.ID]
	if !ok {
		return false, false, nil
	}
	if _, ok := conns[c]; !ok {
		return false, false, nil
	}
	delete(conns, c)
	if len(conns) > 0 {
		return true, false, nil
	}
	delete(r.members, c.Identity.ID)
	if len(r.members) == 0 {
		r.dead = true
		idx.mu.Lock()
		if idx.rooms[roomID] == r {
			delete(idx.rooms, roomID)
		}
		idx.mu.Unlock()
		return true, true, nil
	}
	return true, true, peersLocked(r, "")
}

func peersLocked(r *room, exclude string) []*Client {
	var out []*Client
	for uid, conns := range r.members {
		if uid == exclude {
			continue
		}
		for m := range conns {
			out = append(out, m)
		}
	}
	return out
}

// Peers 房间内所有连接的快照；exclude 为要跳过的身份，空表示全部
func (idx *RoomIndex) Peers(roomID, exclude string) []*Client {
	r := idx.get(roomID)
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return peersLocked(r, exclude)
}

// Members 房间内的身份 id，去重排序
func (idx *RoomIndex) Members(roomID string) []string {
	r := idx.get(roomID)
	if r == nil {
		return []string{}
	}
	r.mu.Lock()
	out := make([]string, 0, len(r.members))
	for uid := range r.members {
		out = append(out, uid)
	}
	r.mu.Unlock()
	sort.Strings(out)
	return out
}

// Rooms 当前存在的房间
func (idx *RoomIndex) Rooms() []string {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	out := make([]string, 0, len(idx.rooms))
	for id := range idx.rooms {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Join 候选人不存在返回 NotFound，成员不变。重复加入幂等；同一身份的第二条连接加入也不广播。
func (s *Server) Join(ctx context.Context, c *Client, roomID string) error {
	if _, err := s.findCandidate(ctx, roomID); err != nil {
		return err
	}

	c.stateMu.Lock()
	if c.closing {
		c.stateMu.Unlock()
		return errClosing
	}
	if _, ok := c.rooms[roomID]; ok {
		c.stateMu.Unlock()
		return nil
	}
	added, peers := s.rooms.add(roomID, c)
	c.rooms[roomID] = struct{}{}
	c.stateMu.Unlock()

	c.log.Debug("joined room", zap.String("roomId", roomID), zap.Bool("new", added))
	if added {
		s.broadcast(ctx, roomID, c.Identity.ID, peers, EventJoined, s.presencePayload(roomID, c))
	}
	return nil
}

// Leave 不在房间里时什么都不做
func (s *Server) Leave(ctx context.Context, c *Client, roomID string) {
	c.stateMu.Lock()
	if _, ok := c.rooms[roomID]; !ok {
		c.stateMu.Unlock()
		return
	}
	delete(c.rooms, roomID)
	_, last, peers := s.rooms.remove(roomID, c)
	c.stateMu.Unlock()

	c.log.Debug("left room", zap.String("roomId", roomID), zap.Bool("last", last))
	// 同一身份还有其他连接在房间里时不算离开
	if last {
		s.typing.Clear(roomID, c.Identity.ID)
		s.broadcast(ctx, roomID, c.Identity.ID, peers, EventLeft, s.presencePayload(roomID, c))
	}
}

// leaveAll 断开时调用：置 closing 后的 join 都会失败，所以不会留下残余成员
func (s *Server) leaveAll(ctx context.Context, c *Client) {
	type left struct {
		roomID string
		peers  []*Client
	}
	c.stateMu.Lock()
	c.closing = true
	var out []left
	for roomID := range c.rooms {
		if _, last, peers := s.rooms.remove(roomID, c); last {
			out = append(out, left{roomID: roomID, peers: peers})
			s.typing.Clear(roomID, c.Identity.ID)
		}
	}
	c.rooms = make(map[string]struct{})
	c.stateMu.Unlock()

	for _, l := range out {
		s.broadcast(ctx, l.roomID, c.Identity.ID, l.peers, EventLeft, s.presencePayload(l.roomID, c))
	}
}

func (s *Server) presencePayload(roomID string, c *Client) PresencePayload {
	return PresencePayload{
		RoomID:    roomID,
		UserID:    c.Identity.ID,
		UserName:  c.Identity.Name,
		Timestamp: time.Now(),
	}
}
