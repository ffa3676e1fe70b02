package chat

import (
	"context"
	"time"

	candidatemodel "CollabNotes/module/candidate/model"
	notemodel "CollabNotes/module/note/model"
	notificationmodel "CollabNotes/module/notification/model"
	usermodel "CollabNotes/module/user/model"
)

// Directory 用户目录
type Directory interface {
	FindByID(ctx context.Context, id string) (*usermodel.User, error)
	FindActiveByName(ctx context.Context, name string) (*usermodel.User, error)
}

// ThreadStore 房间对应的候选人
type ThreadStore interface {
	FindByID(ctx context.Context, id string) (*candidatemodel.Candidate, error)
}

type NoteStore interface {
	Create(ctx context.Context, n *notemodel.Note) (*notemodel.Note, error)
	FindByID(ctx context.Context, id string) (*notemodel.Note, error)
	UpdateContent(ctx context.Context, id, content string, mentions []string) (*notemodel.Note, error)
	Delete(ctx context.Context, id string) error
	ToggleHighlight(ctx context.Context, id string) (*notemodel.Note, error)
}

type NotificationStore interface {
	InsertMany(ctx context.Context, batch []*notificationmodel.Notification) ([]*notificationmodel.Notification, error)
}

// Stores 外部协作者集合
type Stores struct {
	Users         Directory
	Threads       ThreadStore
	Notes         NoteStore
	Notifications NotificationStore
}

// PresenceMirror 在线状态镜像（如 redis），失败只记日志
type PresenceMirror interface {
	Online(ctx context.Context, userID, connID string) error
	Offline(ctx context.Context, userID, connID string) error
}

// Relay 跨节点转发；payload 为已编码的下行帧
type Relay interface {
	PublishRoom(ctx context.Context, roomID, excludeUser string, payload []byte) error
	PublishUser(ctx context.Context, userID string, payload []byte) error
}

// Activity 笔记动态，投递到活动流
type Activity struct {
	Kind      string    `json:"kind"`
	RoomID    string    `json:"roomId"`
	NoteID    string    `json:"noteId,omitempty"`
	Actor     string    `json:"actor"`
	Targets   []string  `json:"targets,omitempty"`
	Node      string    `json:"node"`
	Timestamp time.Time `json:"timestamp"`
}

type ActivitySink interface {
	Publish(ctx context.Context, a Activity) error
}
