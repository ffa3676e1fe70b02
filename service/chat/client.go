package chat

import (
	"sync"

	usermodel "CollabNotes/module/user/model"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client 一条已认证的连接。身份在握手时确定，生命周期内不变。
type Client struct {
	ID       string
	Identity usermodel.Identity

	ws   *websocket.Conn // 测试中可以为 nil
	send chan []byte
	log  *zap.Logger

	// stateMu 保护 rooms 与 closing；加锁顺序 stateMu -> room.mu -> index.mu
	stateMu sync.Mutex
	rooms   map[string]struct{}
	closing bool

	sendMu     sync.RWMutex
	sendClosed bool

	done     chan struct{}
	doneOnce sync.Once
}

func NewClient(id string, ident usermodel.Identity, ws *websocket.Conn, queue int, log *zap.Logger) *Client {
	if queue <= 0 {
		queue = 256
	}
	return &Client{
		ID:       id,
		Identity: ident,
		ws:       ws,
		send:     make(chan []byte, queue),
		log:      log.With(zap.String("connID", id), zap.String("userID", ident.ID)),
		rooms:    make(map[string]struct{}),
		done:     make(chan struct{}),
	}
}

// Enqueue 非阻塞入队；队列满或已关闭返回 false
func (c *Client) Enqueue(payload []byte) bool {
	if len(payload) == 0 {
		return false
	}
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()
	if c.sendClosed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		c.log.Warn("send queue full, drop frame", zap.Int("len", len(payload)))
		return false
	}
}

// Send 出站队列，只给写协程和测试读
func (c *Client) Send() <-chan []byte { return c.send }

// Rooms 当前加入的房间快照
func (c *Client) Rooms() []string {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	out := make([]string, 0, len(c.rooms))
	for r := range c.rooms {
		out = append(out, r)
	}
	return out
}

func (c *Client) InRoom(roomID string) bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	_, ok := c.rooms[roomID]
	return ok
}

// Done 连接清理完成后关闭
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) closeSend() {
	c.sendMu.Lock()
	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
	}
	c.sendMu.Unlock()
}

// finish 清理只执行一次，结束后关闭 done
func (c *Client) finish(cleanup func()) {
	c.doneOnce.Do(func() {
		cleanup()
		close(c.done)
	})
}

// kick 关闭底层 socket，读协程随之退出并走正常清理
func (c *Client) kick(code int, reason string) {
	if c.ws == nil {
		return
	}
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadlineIn(closeGrace))
	_ = c.ws.Close()
}
