package chat

import (
	"context"
	"net/http"
	"sync"
	"time"

	"CollabNotes/global/config"
	"CollabNotes/logger"
	"CollabNotes/middleware"
	"CollabNotes/tools/ids"
	"CollabNotes/tools/safe"
	"CollabNotes/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ReadyCheck 就绪探针
type ReadyCheck func(ctx context.Context) error

type Option func(*Server)

func WithRelay(r Relay) Option                { return func(s *Server) { s.relay = r } }
func WithPresence(p PresenceMirror) Option    { return func(s *Server) { s.presence = p } }
func WithActivity(a ActivitySink) Option      { return func(s *Server) { s.activity = a } }
func WithLogger(l *zap.Logger) Option         { return func(s *Server) { s.log = l } }
func WithIDGenerator(g *ids.Generator) Option { return func(s *Server) { s.ids = g } }
func WithReadyCheck(name string, fn ReadyCheck) Option {
	return func(s *Server) { s.ready[name] = fn }
}

// Server 实时协作网关：连接登记、房间、笔记事件与通知推送
type Server struct {
	conf   config.ChatConfig
	nodeID string
	stores Stores

	gate     *Gate
	registry *ConnManager
	rooms    *RoomIndex
	typing   *TypingTracker
	fanout   *Fanout

	relay    Relay
	presence PresenceMirror
	activity ActivitySink
	ready    map[string]ReadyCheck

	ids      *ids.Generator
	upgrader websocket.Upgrader
	log      *zap.Logger

	// attached 所有已 Attach 未 Disconnect 的连接，包括被顶替、已不在 registry 里的
	mu        sync.Mutex
	closed    bool
	attached  map[*Client]struct{}
	conns     sync.WaitGroup
	closeOnce sync.Once
}

func NewServer(conf *config.AppConfig, stores Stores, opts ...Option) *Server {
	s := &Server{
		conf:     conf.Chat,
		nodeID:   conf.App.NodeID,
		stores:   stores,
		ready:    make(map[string]ReadyCheck),
		attached: make(map[*Client]struct{}),
		log:      logger.Named("chat"),
	}
	for _, o := range opts {
		o(s)
	}
	if s.ids == nil {
		s.ids = ids.NewGenerator(conf.App.SnowNode)
	}

	s.gate = NewGate(security.Options{Secret: []byte(conf.Auth.JWTSecret), Alg: conf.Auth.Alg}, stores.Users, s.log.Named("gate"))
	s.registry = NewConnManager(s.conf.RegistryShards, s.presence, s.log.Named("registry"))
	s.rooms = NewRoomIndex(s.log.Named("rooms"))
	s.typing = NewTypingTracker(s.conf.TypingTTL, s.onTypingExpired)
	s.fanout = NewFanout(s.conf.FanoutWorkers, s.conf.FanoutQueue, s.registry, s.relay, s.log.Named("fanout"))
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		// Origin 由 middleware.Origin 校验
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	return s
}

func (s *Server) NodeID() string         { return s.nodeID }
func (s *Server) Registry() *ConnManager { return s.registry }
func (s *Server) Rooms() *RoomIndex      { return s.rooms }
func (s *Server) Typing() *TypingTracker { return s.typing }

// RegisterRoutes 挂载 /ws 与健康检查
func (s *Server) RegisterRoutes(r gin.IRouter) {
	middleware.GET(r, "/ws", s.HandleWS, middleware.RouteOpt{IsAuth: true})
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "node": s.nodeID, "connections": s.registry.Count()})
	})
	r.GET("/health/ready", s.handleReady)
}

func (s *Server) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	failed := gin.H{}
	for name, check := range s.ready {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "failed": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// broadcast 编码一次，投递给本节点的 peers，再经 relay 转给其他节点
func (s *Server) broadcast(ctx context.Context, roomID, exclude string, peers []*Client, event string, data any) {
	payload := encodeFrame(event, data)
	if payload == nil {
		return
	}
	for _, p := range peers {
		p.Enqueue(payload)
	}
	if s.relay != nil {
		if err := s.relay.PublishRoom(ctx, roomID, exclude, payload); err != nil {
			s.log.Warn("relay room broadcast failed", zap.String("roomId", roomID), zap.String("event", event), zap.Error(err))
		}
	}
}

// broadcastRoom 发给房间全部成员，exclude 为要跳过的身份
func (s *Server) broadcastRoom(ctx context.Context, roomID, exclude, event string, data any) {
	s.broadcast(ctx, roomID, exclude, s.rooms.Peers(roomID, exclude), event, data)
}

// DeliverRoom relay 收到其他节点的房间广播，只投本地成员
func (s *Server) DeliverRoom(roomID, exclude string, payload []byte) {
	for _, p := range s.rooms.Peers(roomID, exclude) {
		p.Enqueue(payload)
	}
}

// DeliverUser relay 收到其他节点的私有推送
func (s *Server) DeliverUser(userID string, payload []byte) bool {
	c, ok := s.registry.Lookup(userID)
	if !ok {
		return false
	}
	return c.Enqueue(payload)
}

// onTypingExpired 跑在定时器协程上
func (s *Server) onTypingExpired(roomID, userID string) {
	defer safe.Recover("chat.onTypingExpired", nil)
	var name string
	for _, p := range s.rooms.Peers(roomID, "") {
		if p.Identity.ID == userID {
			name = p.Identity.Name
			break
		}
	}
	s.broadcastRoom(context.Background(), roomID, userID, EventTypingStop, TypingPayload{
		RoomID:   roomID,
		UserID:   userID,
		UserName: name,
		Expired:  true,
	})
}

func (s *Server) emit(ctx context.Context, a Activity) {
	if s.activity == nil {
		return
	}
	a.Node = s.nodeID
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	if err := s.activity.Publish(ctx, a); err != nil {
		s.log.Warn("publish activity failed", zap.String("kind", a.Kind), zap.Error(err))
	}
}

// Close 关闭所有连接并等待清理结束，超时由 ctx 控制
func (s *Server) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		for _, c := range s.attachedClients() {
			if c.ws == nil {
				// 没有读协程替它清理
				s.Disconnect(c)
				continue
			}
			c.kick(closeGoingAway, "server shutting down")
		}
		done := make(chan struct{})
		go func() {
			s.conns.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = ctx.Err()
		}
		s.typing.Close()
		s.fanout.Close()
	})
	return err
}

// attachedClients 关闭后不会再有新连接，快照即全部
func (s *Server) attachedClients() []*Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Client, 0, len(s.attached))
	for c := range s.attached {
		out = append(out, c)
	}
	return out
}
