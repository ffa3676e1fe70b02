package app

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"CollabNotes/global/config"
	"CollabNotes/logger"
	"CollabNotes/middleware"
	"CollabNotes/service/chat"
	"CollabNotes/service/kafka"
	"CollabNotes/service/natsx"
	"CollabNotes/service/storage"
	redisx "CollabNotes/service/storage/redis"
	"CollabNotes/tools/errs"
	"CollabNotes/tools/ids"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type closer struct {
	name string
	fn   func(ctx context.Context) error
}

// App 网关进程：存储、可选的 redis/nats/kafka、chat.Server 和 HTTP 服务
type App struct {
	conf *config.AppConfig
	log  *zap.Logger

	srv      *chat.Server
	engine   *gin.Engine
	http     *http.Server
	presence *storage.Presence

	readyChecks []chat.Option
	closers     []closer
}

func New(ctx context.Context, conf *config.AppConfig) (*App, error) {
	a := &App{conf: conf, log: logger.Named("app")}
	ids.SetNodeID(conf.App.SnowNode)

	stores, err := a.openStores(ctx)
	if err != nil {
		a.closeAll(ctx)
		return nil, err
	}

	opts := []chat.Option{chat.WithLogger(logger.Named("chat"))}
	integrations, relay, err := a.openIntegrations(ctx)
	if err != nil {
		a.closeAll(ctx)
		return nil, err
	}
	opts = append(opts, integrations...)
	opts = append(opts, a.readyChecks...)

	a.srv = chat.NewServer(conf, stores, opts...)
	if relay != nil {
		if err := relay.Subscribe(a.srv); err != nil {
			a.closeAll(ctx)
			return nil, err
		}
	}

	a.engine = a.router()
	a.http = &http.Server{
		Addr:              conf.App.Address(),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

func (a *App) onClose(name string, fn func(ctx context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// openIntegrations redis 在线镜像、nats 跨节点转发、kafka 活动流，按配置启用
func (a *App) openIntegrations(ctx context.Context) ([]chat.Option, *natsx.Relay, error) {
	var (
		opts  []chat.Option
		relay *natsx.Relay
	)
	node := a.conf.App.NodeID

	if a.conf.Redis.Enabled {
		rdb, err := redisx.NewClient(ctx, a.conf.Redis)
		if err != nil {
			return nil, nil, err
		}
		a.onClose("redis", func(context.Context) error { return rdb.Close() })
		a.presence = storage.NewPresence(rdb, node, a.conf.Redis.PresenceTTL, logger.Named("presence"))
		opts = append(opts, chat.WithPresence(a.presence), chat.WithReadyCheck("redis", a.presence.Ping))
		a.log.Info("redis presence enabled", zap.String("addr", a.conf.Redis.Addr))
	}

	if a.conf.Nats.Enabled {
		nc, err := natsx.NewNatsxClient(natsx.ConfigFrom(a.conf.Nats), logger.Named("nats"))
		if err != nil {
			return nil, nil, err
		}
		idem := natsx.NewMemIdem(time.Minute)
		a.onClose("nats", func(context.Context) error {
			idem.Close()
			return nc.Close()
		})
		relay = natsx.NewRelay(nc, a.conf.Nats.SubjectPrefix, node, logger.Named("relay"), natsx.NatsxIdemMiddleware(idem, 0))
		opts = append(opts, chat.WithRelay(relay), chat.WithReadyCheck("nats", nc.Ping))
		a.log.Info("nats relay enabled", zap.Strings("servers", a.conf.Nats.Servers))
	}

	if a.conf.Kafka.Enabled {
		if a.conf.Kafka.EnsureTopic {
			if err := kafka.EnsureTopicFromConfig(a.conf.Kafka, logger.Named("kafka")); err != nil {
				return nil, nil, err
			}
		}
		pub, err := kafka.NewActivityPublisher(a.conf.Kafka, logger.Named("activity"))
		if err != nil {
			return nil, nil, err
		}
		a.onClose("kafka", func(context.Context) error { return pub.Close() })
		opts = append(opts, chat.WithActivity(pub))
		a.log.Info("kafka activity stream enabled", zap.String("topic", a.conf.Kafka.Topic))
	}
	return opts, relay, nil
}

func (a *App) router() *gin.Engine {
	if a.conf.App.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	httpLog := logger.Named("http")
	r.Use(
		middleware.Recovery(httpLog),
		middleware.AccessLog(httpLog),
		middleware.Origin("/ws", a.conf.Chat.AllowedOrigins),
	)
	a.srv.RegisterRoutes(r)
	return r
}

func (a *App) Handler() http.Handler { return a.engine }
func (a *App) Server() *chat.Server  { return a.srv }

// sessions 本节点在线连接，供 presence 心跳续期
func (a *App) sessions() []storage.Session {
	clients := a.srv.Registry().Snapshot()
	out := make([]storage.Session, 0, len(clients))
	for _, c := range clients {
		out = append(out, storage.Session{UserID: c.Identity.ID, ConnID: c.ID})
	}
	return out
}

// Run 阻塞到收到 SIGINT/SIGTERM 或某个组件出错，然后优雅关闭
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	if a.presence != nil {
		g.Go(func() error {
			a.presence.Heartbeat(gCtx, 0, a.sessions)
			return nil
		})
	}

	g.Go(func() error {
		a.log.Info("http server starting", zap.String("addr", a.http.Addr), zap.String("node", a.conf.App.NodeID))
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errs.WrapMsg(err, "http server error")
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		a.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.http.Shutdown(shutdownCtx); err != nil {
			a.log.Error("http shutdown error", zap.Error(err))
		}
		return a.Close(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		a.log.Error("application error", zap.Error(err))
		return err
	}
	a.log.Info("server stopped")
	return nil
}

// Close 关闭所有连接，再按注册的逆序关闭外部依赖
func (a *App) Close(ctx context.Context) error {
	var err error
	if a.srv != nil {
		if err = a.srv.Close(ctx); err != nil {
			a.log.Warn("chat server close timeout", zap.Error(err))
		}
	}
	a.closeAll(ctx)
	return err
}

func (a *App) closeAll(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			a.log.Warn("close failed", zap.String("name", c.name), zap.Error(err))
		}
	}
	a.closers = nil
}
