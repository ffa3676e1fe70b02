package storage

import (
	"context"
	"strings"
	"time"

	"CollabNotes/tools/errs"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// presence key: cn:presence:<user>
// value: <node>|<conn>，TTL 控制在线有效期，心跳续期
func presenceKey(user string) string { return "cn:presence:" + user }

func presenceValue(node, connID string) string { return node + "|" + connID }

// 只删除仍属于这条连接的键，被新连接覆盖后旧连接的下线不能把新连接踢掉
// KEYS[1] = presence key
// ARGV[1] = 期望的 value
// 返回：1=删除；0=不存在或已被覆盖
const luaOfflineOne = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// 心跳续期，value 不匹配时不续
// KEYS[1] = presence key
// ARGV[1] = 期望的 value
// ARGV[2] = ttl 毫秒
// 返回：1=续期成功；0=会话不在
const luaHeartbeat = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`

// Session 本节点上的一条在线会话
type Session struct {
	UserID string
	ConnID string
}

// Presence 连接注册表在 Redis 里的镜像，供其他服务判断用户是否在线、在哪个节点
type Presence struct {
	rdb  redis.UniversalClient
	node string
	ttl  time.Duration
	log  *zap.Logger

	offline   *redis.Script
	heartbeat *redis.Script
}

func NewPresence(rdb redis.UniversalClient, node string, ttl time.Duration, log *zap.Logger) *Presence {
	return &Presence{
		rdb:       rdb,
		node:      node,
		ttl:       ttl,
		log:       log,
		offline:   redis.NewScript(luaOfflineOne),
		heartbeat: redis.NewScript(luaHeartbeat),
	}
}

// Online 标记在线并设置 TTL，同一用户后写覆盖先写
func (p *Presence) Online(ctx context.Context, userID, connID string) error {
	if err := p.rdb.Set(ctx, presenceKey(userID), presenceValue(p.node, connID), p.ttl).Err(); err != nil {
		return errs.WrapMsg(err, "presence online failed", "userID", userID)
	}
	return nil
}

// Offline compare-and-delete，幂等
func (p *Presence) Offline(ctx context.Context, userID, connID string) error {
	_, err := p.offline.Run(ctx, p.rdb, []string{presenceKey(userID)}, presenceValue(p.node, connID)).Int()
	if err != nil {
		return errs.WrapMsg(err, "presence offline failed", "userID", userID)
	}
	return nil
}

// Refresh 续期一条会话，返回会话是否仍然有效
func (p *Presence) Refresh(ctx context.Context, s Session) (bool, error) {
	n, err := p.heartbeat.Run(ctx, p.rdb, []string{presenceKey(s.UserID)},
		presenceValue(p.node, s.ConnID), p.ttl.Milliseconds()).Int()
	if err != nil {
		return false, errs.WrapMsg(err, "presence heartbeat failed", "userID", s.UserID)
	}
	return n == 1, nil
}

// Lookup 查询用户在线状态，返回所在节点
func (p *Presence) Lookup(ctx context.Context, userID string) (node string, online bool, err error) {
	val, err := p.rdb.Get(ctx, presenceKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errs.WrapMsg(err, "presence lookup failed", "userID", userID)
	}
	node, _, _ = strings.Cut(val, "|")
	return node, true, nil
}

// Heartbeat 周期性续期本节点的会话，ctx 结束后返回。
// 键已过期的会话用 SETNX 补写，被其他连接覆盖的不动。
func (p *Presence) Heartbeat(ctx context.Context, interval time.Duration, sessions func() []Session) {
	if interval <= 0 {
		interval = p.ttl / 2
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.refreshAll(ctx, sessions())
		}
	}
}

func (p *Presence) refreshAll(ctx context.Context, list []Session) {
	for _, s := range list {
		ok, err := p.Refresh(ctx, s)
		if err != nil {
			p.log.Warn("presence heartbeat failed", zap.String("userID", s.UserID), zap.Error(err))
			continue
		}
		if ok {
			continue
		}
		if err := p.rdb.SetNX(ctx, presenceKey(s.UserID), presenceValue(p.node, s.ConnID), p.ttl).Err(); err != nil {
			p.log.Warn("presence re-register failed", zap.String("userID", s.UserID), zap.Error(err))
		}
	}
}

// Ping 就绪探针
func (p *Presence) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}
