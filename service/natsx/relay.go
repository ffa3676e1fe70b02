package natsx

import (
	"context"
	"strings"

	"CollabNotes/tools/errs"

	"go.uber.org/zap"
)

const (
	HeaderOriginNode  = "X-Origin-Node"
	HeaderExcludeUser = "X-Exclude-User"
)

// Sink 本节点的投递入口
type Sink interface {
	DeliverRoom(roomID, exclude string, payload []byte)
	DeliverUser(userID string, payload []byte) bool
}

// Relay 跨节点转发房间广播和私有推送
// subject: <prefix>.room.<roomId> / <prefix>.user.<userId>
type Relay struct {
	prod   *NatsxProducer
	cons   *NatsxConsumer
	prefix string
	node   string
	log    *zap.Logger
}

func NewRelay(c *NatsxClient, prefix, node string, log *zap.Logger, mws ...NatsxMiddleware) *Relay {
	return &Relay{
		prod:   NewNatsxProducer(c),
		cons:   NewNatsxConsumer(c, mws...),
		prefix: strings.TrimSuffix(prefix, "."),
		node:   node,
		log:    log,
	}
}

// subject token 不能带 . * > 和空白
func validToken(s string) bool {
	return s != "" && !strings.ContainsAny(s, ".*> \t\r\n")
}

func (r *Relay) subject(kind, id string) (string, error) {
	if !validToken(id) {
		return "", errs.ErrValidation.WrapMsg("invalid subject token", "kind", kind, "id", id)
	}
	return r.prefix + "." + kind + "." + id, nil
}

func (r *Relay) PublishRoom(ctx context.Context, roomID, excludeUser string, payload []byte) error {
	subj, err := r.subject("room", roomID)
	if err != nil {
		return err
	}
	hdr := map[string]string{HeaderOriginNode: r.node}
	if excludeUser != "" {
		hdr[HeaderExcludeUser] = excludeUser
	}
	return r.prod.PublishOnce(ctx, subj, payload, hdr, "")
}

func (r *Relay) PublishUser(ctx context.Context, userID string, payload []byte) error {
	subj, err := r.subject("user", userID)
	if err != nil {
		return err
	}
	return r.prod.PublishOnce(ctx, subj, payload, map[string]string{HeaderOriginNode: r.node}, "")
}

// Subscribe 订阅所有房间和用户 subject，收到其他节点的消息交给 sink
func (r *Relay) Subscribe(sink Sink) error {
	h := r.handler(sink)
	for _, kind := range []string{"room", "user"} {
		if err := r.cons.Subscribe(r.prefix+"."+kind+".*", "", h); err != nil {
			return err
		}
	}
	r.log.Info("relay subscribed", zap.String("prefix", r.prefix), zap.String("node", r.node))
	return nil
}

func (r *Relay) handler(sink Sink) NatsxHandler {
	return func(ctx context.Context, msg NatsxMessage) error {
		// 自己发出的消息本地已经投递过
		if msg.Header[HeaderOriginNode] == r.node {
			return nil
		}
		rest, ok := strings.CutPrefix(msg.Subject, r.prefix+".")
		if !ok {
			return errs.ErrProtocol.WrapMsg("unexpected subject", "subject", msg.Subject)
		}
		kind, id, ok := strings.Cut(rest, ".")
		if !ok || !validToken(id) {
			return errs.ErrProtocol.WrapMsg("unexpected subject", "subject", msg.Subject)
		}
		switch kind {
		case "room":
			sink.DeliverRoom(id, msg.Header[HeaderExcludeUser], msg.Data)
		case "user":
			sink.DeliverUser(id, msg.Data)
		default:
			return errs.ErrProtocol.WrapMsg("unexpected subject", "subject", msg.Subject)
		}
		return nil
	}
}
