package natsx

import (
	"context"

	"CollabNotes/tools/ids"
)

const HeaderMsgID = "Nats-Msg-Id"

// PublishOnce 带 Nats-Msg-Id 的发布，消费端配合 NatsxIdemMiddleware 去重
// - msgID 为空则用雪花 ID
func (p *NatsxProducer) PublishOnce(ctx context.Context, subject string, data []byte, hdr map[string]string, msgID string) error {
	if hdr == nil {
		hdr = map[string]string{}
	}
	if msgID == "" {
		msgID = ids.GenerateString()
	}
	hdr[HeaderMsgID] = msgID
	return p.Publish(ctx, subject, data, hdr)
}
