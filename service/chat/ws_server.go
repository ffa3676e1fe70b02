package chat

import (
	"bytes"
	"context"
	"time"

	midsec "CollabNotes/middleware/security"
	"CollabNotes/tools/errs"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	closeGrace     = time.Second
	closeGoingAway = websocket.CloseGoingAway
)

func deadlineIn(d time.Duration) time.Time { return time.Now().Add(d) }

// HandleWS 先升级再认证，认证失败用 1008 关闭帧带回原因
func (s *Server) HandleWS(c *gin.Context) {
	token := midsec.TokenFrom(c)
	if token == "" {
		token = midsec.ExtractToken(c, nil)
	}

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// 非 websocket 请求/握手失败，Upgrade 已经写了响应
		s.log.Info("upgrade websocket failed", zap.String("remote", c.ClientIP()), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.conf.HandlerTimeout)
	ident, err := s.gate.Authenticate(ctx, token)
	cancel()
	if err != nil {
		reason := errs.ClientMessage(err, "Authentication error")
		s.log.Info("handshake rejected", zap.String("remote", c.ClientIP()), zap.String("reason", reason))
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), deadlineIn(closeGrace))
		_ = ws.Close()
		return
	}

	client := NewClient(s.ids.NextString(), ident, ws, s.conf.SendQueue, s.log)
	if err := s.Attach(client); err != nil {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server shutting down"), deadlineIn(closeGrace))
		_ = ws.Close()
		return
	}
	client.log.Info("client connected", zap.String("remote", c.ClientIP()))

	go s.writePump(client)
	s.readPump(client)
	s.Disconnect(client)
}

// Attach 登记已认证的连接并发送 connected 确认
func (s *Server) Attach(c *Client) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errs.ErrInternal.WrapMsg("server closed")
	}
	s.conns.Add(1)
	s.attached[c] = struct{}{}
	s.mu.Unlock()

	s.registry.Register(c)
	c.Enqueue(encodeFrame(EventConnected, ConnectedPayload{
		ConnectionID: c.ID,
		UserID:       c.Identity.ID,
		UserName:     c.Identity.Name,
		NodeID:       s.nodeID,
	}))
	return nil
}

// Disconnect 离开所有房间、清理输入状态、注销登记、关闭发送队列。可重复调用。
func (s *Server) Disconnect(c *Client) {
	c.finish(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.conf.HandlerTimeout)
		defer cancel()
		s.leaveAll(ctx, c)
		s.registry.Unregister(c)
		c.closeSend()
		s.mu.Lock()
		delete(s.attached, c)
		s.mu.Unlock()
		s.conns.Done()
		c.log.Info("client disconnected")
	})
}

func (s *Server) readPump(c *Client) {
	defer func() {
		_ = c.ws.Close()
	}()

	c.ws.SetReadLimit(s.conf.MaxMessageSize)
	_ = c.ws.SetReadDeadline(deadlineIn(s.conf.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(deadlineIn(s.conf.PongWait))
	})

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.log.Info("websocket read error", zap.Error(err))
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		data = bytes.TrimSpace(data)
		if len(data) == 0 {
			continue
		}
		if stop := s.HandleFrame(c, data); stop {
			return
		}
	}
}

func (s *Server) writePump(c *Client) {
	ticker := time.NewTicker(s.conf.PingPeriod())
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(deadlineIn(s.conf.WriteWait))
			if !ok {
				// 发送队列已关闭
				_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Info("write message failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(deadlineIn(s.conf.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}
