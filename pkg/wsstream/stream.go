// Package wsstream 把一组 JSON 消息按产生顺序推送给 WebSocket 客户端
package wsstream

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// ErrClosed 连接已经关闭
var ErrClosed = errors.New("websocket stream closed")

// Stream 单向的 JSON 消息流
// 服务端只写，客户端发来的数据帧被丢弃；客户端断开后 Context 被取消
type Stream struct {
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	sent   int
	done   chan struct{}
}

// New 接管已经升级的连接，启动读循环和心跳
func New(parent context.Context, conn *websocket.Conn) *Stream {
	ctx, cancel := context.WithCancel(parent)
	s := &Stream{
		conn:   conn,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go s.readLoop()
	go s.pingLoop()
	return s
}

// Context 客户端断开或 Close 之后被取消
func (s *Stream) Context() context.Context {
	return s.ctx
}

// Send 以文本帧发送一条 JSON 消息
func (s *Stream) Send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(v); err != nil {
		return err
	}
	s.sent++
	return nil
}

// Close 发送关闭帧后关闭连接，可以重复调用
func (s *Stream) Close(code int, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	s.cancel()

	msg := websocket.FormatCloseMessage(code, reason)
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = s.conn.Close()

	zerolog.Ctx(s.ctx).Debug().
		Int("messages_sent", s.sent).
		Int("close_code", code).
		Msg("WebSocket stream closed")
}

func (s *Stream) readLoop() {
	defer s.cancel()
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zerolog.Ctx(s.ctx).Debug().Err(err).Msg("WebSocket read error")
			}
			return
		}
	}
}

func (s *Stream) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.closed {
				s.mu.Unlock()
				return
			}
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			s.mu.Unlock()
			if err != nil {
				s.cancel()
				return
			}
		}
	}
}
