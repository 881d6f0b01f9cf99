package ws

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/montazh-backend/internal/goroutine"
	"github.com/ignatzorin/montazh-backend/internal/logger"
)

const (
	sendBuffer   = 16
	maxFrameSize = 4 * 1024
)

// heartbeat задаёт тайминги пингов и дедлайнов соединения.
type heartbeat struct {
	write time.Duration
	idle  time.Duration
	ping  time.Duration
}

var defaultHeartbeat = heartbeat{
	write: 10 * time.Second,
	idle:  60 * time.Second,
	ping:  54 * time.Second,
}

// Client держит одно подключение пользователя к потоку событий.
// События идут только от сервера к клиенту, входящие кадры читаются ради pong и close.
type Client struct {
	conn   *websocket.Conn
	hub    *Hub
	userID uuid.UUID
	send   chan []byte
	beat   heartbeat

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient создаёт клиента. Регистрацию в хабе выполняет вызывающий.
func NewClient(conn *websocket.Conn, hub *Hub, userID uuid.UUID) *Client {
	return &Client{
		conn:   conn,
		hub:    hub,
		userID: userID,
		send:   make(chan []byte, sendBuffer),
		beat:   defaultHeartbeat,
		done:   make(chan struct{}),
	}
}

// Run обслуживает подключение до разрыва или отмены ctx.
func (c *Client) Run(ctx context.Context) {
	stop := context.AfterFunc(ctx, c.Close)
	defer stop()

	goroutine.SafeGo(c.deliver)
	c.drain()
	c.Close()
}

// Close снимает клиента с хаба и закрывает соединение. Повторный вызов ничего не делает.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.hub != nil {
			c.hub.Unregister(c)
		}
		if c.conn == nil {
			return
		}
		deadline := time.Now().Add(c.beat.write)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = c.conn.Close()
	})
}

func (c *Client) log() *logrus.Entry {
	return logger.Log.WithField("user_id", c.userID)
}

// drain читает входящие кадры, продлевая дедлайн на каждый pong.
func (c *Client) drain() {
	c.conn.SetReadLimit(maxFrameSize)
	extend := func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.beat.idle))
	}
	_ = extend("")
	c.conn.SetPongHandler(extend)

	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log().WithError(err).Debug("ws: клиент отключился")
			}
			return
		}
	}
}

// deliver пишет события из очереди и шлёт ping, пока клиент открыт.
func (c *Client) deliver() {
	ticker := time.NewTicker(c.beat.ping)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			if err := c.write(websocket.TextMessage, payload); err != nil {
				c.log().WithError(err).Debug("ws: не удалось отправить событие")
				goroutine.SafeGo(c.Close)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.beat.write)); err != nil {
				goroutine.SafeGo(c.Close)
				return
			}
		}
	}
}

func (c *Client) write(kind int, payload []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.beat.write)); err != nil {
		return err
	}
	return c.conn.WriteMessage(kind, payload)
}
