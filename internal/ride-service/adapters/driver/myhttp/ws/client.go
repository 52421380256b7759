package ws

import (
	"encoding/json"
	"sync"
	"time"

	"ridehail/internal/metrics"
	"ridehail/internal/ride-service/core/domain/model"

	websocketdto "ridehail/internal/ride-service/core/domain/websocket_dto"

	"github.com/gorilla/websocket"
)

const (
	egressBuffer   = 32
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 4096
)

// Client is one actor's websocket connection. All outbound events pass
// through the buffered egress channel and a single writer goroutine, which
// keeps per-topic delivery in publish order.
type Client struct {
	actorId string
	kind    model.ActorKind
	conn    *websocket.Conn
	hub     *Hub

	egress    chan websocketdto.Event
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(actorId string, kind model.ActorKind, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		actorId: actorId,
		kind:    kind,
		conn:    conn,
		hub:     hub,
		egress:  make(chan websocketdto.Event, egressBuffer),
		done:    make(chan struct{}),
	}
}

// send queues an event without blocking. A full buffer means the client is
// too slow; the event is dropped and the client recovers over HTTP.
func (c *Client) send(e websocketdto.Event) {
	select {
	case <-c.done:
	case c.egress <- e:
	default:
		metrics.WsEventsDropped.Inc()
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

func (c *Client) readLoop() {
	defer c.hub.dropClient(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var e websocketdto.Event
		if err := json.Unmarshal(payload, &e); err != nil {
			c.send(websocketdto.NewEvent(websocketdto.TypeError,
				websocketdto.ErrorMessage{Message: "malformed event"}))
			continue
		}
		c.hub.handleInbound(c, e)
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case e := <-c.egress:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(e); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
