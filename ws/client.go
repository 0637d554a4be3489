package ws

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Tk21111/sketchroom/middleware"
)

const writeWait = 10 * time.Second

// Client is the relay's end of one participant connection.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	codec  middleware.Codec
	send   chan []byte
	roomId string
	userId string
	name   string
	color  string
	log    *zap.Logger
}

func (c *Client) read() {
	defer func() {
		c.hub.Leave(c)
		c.conn.Close()
	}()

	if c.hub.readLimit > 0 {
		c.conn.SetReadLimit(c.hub.readLimit)
	}

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Info("read", zap.Error(err))
			}
			break
		}

		msgs, err := c.codec.DecodeNetworkMsg(msg)
		if err != nil {
			c.log.Warn("drop malformed frame", zap.Error(err))
			continue
		}
		c.hub.Route(c, msgs)
	}
}

func (c *Client) write() {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(c.codec.FrameType(), msg); err != nil {
			return
		}
	}

	// the hub closed send: say goodbye
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "dropped"))
}
