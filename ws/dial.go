package ws

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Tk21111/sketchroom/config"
	"github.com/Tk21111/sketchroom/internal/logx"
	"github.com/Tk21111/sketchroom/middleware"
	"github.com/Tk21111/sketchroom/protocol"
)

// Conn is the participant's end of the relay. It implements
// protocol.Transport.
type Conn struct {
	conn  *websocket.Conn
	codec middleware.Codec
	mu    sync.Mutex // one writer at a time
	log   *zap.Logger
}

type DialOptions struct {
	Room  string
	Name  string
	Codec string
}

// Dial connects to a relay. base is the ws:// or wss:// URL of the /ws
// endpoint; room, name and codec are added as query parameters.
func Dial(ctx context.Context, base string, opts DialOptions) (*Conn, error) {
	codec, err := middleware.CodecFor(opts.Codec)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("dial %q: %w", base, err)
	}
	q := u.Query()
	q.Set("roomId", opts.Room)
	if opts.Name != "" {
		q.Set("name", opts.Name)
	}
	q.Set("codec", codec.Name())
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", protocol.ErrTransportUnavailable, u.Redacted(), err)
	}

	return &Conn{
		conn:  conn,
		codec: codec,
		log:   logx.Named("conn", zap.String("roomId", opts.Room)),
	}, nil
}

func (c *Conn) Emit(ctx context.Context, msg config.NetworkMsg) error {
	frame, err := c.codec.Encode([]config.NetworkMsg{msg})
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Operation, err)
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(c.codec.FrameType(), frame); err != nil {
		return fmt.Errorf("%w: %w", protocol.ErrTransportUnavailable, err)
	}
	return nil
}

// Listen reads until the connection ends or ctx is cancelled, passing every
// payload to handle in arrival order. Undecodable frames are logged and
// skipped.
func (c *Conn) Listen(ctx context.Context, handle func(config.ServerMsg)) error {
	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("%w: %w", protocol.ErrTransportUnavailable, err)
		}

		msgs, err := c.codec.DecodeServerMsg(frame)
		if err != nil {
			c.log.Warn("drop malformed frame", zap.Error(err))
			continue
		}
		for _, m := range msgs {
			handle(m)
		}
	}
}

// Attach feeds everything Listen reads into s through q.
func (c *Conn) Attach(ctx context.Context, q *protocol.Queue, s *protocol.Session) error {
	return c.Listen(ctx, func(m config.ServerMsg) {
		q.Post(func() { _ = s.Handle(ctx, m.Payload) })
	})
}

func (c *Conn) Close() error {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.conn.Close()
}
