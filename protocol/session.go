package protocol

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"

	"github.com/Tk21111/sketchroom/config"
	"github.com/Tk21111/sketchroom/drawing"
	"github.com/Tk21111/sketchroom/internal/logx"
	"github.com/Tk21111/sketchroom/render"
	"github.com/Tk21111/sketchroom/tool"
)

type Options struct {
	Width, Height int

	// Tool defaults to tool.Default().
	Tool   *tool.Tool
	Engine *render.Engine
	Logger *zap.Logger

	// Queue, when set, receives the reconciliation timeout.
	Queue       *Queue
	SyncTimeout time.Duration

	OnPresence func(Presence)
	OnOffline  func(offline bool)
	OnState    func(State)
}

// Session is one participant: its tool cursor, its two layers and its view
// of the room. It is not safe for concurrent use; drive it from a Queue.
type Session struct {
	id, name, room string
	color          string
	state          State
	peers          int

	tool       *tool.Tool
	drawable   *render.Surface
	background *render.Surface
	engine     *render.Engine

	transport Transport
	offline   bool
	log       *zap.Logger

	queue       *Queue
	syncTimeout time.Duration
	round       int

	awaitCanvas     bool
	awaitBackground bool

	handlers map[string]handler

	onPresence func(Presence)
	onOffline  func(bool)
	onState    func(State)
}

func NewSession(t Transport, opts Options) (*Session, error) {
	engine := opts.Engine
	if engine == nil {
		var err error
		if engine, err = render.NewEngine(); err != nil {
			return nil, fmt.Errorf("new session: %w", err)
		}
	}

	cur := opts.Tool
	if cur == nil {
		cur = tool.Default()
	}

	log := opts.Logger
	if log == nil {
		log = logx.L
	}

	s := &Session{
		state:       Connecting,
		tool:        cur,
		drawable:    render.NewSurface(opts.Width, opts.Height),
		background:  render.NewSurface(opts.Width, opts.Height),
		engine:      engine,
		transport:   t,
		log:         log,
		queue:       opts.Queue,
		syncTimeout: opts.SyncTimeout,
		handlers:    defaultHandlers(),
		onPresence:  opts.OnPresence,
		onOffline:   opts.OnOffline,
		onState:     opts.OnState,
	}
	s.background.Fill(tool.White)
	return s, nil
}

func (s *Session) ID() string                  { return s.id }
func (s *Session) Name() string                { return s.name }
func (s *Session) Room() string                { return s.room }
func (s *Session) Color() string               { return s.color }
func (s *Session) State() State                { return s.state }
func (s *Session) Tool() *tool.Tool            { return s.tool }
func (s *Session) Engine() *render.Engine      { return s.engine }
func (s *Session) Drawable() *render.Surface   { return s.drawable }
func (s *Session) Background() *render.Surface { return s.background }
func (s *Session) Offline() bool               { return s.offline }
func (s *Session) Awaiting() (canvas, bg bool) { return s.awaitCanvas, s.awaitBackground }

func (s *Session) setState(st State) {
	if s.state == st {
		return
	}
	s.log.Debug("session state",
		zap.String("from", s.state.String()),
		zap.String("to", st.String()),
	)
	s.state = st
	if s.onState != nil {
		s.onState(st)
	}
}

// Handle dispatches one message from the room. Failures are logged and the
// message dropped; the session keeps running.
func (s *Session) Handle(ctx context.Context, msg config.NetworkMsg) error {
	h, ok := s.handlers[msg.Operation]
	if !ok {
		s.log.Debug("unknown operation", zap.String("op", msg.Operation))
		return nil
	}
	if err := h(ctx, s, msg); err != nil {
		s.log.Warn("drop message",
			zap.String("op", msg.Operation),
			zap.String("from", msg.ID),
			zap.Error(err),
		)
		return fmt.Errorf("%s: %w", msg.Operation, err)
	}
	return nil
}

// Draw applies ev locally and relays it. A relay failure only switches the
// session to offline; the local layer is already updated.
func (s *Session) Draw(ctx context.Context, ev drawing.Event) error {
	if err := s.engine.Apply(s.drawable, ev); err != nil {
		return err
	}
	e := ev
	// a failed emit only flips offline; the stroke is already on the canvas
	_ = s.emit(ctx, config.NetworkMsg{Operation: config.OpDraw, Event: &e})
	return nil
}

// SetBackground replaces the background layer with img and pushes the result
// to everyone in the room.
func (s *Session) SetBackground(ctx context.Context, img image.Image) error {
	s.background.ReplaceImage(img)
	return s.broadcastBackground(ctx)
}

// SetBackgroundImage decodes an image in any registered format.
func (s *Session) SetBackgroundImage(ctx context.Context, b []byte) error {
	img, err := render.DecodeImage(b)
	if err != nil {
		return err
	}
	return s.SetBackground(ctx, img)
}

// SetBackgroundColor fills the local background only.
func (s *Session) SetBackgroundColor(c tool.Color) {
	s.background.Fill(c)
}

func (s *Session) broadcastBackground(ctx context.Context) error {
	snap, err := s.background.Snapshot()
	if err != nil {
		return err
	}
	return s.emit(ctx, config.NetworkMsg{Operation: config.OpReceiveBackgroundCanvasAll, Snapshot: snap})
}

func (s *Session) Rename(ctx context.Context, name string) error {
	if name == "" {
		return errors.New("rename: empty name")
	}
	s.name = name
	return s.emit(ctx, config.NetworkMsg{Operation: config.OpUserNameChange, Name: name})
}

// Resize changes both layers, keeping content anchored at the origin.
func (s *Session) Resize(width, height int) {
	s.drawable.Resize(width, height)
	s.background.Resize(width, height)
}

// Expire ends reconciliation in round if it is still running. Layers that
// never got an answer stay as they are.
func (s *Session) Expire(round int) {
	if s.state != Joined || round != s.round {
		return
	}
	s.log.Info("reconciliation timed out",
		zap.Bool("canvas", s.awaitCanvas),
		zap.Bool("background", s.awaitBackground),
	)
	s.awaitCanvas, s.awaitBackground = false, false
	s.setState(Synchronized)
}

// emit sends msg and records the outcome in the offline flag. Callers that
// discard the error rely on that flag.
func (s *Session) emit(ctx context.Context, msg config.NetworkMsg) error {
	var err error
	if s.transport == nil {
		err = ErrTransportUnavailable
	} else if err = s.transport.Emit(ctx, msg); err != nil && !errors.Is(err, ErrTransportUnavailable) {
		err = fmt.Errorf("%w: %w", ErrTransportUnavailable, err)
	}
	s.setOffline(err != nil)
	if err != nil {
		s.log.Warn("emit failed", zap.String("op", msg.Operation), zap.Error(err))
	}
	return err
}

func (s *Session) setOffline(off bool) {
	if s.offline == off {
		return
	}
	s.offline = off
	if s.onOffline != nil {
		s.onOffline(off)
	}
}

func (s *Session) armTimeout() {
	s.round++
	if s.queue == nil || s.syncTimeout <= 0 {
		return
	}
	round := s.round
	time.AfterFunc(s.syncTimeout, func() {
		s.queue.Post(func() { s.Expire(round) })
	})
}

func (s *Session) maybeSynchronized() {
	if s.state == Joined && !s.awaitCanvas && !s.awaitBackground {
		s.setState(Synchronized)
	}
}
