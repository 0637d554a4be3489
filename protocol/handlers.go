package protocol

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Tk21111/sketchroom/config"
	"github.com/Tk21111/sketchroom/drawing"
)

type handler func(ctx context.Context, s *Session, msg config.NetworkMsg) error

func defaultHandlers() map[string]handler {
	return map[string]handler{
		config.OpWelcome:                    handleWelcome,
		config.OpDraw:                       handleDraw,
		config.OpCanvasRequest:              handleCanvasRequest,
		config.OpBackgroundCanvasRequest:    handleBackgroundRequest,
		config.OpReceiveCanvas:              handleReceiveCanvas,
		config.OpReceiveBackgroundCanvas:    handleReceiveBackground,
		config.OpReceiveBackgroundCanvasAll: handleBackgroundAll,
		config.OpUserJoin:                   handlePresence,
		config.OpUserLeave:                  handlePresence,
		config.OpUserNameChange:             handlePresence,
	}
}

// On welcome the joiner asks for both layers. An empty room has nobody to
// answer, so its blank layers are already the room's state.
func handleWelcome(ctx context.Context, s *Session, msg config.NetworkMsg) error {
	s.id, s.name, s.room, s.peers = msg.ID, msg.Name, msg.Room, msg.Peers
	s.color = msg.Color
	s.setState(Joined)

	s.awaitCanvas, s.awaitBackground = true, true
	// emit records failures in the offline flag
	_ = s.emit(ctx, config.NetworkMsg{Operation: config.OpCanvasRequest})
	_ = s.emit(ctx, config.NetworkMsg{Operation: config.OpBackgroundCanvasRequest})

	if msg.Peers == 0 {
		s.awaitCanvas, s.awaitBackground = false, false
		s.setState(Synchronized)
		return nil
	}
	s.armTimeout()
	return nil
}

func handleDraw(_ context.Context, s *Session, msg config.NetworkMsg) error {
	if msg.Event == nil {
		return fmt.Errorf("%w: draw without event", drawing.ErrMalformedEvent)
	}
	if s.id != "" && msg.ID == s.id {
		return nil
	}
	return s.engine.Apply(s.drawable, *msg.Event)
}

func handleCanvasRequest(ctx context.Context, s *Session, msg config.NetworkMsg) error {
	snap, err := s.drawable.Snapshot()
	if err != nil {
		return err
	}
	_ = s.emit(ctx, config.NetworkMsg{Operation: config.OpReceiveCanvas, To: msg.ID, Snapshot: snap})
	return nil
}

func handleBackgroundRequest(ctx context.Context, s *Session, msg config.NetworkMsg) error {
	snap, err := s.background.Snapshot()
	if err != nil {
		return err
	}
	_ = s.emit(ctx, config.NetworkMsg{Operation: config.OpReceiveBackgroundCanvas, To: msg.ID, Snapshot: snap})
	return nil
}

// Responses are wholesale replacements, so late or repeated ones are applied
// again without harm.
func handleReceiveCanvas(_ context.Context, s *Session, msg config.NetworkMsg) error {
	if !s.addressed(msg) {
		return nil
	}
	if err := s.drawable.Replace(msg.Snapshot); err != nil {
		return err
	}
	s.awaitCanvas = false
	s.maybeSynchronized()
	return nil
}

func handleReceiveBackground(_ context.Context, s *Session, msg config.NetworkMsg) error {
	if !s.addressed(msg) {
		return nil
	}
	if err := s.background.Replace(msg.Snapshot); err != nil {
		return err
	}
	s.awaitBackground = false
	s.maybeSynchronized()
	return nil
}

func handleBackgroundAll(_ context.Context, s *Session, msg config.NetworkMsg) error {
	return s.background.Replace(msg.Snapshot)
}

func handlePresence(_ context.Context, s *Session, msg config.NetworkMsg) error {
	s.log.Info("presence",
		zap.String("op", msg.Operation),
		zap.String("id", msg.ID),
		zap.String("name", msg.Name),
	)
	if s.onPresence != nil {
		s.onPresence(Presence{Operation: msg.Operation, ID: msg.ID, Name: msg.Name, Color: msg.Color})
	}
	return nil
}

func (s *Session) addressed(msg config.NetworkMsg) bool {
	return msg.To == "" || s.id == "" || msg.To == s.id
}
