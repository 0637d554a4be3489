package logx

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// With returns a ctx whose logger also carries fields.
func With(ctx context.Context, fields ...zap.Field) context.Context {
	return context.WithValue(ctx, ctxKey{}, From(ctx).With(fields...))
}

// Participant tags the ctx logger with the room and participant ids so every
// line about one connection can be grepped together.
func Participant(ctx context.Context, roomID, userID string) context.Context {
	return With(ctx, zap.String("roomId", roomID), zap.String("userId", userID))
}

// From returns the logger bound to ctx, or L.
func From(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return L
}
