package auth

import (
	"context"
	"errors"
)

// ErrUnauthorized is returned when no authenticated user is attached to the context.
var ErrUnauthorized = errors.New("unauthorized")

type ctxKey int

const (
	ctxUserID ctxKey = iota
	ctxEmail
)

func WithIdentity(ctx context.Context, userID, email string) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxEmail, email)
	return ctx
}

// UserID resolves the session user. Every ownership check goes through here.
func UserID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxUserID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", ErrUnauthorized
}

func Email(ctx context.Context) string {
	s, _ := ctx.Value(ctxEmail).(string)
	return s
}
