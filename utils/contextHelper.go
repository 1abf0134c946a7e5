package utils

import (
	"context"

	"github.com/google/uuid"
)

// ContextKey namespaces the request values set by the session middleware.
type ContextKey string

const (
	ContextKeyUserId        ContextKey = "UserId"
	ContextKeyUserName      ContextKey = "UserName"
	ContextKeyCorrelationId ContextKey = "CorrelationId"
)

func contextValue[T any](ctx context.Context, key ContextKey) (T, bool) {
	v, ok := ctx.Value(key).(T)
	return v, ok
}

func GetUserIdFromContext(ctx context.Context) (int, bool) {
	return contextValue[int](ctx, ContextKeyUserId)
}

func GetUserNameFromContext(ctx context.Context) (string, bool) {
	return contextValue[string](ctx, ContextKeyUserName)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return contextValue[string](ctx, ContextKeyCorrelationId)
}

func SetUserIdInContext(ctx context.Context, userId int) context.Context {
	return context.WithValue(ctx, ContextKeyUserId, userId)
}

func SetUserNameInContext(ctx context.Context, userName string) context.Context {
	return context.WithValue(ctx, ContextKeyUserName, userName)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return context.WithValue(ctx, ContextKeyCorrelationId, correlationId)
}

// CorrelationId returns the request correlation id, or a fresh one when the context has none.
func CorrelationId(ctx context.Context) string {
	if cid, ok := GetCorrelationIdFromContext(ctx); ok && cid != "" {
		return cid
	}
	return uuid.NewString()
}
