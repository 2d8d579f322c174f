package context

import (
	"context"
	"strings"
)

type requestIDKey struct{}
type entityIDKey struct{}
type actorKey struct{}

type actorValue struct {
	actorType string
	actorID   string
}

// WithRequestID stores the request id on the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

// WithEntityID stores the acting entity id on the context.
func WithEntityID(ctx context.Context, entityID string) context.Context {
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return ctx
	}
	return context.WithValue(ctx, entityIDKey{}, entityID)
}

func EntityIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(entityIDKey{}).(string)
	return value
}

// WithActor stores the actor type and id used for log correlation.
func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actorValue{
		actorType: strings.TrimSpace(actorType),
		actorID:   strings.TrimSpace(actorID),
	})
}

func ActorFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	value, ok := ctx.Value(actorKey{}).(actorValue)
	if !ok {
		return "", ""
	}
	return value.actorType, value.actorID
}

type clientInfoKey struct{}

type clientInfo struct {
	ipAddress string
	userAgent string
}

// WithClientInfo stores the caller address and user agent for auditing.
func WithClientInfo(ctx context.Context, ipAddress, userAgent string) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, clientInfo{
		ipAddress: strings.TrimSpace(ipAddress),
		userAgent: strings.TrimSpace(userAgent),
	})
}

func ClientInfoFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	value, ok := ctx.Value(clientInfoKey{}).(clientInfo)
	if !ok {
		return "", ""
	}
	return value.ipAddress, value.userAgent
}
