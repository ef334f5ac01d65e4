package core

import (
	"context"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/opsboard/internal/audit"
	"github.com/JonMunkholm/opsboard/internal/logging"
)

type contextKey string

const (
	ctxKeyIPAddress contextKey = "audit_ip"
	ctxKeyUserAgent contextKey = "audit_ua"
	ctxKeyActor     contextKey = "actor"
)

// Actor is the authenticated caller.
type Actor struct {
	ID   string
	Role string
}

// ContextWithIPAddress adds IP address to context for audit logging.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIPAddress, ip)
}

// ContextWithUserAgent adds User-Agent to context for audit logging.
func ContextWithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, ctxKeyUserAgent, ua)
}

// ContextWithActor records the caller for cache scoping, audit and logs.
func ContextWithActor(ctx context.Context, a Actor) context.Context {
	ctx = logging.ContextWithActor(ctx, a.ID)
	return context.WithValue(ctx, ctxKeyActor, a)
}

// GetIPAddressFromContext extracts IP address from context.
func GetIPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		return v
	}
	return ""
}

// GetUserAgentFromContext extracts User-Agent from context.
func GetUserAgentFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserAgent).(string); ok {
		return v
	}
	return ""
}

// ActorFromContext returns the caller, or an anonymous actor.
func ActorFromContext(ctx context.Context) Actor {
	if a, ok := ctx.Value(ctxKeyActor).(Actor); ok {
		return a
	}
	return Actor{ID: "anonymous"}
}

// auditParams fills the request metadata of an audit entry.
func auditParams(ctx context.Context, p audit.Params) audit.Params {
	a := ActorFromContext(ctx)
	p.ActorID = a.ID
	p.ActorRole = a.Role
	p.IPAddress = GetIPAddressFromContext(ctx)
	p.UserAgent = GetUserAgentFromContext(ctx)
	p.RequestID = middleware.GetReqID(ctx)
	return p
}
