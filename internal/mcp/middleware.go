package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/worksreg/internal/domain/user"
)

type contextKey int

const actorKey contextKey = iota

var errUnauthorized = errors.New("unauthorized")

// actorFrom extracts the acting user from context.
func actorFrom(ctx context.Context) *user.User {
	u, _ := ctx.Value(actorKey).(*user.User)
	return u
}

func withActor(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, actorKey, u)
}

// ActorResolver maps credentials and identifiers to users.
type ActorResolver interface {
	// ResolveToken returns the user owning a bearer token.
	ResolveToken(ctx context.Context, token string) (*user.User, error)
	// Resolve finds a user by id or username.
	Resolve(ctx context.Context, ident string) (*user.User, error)
}

func skipsActor(method string) bool {
	return method == "initialize" || method == "ping" || strings.HasPrefix(method, "notifications/")
}

// authMiddleware resolves the acting user from the bearer token.
func authMiddleware(resolver ActorResolver) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if skipsActor(method) {
				return next(ctx, method, req)
			}

			extra := req.GetExtra()
			if extra == nil || extra.Header == nil {
				return nil, fmt.Errorf("%w: missing headers", errUnauthorized)
			}

			auth := extra.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				return nil, fmt.Errorf("%w: missing bearer token", errUnauthorized)
			}

			actor, err := resolver.ResolveToken(ctx, token)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", errUnauthorized, err)
			}
			if actor == nil {
				return nil, fmt.Errorf("%w: invalid bearer token", errUnauthorized)
			}

			return next(withActor(ctx, actor), method, req)
		}
	}
}

// defaultActorMiddleware acts as the configured user when auth is disabled.
// The user is looked up per request so role changes apply immediately.
func defaultActorMiddleware(resolver ActorResolver, ident string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if skipsActor(method) || resolver == nil || ident == "" {
				return next(ctx, method, req)
			}
			actor, err := resolver.Resolve(ctx, ident)
			if err != nil {
				return nil, fmt.Errorf("resolve default actor %q: %w", ident, err)
			}
			return next(withActor(ctx, actor), method, req)
		}
	}
}
