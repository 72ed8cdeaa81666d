package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/mateoquintana/mercaderia-backend/internal/orders"
	"github.com/mateoquintana/mercaderia-backend/pkg/enums"
	pkgerrors "github.com/mateoquintana/mercaderia-backend/pkg/errors"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxRole     contextKey = "actor_role"
	ctxVendorID contextKey = "vendor_id"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

func VendorIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxVendorID).(string); ok {
		return v
	}
	return ""
}

// WithActor injects actor identity into the context. Used by tests; the auth
// middleware performs the same seeding for real requests.
func WithActor(ctx context.Context, userID string, role enums.ActorRole, vendorID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxRole, string(role))
	if vendorID != "" {
		ctx = context.WithValue(ctx, ctxVendorID, vendorID)
	}
	return ctx
}

// ActorFromContext rebuilds the typed actor from context values seeded by
// the auth middleware.
func ActorFromContext(ctx context.Context) (orders.Actor, error) {
	userID, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return orders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user identity")
	}
	role, err := enums.ParseActorRole(RoleFromContext(ctx))
	if err != nil {
		return orders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor role")
	}
	actor := orders.Actor{UserID: userID, Role: role}
	if raw := VendorIDFromContext(ctx); raw != "" {
		vendorID, err := uuid.Parse(raw)
		if err != nil {
			return orders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid vendor identity")
		}
		actor.VendorID = &vendorID
	}
	return actor, nil
}
