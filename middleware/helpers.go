package middleware

import (
	"context"
	"errors"

	"github.com/aaroha-fest/sargam-portal/services"
)

const nameContextKey contextKey = "caller_name"

// CallerFromContext returns the authenticated caller placed in the
// context by Authenticate.
func CallerFromContext(ctx context.Context) (services.Caller, error) {
	caller, ok := ctx.Value(callerContextKey).(services.Caller)
	if !ok || caller.UserID == "" {
		return services.Caller{}, errors.New("caller not found in context")
	}
	return caller, nil
}

// CallerNameFromContext returns the display name claim, if present.
func CallerNameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(nameContextKey).(string)
	return name
}
