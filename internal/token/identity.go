// Package token issues and verifies the service's bearer tokens and gates
// HTTP handlers on the identity they carry.
package token

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/user/entity"
)

// Identity is the set of claims carried by a token. Values are only produced
// by Verifier.Verify or handed to Issuer.Issue.
type Identity struct {
	SubjectID int64       `json:"subjectId"`
	Email     string      `json:"email"`
	Role      entity.Role `json:"role"`
}

type ctxKey struct{}

// WithIdentity attaches id to ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFromContext returns the identity attached by the access guard.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
