package token

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-auth-go/pkg/utilities"
)

const (
	msgInvalidToken = "Invalid or expired token"
	msgForbidden    = "Forbidden"
)

const bearerPrefix = "Bearer "

// IdentityVerifier is what the guard needs from a Verifier.
type IdentityVerifier interface {
	Verify(token string) (Identity, error)
}

// Guard authenticates requests carrying a bearer token.
type Guard struct {
	verifier IdentityVerifier
	logger   *zap.SugaredLogger
}

func NewGuard(v IdentityVerifier, logger *zap.SugaredLogger) *Guard {
	return &Guard{verifier: v, logger: logger}
}

// Authenticate rejects the request with 401 unless it presents a valid bearer
// token; on success the identity is attached to the request context.
func (g *Guard) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			g.logger.Debugw("rejecting request", "path", r.URL.Path, "reason", "missing bearer token")
			utilities.WriteMessage(w, http.StatusUnauthorized, msgInvalidToken)
			return
		}
		id, err := g.verifier.Verify(raw)
		if err != nil {
			reason := Reason("unknown")
			var verr *VerificationError
			if errors.As(err, &verr) {
				reason = verr.Reason
			}
			g.logger.Debugw("rejecting request", "path", r.URL.Path, "reason", reason, "err", err)
			utilities.WriteMessage(w, http.StatusUnauthorized, msgInvalidToken)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	raw, found := strings.CutPrefix(auth, bearerPrefix)
	if !found {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// RequireRole passes the request on only when the attached identity has one
// of roles. It must run after Authenticate; a request without an identity is
// answered with 401, a disallowed role with 403.
func RequireRole(roles ...entity.Role) func(http.Handler) http.Handler {
	allowed := make(map[entity.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				utilities.WriteMessage(w, http.StatusUnauthorized, msgInvalidToken)
				return
			}
			if _, ok := allowed[id.Role]; !ok {
				utilities.WriteMessage(w, http.StatusForbidden, msgForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
