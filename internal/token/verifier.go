package token

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/user/entity"
)

// ErrInvalidToken is the single failure kind callers see. Use errors.Is.
var ErrInvalidToken = errors.New("invalid or expired token")

// Reason classifies a verification failure for logs only.
type Reason string

const (
	ReasonMalformed Reason = "malformed"
	ReasonSignature Reason = "signature"
	ReasonExpired   Reason = "expired"
	ReasonClaims    Reason = "claims"
)

// VerificationError matches ErrInvalidToken and keeps the underlying cause.
type VerificationError struct {
	Reason Reason
	Err    error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrInvalidToken, e.Reason, e.Err)
}

func (e *VerificationError) Is(target error) bool { return target == ErrInvalidToken }

func (e *VerificationError) Unwrap() error { return e.Err }

// Verifier checks tokens produced by Issuer with the same secret.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret []byte, opts ...Option) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	o := buildOptions(opts)
	return &Verifier{
		secret: secret,
		parser: newParser(o.clock),
	}, nil
}

func newParser(clock clockwork.Clock) *jwt.Parser {
	return jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(clock.Now),
		// reject non-canonical base64url so no signature byte can be altered unnoticed
		jwt.WithStrictDecoding(),
	)
}

// Verify checks signature, expiry and payload shape, and returns the identity.
// A token is accepted only while now < exp.
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	var c claims
	_, err := v.parser.ParseWithClaims(tokenString, &c, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, &VerificationError{Reason: classify(err), Err: err}
	}
	id, err := c.identity()
	if err != nil {
		return Identity{}, &VerificationError{Reason: ReasonClaims, Err: err}
	}
	return id, nil
}

func classify(err error) Reason {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ReasonSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ReasonMalformed
	default:
		return ReasonClaims
	}
}

// identity validates the decoded payload against the Identity shape.
func (c *claims) identity() (Identity, error) {
	sub, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return Identity{}, fmt.Errorf("subject %q is not an integer", c.Subject)
	}
	role, ok := entity.ParseRole(c.Role)
	if !ok {
		return Identity{}, fmt.Errorf("unknown role %q", c.Role)
	}
	id := Identity{SubjectID: sub, Email: c.Email, Role: role}
	if err := validateIdentity(id); err != nil {
		return Identity{}, err
	}
	return id, nil
}
