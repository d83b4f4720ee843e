package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"github.com/ovaphlow/pitchfork/service-auth-go/pkg/utilities"
)

// TTL is the fixed lifetime of every issued token.
const TTL = 2 * time.Hour

var ErrMissingSecret = errors.New("token signing secret is not configured")

// claims is the JWT payload. Subject holds the decimal user id.
type claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type options struct {
	clock clockwork.Clock
}

// Option configures an Issuer or Verifier.
type Option func(*options)

// WithClock overrides the time source. Default: the real clock.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

func buildOptions(opts []Option) options {
	o := options{clock: clockwork.NewRealClock()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Issuer signs HS256 tokens with the shared secret. It holds no per-call state.
type Issuer struct {
	secret []byte
	clock  clockwork.Clock
}

func NewIssuer(secret []byte, opts ...Option) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	o := buildOptions(opts)
	return &Issuer{secret: secret, clock: o.clock}, nil
}

// Issue returns a signed token for id that expires TTL from now.
func (i *Issuer) Issue(id Identity) (string, error) {
	if err := validateIdentity(id); err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	now := i.clock.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: id.Email,
		Role:  string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.SubjectID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TTL)),
			ID:        utilities.NewKSUID(),
		},
	})
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func validateIdentity(id Identity) error {
	if id.SubjectID <= 0 {
		return errors.New("subject id must be positive")
	}
	if id.Email == "" {
		return errors.New("email is empty")
	}
	if !id.Role.Valid() {
		return fmt.Errorf("unknown role %q", id.Role)
	}
	return nil
}
