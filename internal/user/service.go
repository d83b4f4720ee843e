package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/token"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-auth-go/internal/user/repo"
)

// DefaultBcryptCost is the work factor used when none is configured.
const DefaultBcryptCost = 10

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (hash string, salt string, err error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation. A fresh random salt is generated per Hash call.
type BcryptHasher struct{ Cost int }

// Hash returns the bcrypt hash and its salt prefix ("$2a$<cost>$" + 22 chars).
func (b BcryptHasher) Hash(pw string) (string, string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", "", err
	}
	return string(h), string(h[:29]), nil
}

// Verify is false for any mismatch, including an empty or malformed hash.
func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Store is the persistence the service relies on. See repo.UserRepo and repo.MemoryRepo.
type Store interface {
	Create(ctx context.Context, u *entity.User) (int64, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByID(ctx context.Context, id int64) (*entity.User, error)
	List(ctx context.Context) ([]entity.User, error)
}

// TokenIssuer signs tokens for authenticated users.
type TokenIssuer interface {
	Issue(id token.Identity) (string, error)
}

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrBadCredentials = errors.New("invalid credentials")
	ErrEmailTaken     = errors.New("email already registered")
)

// UserService orchestrates registration, login and account lookups.
type UserService struct {
	store  Store
	hasher PasswordHasher
	issuer TokenIssuer
	// dummyHash is compared against when the email is unknown so both
	// login failures cost one hash comparison.
	dummyHash string
}

func NewUserService(store Store, hasher PasswordHasher, issuer TokenIssuer) *UserService {
	if hasher == nil {
		hasher = BcryptHasher{Cost: DefaultBcryptCost}
	}
	dummy, _, _ := hasher.Hash("dummy-password-for-unknown-users")
	return &UserService{store: store, hasher: hasher, issuer: issuer, dummyHash: dummy}
}

// RegisterInput carries an already validated registration request.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Role     entity.Role
}

// Register creates an account. An existing email yields ErrEmailTaken.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (int64, error) {
	email := normalizeEmail(in.Email)
	role := in.Role
	if role == "" {
		role = entity.RoleUser
	}
	if !role.Valid() {
		return 0, fmt.Errorf("unknown role %q", role)
	}

	// check-then-insert; the store reports a racing duplicate as ErrDuplicateEmail
	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return 0, ErrEmailTaken
	} else if !errors.Is(err, userrepo.ErrNotFound) {
		return 0, fmt.Errorf("lookup email: %w", err)
	}

	hash, salt, err := s.hasher.Hash(in.Password)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	u := &entity.User{
		Email:        email,
		PasswordHash: hash,
		PasswordSalt: salt,
		FullName:     strings.TrimSpace(in.FullName),
		Role:         role,
	}
	id, err := s.store.Create(ctx, u)
	if err != nil {
		if errors.Is(err, userrepo.ErrDuplicateEmail) {
			return 0, ErrEmailTaken
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// Login checks the password and returns a signed token. Unknown email and
// wrong password both yield ErrBadCredentials.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.store.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			s.hasher.Verify(s.dummyHash, password)
			return "", ErrBadCredentials
		} // avoid user enumeration
		return "", fmt.Errorf("lookup email: %w", err)
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return "", ErrBadCredentials
	}
	return s.issuer.Issue(token.Identity{SubjectID: u.ID, Email: u.Email, Role: u.Role})
}

// Profile returns the account for a verified subject id.
func (s *UserService) Profile(ctx context.Context, id int64) (*entity.User, error) {
	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return u, nil
}

// ListUsers returns all accounts, most recently created first.
func (s *UserService) ListUsers(ctx context.Context) ([]entity.User, error) {
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
