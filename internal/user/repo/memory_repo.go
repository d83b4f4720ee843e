package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/user/entity"
)

// MemoryRepo is an in-process user store for development and tests.
// Email uniqueness is enforced atomically under the lock.
type MemoryRepo struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]entity.User
	now    func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[int64]entity.User), now: time.Now}
}

func (r *MemoryRepo) Create(_ context.Context, u *entity.User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return 0, ErrDuplicateEmail
		}
	}
	r.nextID++
	u.ID = r.nextID
	u.CreatedAt = r.now().UTC()
	r.byID[u.ID] = *u
	return u.ID, nil
}

func (r *MemoryRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.byID {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepo) FindByID(_ context.Context, id int64) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *MemoryRepo) List(_ context.Context) ([]entity.User, error) {
	r.mu.RLock()
	out := make([]entity.User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, u)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *MemoryRepo) Now(_ context.Context) (string, error) {
	return r.now().UTC().Format(time.RFC3339Nano), nil
}
