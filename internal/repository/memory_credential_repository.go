package repository

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/auth-gateway/internal/domain"
)

const duplicateEmailMessage = `duplicate key value violates unique constraint "users_email_key"`

type memoryRecord struct {
	user         domain.User
	passwordHash []byte
}

// memoryCredentialRepository keeps accounts in process memory. It stands in
// for the Postgres schema in development and tests and mirrors its faults.
type memoryCredentialRepository struct {
	mu      sync.RWMutex
	byEmail map[string]*memoryRecord
	byID    map[string]*memoryRecord
	nextID  int64
	cost    int
	now     func() time.Time
}

// NewMemoryCredentialRepository returns an in-process implementation hashing with bcrypt.
func NewMemoryCredentialRepository(bcryptCost int) CredentialRepository {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &memoryCredentialRepository{
		byEmail: make(map[string]*memoryRecord),
		byID:    make(map[string]*memoryRecord),
		cost:    bcryptCost,
		now:     time.Now,
	}
}

func (r *memoryCredentialRepository) Create(ctx context.Context, cred domain.Credential) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cred.Password), r.cost)
	if err != nil {
		return nil, &StoreError{Code: "22023", Message: err.Error(), Err: err}
	}

	key := domain.NormalizeEmail(cred.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[key]; exists {
		return nil, &StoreError{Code: UniqueViolation, Message: duplicateEmailMessage}
	}

	r.nextID++
	record := &memoryRecord{
		user: domain.User{
			ID:        strconv.FormatInt(r.nextID, 10),
			Email:     cred.Email,
			Name:      cred.Name,
			Role:      cred.Role,
			CreatedAt: r.now(),
		},
		passwordHash: hash,
	}
	r.byEmail[key] = record
	r.byID[record.user.ID] = record

	user := record.user
	return &user, nil
}

func (r *memoryCredentialRepository) Verify(ctx context.Context, email, password string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	record, ok := r.byEmail[domain.NormalizeEmail(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if err := bcrypt.CompareHashAndPassword(record.passwordHash, []byte(password)); err != nil {
		return nil, ErrNotFound
	}

	user := record.user
	return &user, nil
}

func (r *memoryCredentialRepository) Current(ctx context.Context, settings domain.SessionSettings) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	record, ok := r.byID[settings.UserID]
	r.mu.RUnlock()
	if !ok || settings.Role == domain.AnonymousDatabaseRole {
		return nil, ErrNotFound
	}

	user := record.user
	return &user, nil
}

func (r *memoryCredentialRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}
