package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BradenHooton/haulgate/internal/models"
)

// The Memory* repositories back the server when no database is configured.
// They mirror the postgres implementations' semantics, including
// models.ErrNotFound and models.ErrConflict.

type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*models.User
	byEmail map[string]string
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	id, ok := r.byEmail[strings.ToLower(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, models.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *MemoryUserRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	prepareUser(user, time.Now())

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[user.Email]; exists {
		return nil, models.ErrConflict
	}
	cp := *user
	r.byID[cp.ID] = &cp
	r.byEmail[cp.Email] = cp.ID
	out := cp
	return &out, nil
}

type MemoryOTPChallengeRepository struct {
	mu         sync.RWMutex
	challenges map[string]*models.OTPChallenge
}

func NewMemoryOTPChallengeRepository() *MemoryOTPChallengeRepository {
	return &MemoryOTPChallengeRepository{challenges: make(map[string]*models.OTPChallenge)}
}

func (r *MemoryOTPChallengeRepository) Create(_ context.Context, c *models.OTPChallenge) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.challenges {
		if existing.SessionID == c.SessionID {
			return models.ErrConflict
		}
	}
	cp := *c
	r.challenges[cp.ID] = &cp
	return nil
}

func (r *MemoryOTPChallengeRepository) GetBySession(_ context.Context, userID, sessionID string) (*models.OTPChallenge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.challenges {
		if c.UserID == userID && c.SessionID == sessionID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *MemoryOTPChallengeRepository) GetLatestPending(_ context.Context, email string) (*models.OTPChallenge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var pending []*models.OTPChallenge
	for _, c := range r.challenges {
		if c.Email == email && c.ConsumedAt == nil {
			pending = append(pending, c)
		}
	}
	if len(pending) == 0 {
		return nil, models.ErrNotFound
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.After(pending[j].CreatedAt)
	})
	cp := *pending[0]
	return &cp, nil
}

func (r *MemoryOTPChallengeRepository) Update(_ context.Context, c *models.OTPChallenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.challenges[c.ID]; !ok {
		return models.ErrNotFound
	}
	cp := *c
	r.challenges[c.ID] = &cp
	return nil
}

func (r *MemoryOTPChallengeRepository) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, c := range r.challenges {
		if c.ExpiresAt.Before(cutoff) || (c.ConsumedAt != nil && c.ConsumedAt.Before(cutoff)) {
			delete(r.challenges, id)
			n++
		}
	}
	return n, nil
}

type MemoryTrustedDeviceRepository struct {
	mu      sync.RWMutex
	devices map[string]*models.TrustedDevice // keyed by user_id + "/" + device_id
}

func NewMemoryTrustedDeviceRepository() *MemoryTrustedDeviceRepository {
	return &MemoryTrustedDeviceRepository{devices: make(map[string]*models.TrustedDevice)}
}

func trustKey(userID, deviceID string) string {
	return userID + "/" + deviceID
}

func (r *MemoryTrustedDeviceRepository) Upsert(_ context.Context, d *models.TrustedDevice) error {
	now := time.Now()
	if d.LastSeenAt.IsZero() {
		d.LastSeenAt = now
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	key := trustKey(d.UserID, d.DeviceID)
	if existing, ok := r.devices[key]; ok {
		d.ID = existing.ID
		d.CreatedAt = existing.CreatedAt
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	cp := *d
	r.devices[key] = &cp
	return nil
}

func (r *MemoryTrustedDeviceRepository) Get(_ context.Context, userID, deviceID string) (*models.TrustedDevice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[trustKey(userID, deviceID)]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *MemoryTrustedDeviceRepository) Touch(_ context.Context, id string, seenAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.devices {
		if d.ID == id {
			d.LastSeenAt = seenAt
			return nil
		}
	}
	return models.ErrNotFound
}

func (r *MemoryTrustedDeviceRepository) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for key, d := range r.devices {
		if d.ExpiresAt.Before(cutoff) {
			delete(r.devices, key)
			n++
		}
	}
	return n, nil
}

type MemoryResendRepository struct {
	mu    sync.Mutex
	sends map[string][]time.Time
}

func NewMemoryResendRepository() *MemoryResendRepository {
	return &MemoryResendRepository{sends: make(map[string][]time.Time)}
}

func (r *MemoryResendRepository) RecordResend(_ context.Context, email string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sends[email] = append(r.sends[email], at)
	return nil
}

func (r *MemoryResendRepository) CountResends(_ context.Context, email string, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, at := range r.sends[email] {
		if !at.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryResendRepository) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for email, times := range r.sends {
		kept := times[:0]
		for _, at := range times {
			if at.Before(cutoff) {
				n++
				continue
			}
			kept = append(kept, at)
		}
		if len(kept) == 0 {
			delete(r.sends, email)
		} else {
			r.sends[email] = kept
		}
	}
	return n, nil
}
