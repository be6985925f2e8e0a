package challenge

import (
	"sync"

	"github.com/BradenHooton/haulgate/internal/models"
)

// RouteVerifyOTP is where a login that requires a second factor continues.
const RouteVerifyOTP = "/verify-otp"

// ContextStore carries the pending challenge from the login screen to the
// OTP screen. It lives only as long as the navigation session.
type ContextStore interface {
	Save(c models.MFAChallengeContext) error
	Load() (*models.MFAChallengeContext, error)
	Clear() error
}

// MemoryContextStore holds at most one challenge in process memory.
type MemoryContextStore struct {
	mu  sync.Mutex
	ctx *models.MFAChallengeContext
}

func NewMemoryContextStore() *MemoryContextStore {
	return &MemoryContextStore{}
}

func (s *MemoryContextStore) Save(c models.MFAChallengeContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = &c
	return nil
}

// Load returns models.ErrMissingChallenge when nothing is pending.
func (s *MemoryContextStore) Load() (*models.MFAChallengeContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return nil, models.ErrMissingChallenge
	}
	c := *s.ctx
	return &c, nil
}

func (s *MemoryContextStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = nil
	return nil
}
