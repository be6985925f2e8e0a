package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/haulgate/internal/auth"
	"github.com/BradenHooton/haulgate/internal/models"
	pkgauth "github.com/BradenHooton/haulgate/pkg/auth"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-key-at-least-32-bytes-long!!"

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc    func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc func(ctx context.Context, email string) (*models.User, error)
	CreateFunc     func(ctx context.Context, user *models.User) (*models.User, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

// MockOTPChallengeRepository keeps challenges in a map unless a Func overrides it
type MockOTPChallengeRepository struct {
	CreateFunc func(ctx context.Context, c *models.OTPChallenge) error
	UpdateFunc func(ctx context.Context, c *models.OTPChallenge) error

	mu         sync.Mutex
	challenges map[string]*models.OTPChallenge
}

func NewMockOTPChallengeRepository() *MockOTPChallengeRepository {
	return &MockOTPChallengeRepository{challenges: make(map[string]*models.OTPChallenge)}
}

func (m *MockOTPChallengeRepository) Create(ctx context.Context, c *models.OTPChallenge) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, c)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.challenges[c.SessionID] = &cp
	return nil
}

func (m *MockOTPChallengeRepository) GetBySession(_ context.Context, userID, sessionID string) (*models.OTPChallenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.challenges[sessionID]
	if !ok || c.UserID != userID {
		return nil, models.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockOTPChallengeRepository) GetLatestPending(_ context.Context, email string) (*models.OTPChallenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.OTPChallenge
	for _, c := range m.challenges {
		if c.Email != email || c.ConsumedAt != nil {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, models.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *MockOTPChallengeRepository) Update(ctx context.Context, c *models.OTPChallenge) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, c)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.challenges[c.SessionID]; !ok {
		return models.ErrNotFound
	}
	cp := *c
	m.challenges[c.SessionID] = &cp
	return nil
}

// get returns the stored challenge for assertions
func (m *MockOTPChallengeRepository) get(sessionID string) *models.OTPChallenge {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.challenges[sessionID]
}

// MockTrustedDeviceRepository implements TrustedDeviceRepository for testing
type MockTrustedDeviceRepository struct {
	UpsertFunc func(ctx context.Context, d *models.TrustedDevice) error
	GetFunc    func(ctx context.Context, userID, deviceID string) (*models.TrustedDevice, error)
	TouchFunc  func(ctx context.Context, id string, seenAt time.Time) error

	Upserted []*models.TrustedDevice
	Touched  int
}

func (m *MockTrustedDeviceRepository) Upsert(ctx context.Context, d *models.TrustedDevice) error {
	m.Upserted = append(m.Upserted, d)
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, d)
	}
	return nil
}

func (m *MockTrustedDeviceRepository) Get(ctx context.Context, userID, deviceID string) (*models.TrustedDevice, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID, deviceID)
	}
	return nil, models.ErrNotFound
}

func (m *MockTrustedDeviceRepository) Touch(ctx context.Context, id string, seenAt time.Time) error {
	m.Touched++
	if m.TouchFunc != nil {
		return m.TouchFunc(ctx, id, seenAt)
	}
	return nil
}

// MockResendRepository implements ResendRepository for testing
type MockResendRepository struct {
	CountResendsFunc func(ctx context.Context, email string, since time.Time) (int, error)

	mu      sync.Mutex
	resends map[string][]time.Time
}

func NewMockResendRepository() *MockResendRepository {
	return &MockResendRepository{resends: make(map[string][]time.Time)}
}

func (m *MockResendRepository) RecordResend(_ context.Context, email string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resends[email] = append(m.resends[email], at)
	return nil
}

func (m *MockResendRepository) CountResends(ctx context.Context, email string, since time.Time) (int, error) {
	if m.CountResendsFunc != nil {
		return m.CountResendsFunc(ctx, email, since)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, at := range m.resends[email] {
		if !at.Before(since) {
			n++
		}
	}
	return n, nil
}

// MockEmailService captures the codes that would have been mailed
type MockEmailService struct {
	SendLoginCodeFunc func(ctx context.Context, email, code string, expiresAt time.Time) error

	mu    sync.Mutex
	Codes []string
}

func (m *MockEmailService) SendLoginCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	if m.SendLoginCodeFunc != nil {
		return m.SendLoginCodeFunc(ctx, email, code, expiresAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Codes = append(m.Codes, code)
	return nil
}

func (m *MockEmailService) lastCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Codes) == 0 {
		return ""
	}
	return m.Codes[len(m.Codes)-1]
}

// NewTestUser creates an active user with the given password
func NewTestUser(id, email, password string) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return &models.User{
		ID:           id,
		Email:        email,
		PasswordHash: string(hash),
		Name:         "Test User",
		UserType:     models.UserTypeCustomer,
		Status:       models.StatusActive,
		MFAEnabled:   true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// authFixture wires an AuthService over mock repositories
type authFixture struct {
	users      *MockUserRepository
	challenges *MockOTPChallengeRepository
	devices    *MockTrustedDeviceRepository
	resends    *MockResendRepository
	email      *MockEmailService
	tm         *auth.TokenManager
	otp        *OTPService
	trusted    *TrustedDeviceService
	service    *AuthService
}

func newAuthFixture(users ...*models.User) *authFixture {
	f := &authFixture{
		users: &MockUserRepository{
			GetByEmailFunc: func(_ context.Context, email string) (*models.User, error) {
				for _, u := range users {
					if u.Email == email {
						return u, nil
					}
				}
				return nil, models.ErrNotFound
			},
			GetByIDFunc: func(_ context.Context, id string) (*models.User, error) {
				for _, u := range users {
					if u.ID == id {
						return u, nil
					}
				}
				return nil, models.ErrNotFound
			},
		},
		challenges: NewMockOTPChallengeRepository(),
		devices:    &MockTrustedDeviceRepository{},
		resends:    NewMockResendRepository(),
		email:      &MockEmailService{},
		tm:         auth.NewTokenManager(testSecret, 15*time.Minute, 7*24*time.Hour, 30*24*time.Hour),
	}

	logger := discardLogger()
	limiter := NewRateLimitService(f.resends, RateLimitConfig{MaxResendsPerEmail: 3, ResendWindow: 15 * time.Minute}, logger)
	f.otp = NewOTPService(f.challenges, auth.NewOTPGenerator(), f.email, limiter, logger, nil, OTPConfig{TTL: 10 * time.Minute, MaxAttempts: 5})
	f.trusted = NewTrustedDeviceService(f.devices, f.tm, 30*24*time.Hour, logger)
	f.service = NewAuthService(f.users, pkgauth.NewPasswordHasher(bcrypt.MinCost), f.tm, f.otp, f.trusted, nil, logger, nil)
	return f
}
