package device

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/haulgate/internal/models"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func browserEnv() ReportedEnvironment {
	return ReportedEnvironment{Info: models.DeviceInfo{
		UserAgent:           chromeUA,
		Platform:            "Win32",
		Languages:           []string{"en-GB", "en"},
		Timezone:            "Europe/London",
		ScreenWidth:         1920,
		ScreenHeight:        1080,
		HardwareConcurrency: 8,
		DeviceMemoryGB:      8,
		GPUVendor:           "Google Inc. (NVIDIA)",
		GPURenderer:         "ANGLE (NVIDIA GeForce RTX 3060)",
	}}
}

// failingStore simulates denied or full storage.
type failingStore struct {
	getErr   error
	setErr   error
	panicGet bool
	sets     int
}

func (s *failingStore) Get(key string) (string, error) {
	if s.panicGet {
		panic("storage access denied")
	}
	if s.getErr != nil {
		return "", s.getErr
	}
	return "", models.ErrNotFound
}

func (s *failingStore) Set(key, value string) error {
	s.sets++
	return s.setErr
}

// brokenEnv fails or panics on every attribute read.
type brokenEnv struct{ panics bool }

func (e brokenEnv) fail() error {
	if e.panics {
		panic("read exploded")
	}
	return errors.New("read failed")
}
func (e brokenEnv) UserAgent() (string, error)        { return "", e.fail() }
func (e brokenEnv) Languages() ([]string, error)      { return nil, e.fail() }
func (e brokenEnv) Platform() (string, error)         { return "", e.fail() }
func (e brokenEnv) Timezone() (string, error)         { return "", e.fail() }
func (e brokenEnv) Screen() (int, int, error)         { return 0, 0, e.fail() }
func (e brokenEnv) HardwareConcurrency() (int, error) { return 0, e.fail() }
func (e brokenEnv) DeviceMemoryGB() (float64, error)  { return 0, e.fail() }
func (e brokenEnv) Touch() (bool, int, error)         { return false, 0, e.fail() }
func (e brokenEnv) GPU() (string, string, error)      { return "", "", e.fail() }

func TestGetOrCreateDeviceID_Idempotent(t *testing.T) {
	store := NewMemoryStore()
	p := NewProvider(store, browserEnv(), discardLogger())

	first := p.GetOrCreateDeviceID()
	second := p.GetOrCreateDeviceID()

	require.NotEmpty(t, first)
	assert.Equal(t, first, second)

	stored, err := store.Get(DeviceIDKey)
	require.NoError(t, err)
	assert.Equal(t, first, stored)
}

func TestGetOrCreateDeviceID_ReusesPersistedID(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set(DeviceIDKey, "existing-device"))

	p := NewProvider(store, browserEnv(), discardLogger())
	assert.Equal(t, "existing-device", p.GetOrCreateDeviceID())
}

func TestGetOrCreateDeviceID_SurvivesAcrossProviders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "device.json")

	first := NewProvider(NewFileStore(path), browserEnv(), discardLogger()).GetOrCreateDeviceID()
	second := NewProvider(NewFileStore(path), browserEnv(), discardLogger()).GetOrCreateDeviceID()

	assert.Equal(t, first, second)
}

func TestGetOrCreateDeviceID_StorageFailure(t *testing.T) {
	tests := []struct {
		name  string
		store *failingStore
	}{
		{"read denied", &failingStore{getErr: errors.New("access denied")}},
		{"quota exceeded on write", &failingStore{setErr: errors.New("quota exceeded")}},
		{"read panics", &failingStore{panicGet: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProvider(tt.store, browserEnv(), discardLogger())

			var id string
			assert.NotPanics(t, func() { id = p.GetOrCreateDeviceID() })
			assert.NotEmpty(t, id)

			// the ephemeral id is stable for the rest of the process
			assert.Equal(t, id, p.GetOrCreateDeviceID())
		})
	}
}

func TestGetOrCreateDeviceID_UUIDFallback(t *testing.T) {
	p := NewProvider(NewMemoryStore(), browserEnv(), discardLogger(),
		WithIDGenerator(func() (string, error) { return "", errors.New("no entropy") }))

	id := p.GetOrCreateDeviceID()
	assert.NotEmpty(t, id)
	assert.Contains(t, id, "-")
}

func TestGenerateFingerprint_Deterministic(t *testing.T) {
	p := NewProvider(NewMemoryStore(), browserEnv(), discardLogger())

	first := p.GenerateFingerprint()
	second := p.GenerateFingerprint()

	assert.Equal(t, first, second)
	assert.Len(t, first, fingerprintLength)
	assert.Equal(t, hashFingerprint(chromeUA, "en-GB", 1920, 1080, "Europe/London"), first)
}

func TestGenerateFingerprint_ChangesWithEnvironment(t *testing.T) {
	env := browserEnv()
	before := NewProvider(NewMemoryStore(), env, discardLogger()).GenerateFingerprint()

	env.Info.ScreenWidth = 2560
	after := NewProvider(NewMemoryStore(), env, discardLogger()).GenerateFingerprint()

	assert.NotEqual(t, before, after)
}

func TestGenerateFingerprint_FallbackOnFailure(t *testing.T) {
	for _, panics := range []bool{false, true} {
		p := NewProvider(NewMemoryStore(), brokenEnv{panics: panics}, discardLogger())

		var fp string
		assert.NotPanics(t, func() { fp = p.GenerateFingerprint() })
		assert.True(t, strings.HasPrefix(fp, "fp-"), fp)
		assert.NotEqual(t, fp, p.GenerateFingerprint(), "fallback should be randomized")
	}
}

func TestGetDeviceInfo_Composes(t *testing.T) {
	p := NewProvider(NewMemoryStore(), browserEnv(), discardLogger())

	info := p.GetDeviceInfo()

	assert.Equal(t, p.GetOrCreateDeviceID(), info.DeviceID)
	assert.Contains(t, info.DeviceName, "Chrome")
	assert.Contains(t, info.DeviceName, " on ")
	assert.Equal(t, p.GenerateFingerprint(), info.Fingerprint)
	assert.Equal(t, "en-GB", info.DeviceInfo.Language)
	assert.Equal(t, []string{"en-GB", "en"}, info.DeviceInfo.Languages)
	assert.Equal(t, 1920, info.DeviceInfo.ScreenWidth)
	assert.Equal(t, 8, info.DeviceInfo.HardwareConcurrency)
	assert.Equal(t, "ANGLE (NVIDIA GeForce RTX 3060)", info.DeviceInfo.GPURenderer)
}

func TestGetDeviceInfo_DegradesPerField(t *testing.T) {
	env := browserEnv()
	env.Info.GPUVendor = ""
	env.Info.GPURenderer = ""
	env.Info.Timezone = ""

	info := NewProvider(NewMemoryStore(), env, discardLogger()).GetDeviceInfo()

	assert.Equal(t, models.Unknown, info.DeviceInfo.GPUVendor)
	assert.Equal(t, models.Unknown, info.DeviceInfo.GPURenderer)
	assert.Equal(t, models.Unknown, info.DeviceInfo.Timezone)
	// untouched attributes still report
	assert.Equal(t, chromeUA, info.DeviceInfo.UserAgent)
	assert.Equal(t, 1080, info.DeviceInfo.ScreenHeight)
}

func TestGetDeviceInfo_AllAttributesBroken(t *testing.T) {
	for _, panics := range []bool{false, true} {
		p := NewProvider(NewMemoryStore(), brokenEnv{panics: panics}, discardLogger())

		var info models.DeviceFingerprint
		require.NotPanics(t, func() { info = p.GetDeviceInfo() })

		assert.NotEmpty(t, info.DeviceID)
		assert.Equal(t, "Unknown Device", info.DeviceName)
		assert.NotEmpty(t, info.Fingerprint)
		assert.Equal(t, models.Unknown, info.DeviceInfo.UserAgent)
		assert.Equal(t, models.Unknown, info.DeviceInfo.Language)
		assert.Equal(t, models.Unknown, info.DeviceInfo.GPUVendor)
		assert.Zero(t, info.DeviceInfo.ScreenWidth)
		assert.Zero(t, info.DeviceInfo.HardwareConcurrency)
	}
}

func TestGetDeviceInfo_MobileImpliesTouch(t *testing.T) {
	env := browserEnv()
	env.Info.UserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"

	info := NewProvider(NewMemoryStore(), env, discardLogger()).GetDeviceInfo()

	assert.True(t, info.DeviceInfo.TouchSupport)
	assert.Contains(t, info.DeviceName, "iPhone")
}
