package device

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BradenHooton/haulgate/internal/models"
)

// DeviceIDKey is the storage key holding the persisted device id.
const DeviceIDKey = "haulgate.device_id"

// fingerprintLength is the number of hex characters kept from the hash.
const fingerprintLength = 32

// Provider derives the device identity and risk signals sent with login calls.
// None of its methods fail: storage and attribute errors degrade the result instead.
type Provider struct {
	store  Store
	env    Environment
	logger *slog.Logger
	newID  func() (string, error)

	mu         sync.Mutex
	fallbackID string // used for the rest of the process when storage is unusable
}

// Option configures a Provider.
type Option func(*Provider)

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(fn func() (string, error)) Option {
	return func(p *Provider) {
		p.newID = fn
	}
}

func NewProvider(store Store, env Environment, logger *slog.Logger, opts ...Option) *Provider {
	p := &Provider{
		store:  store,
		env:    env,
		logger: logger,
		newID: func() (string, error) {
			id, err := uuid.NewRandom()
			if err != nil {
				return "", err
			}
			return id.String(), nil
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetOrCreateDeviceID returns the persisted device id, creating and storing one
// on first use. If storage cannot be used the id is still returned but will not
// survive a restart.
func (p *Provider) GetOrCreateDeviceID() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fallbackID != "" {
		return p.fallbackID
	}

	id, err := p.safeGet(DeviceIDKey)
	switch {
	case err == nil && id != "":
		return id
	case err != nil && !errors.Is(err, models.ErrNotFound):
		p.logger.Warn("device storage unavailable, using ephemeral device id", "error", err)
		p.fallbackID = p.generateID()
		return p.fallbackID
	}

	id = p.generateID()
	if err := p.safeSet(DeviceIDKey, id); err != nil {
		p.logger.Warn("device id not persisted", "error", err)
		p.fallbackID = id
	}
	return id
}

// GenerateFingerprint hashes user agent, language, screen geometry and timezone.
// It is a coarse linkability signal, not an identity guarantee.
func (p *Provider) GenerateFingerprint() (fp string) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("fingerprint computation panicked", "panic", r)
			fp = randomFingerprint()
		}
	}()

	ua, err := p.env.UserAgent()
	if err != nil {
		return randomFingerprint()
	}
	langs, err := p.env.Languages()
	if err != nil || len(langs) == 0 {
		return randomFingerprint()
	}
	width, height, err := p.env.Screen()
	if err != nil {
		return randomFingerprint()
	}
	tz, err := p.env.Timezone()
	if err != nil {
		return randomFingerprint()
	}

	return hashFingerprint(ua, langs[0], width, height, tz)
}

// GetDeviceInfo composes the device id, label, fingerprint and environment
// attributes. Each attribute is read independently.
func (p *Provider) GetDeviceInfo() models.DeviceFingerprint {
	info := models.DeviceInfo{
		UserAgent:           readAttr(p, "user_agent", models.Unknown, p.env.UserAgent),
		Platform:            readAttr(p, "platform", models.Unknown, p.env.Platform),
		Timezone:            readAttr(p, "timezone", models.Unknown, p.env.Timezone),
		HardwareConcurrency: readAttr(p, "hardware_concurrency", 0, p.env.HardwareConcurrency),
		DeviceMemoryGB:      readAttr(p, "device_memory", 0, p.env.DeviceMemoryGB),
	}

	info.Languages = readAttr(p, "languages", []string{}, p.env.Languages)
	info.Language = models.Unknown
	if len(info.Languages) > 0 {
		info.Language = info.Languages[0]
	}

	screen := readAttr(p, "screen", [2]int{}, func() ([2]int, error) {
		w, h, err := p.env.Screen()
		return [2]int{w, h}, err
	})
	info.ScreenWidth, info.ScreenHeight = screen[0], screen[1]

	touch := readAttr(p, "touch", touchInfo{}, func() (touchInfo, error) {
		ok, points, err := p.env.Touch()
		return touchInfo{ok, points}, err
	})
	info.TouchSupport, info.MaxTouchPoints = touch.supported, touch.points
	if !info.TouchSupport && IsMobile(info.UserAgent) {
		info.TouchSupport = true
	}

	gpu := readAttr(p, "gpu", [2]string{models.Unknown, models.Unknown}, func() ([2]string, error) {
		vendor, renderer, err := p.env.GPU()
		return [2]string{orUnknown(vendor), orUnknown(renderer)}, err
	})
	info.GPUVendor, info.GPURenderer = gpu[0], gpu[1]

	return models.DeviceFingerprint{
		DeviceID:    p.GetOrCreateDeviceID(),
		DeviceName:  p.deviceName(info.UserAgent),
		Fingerprint: p.GenerateFingerprint(),
		DeviceInfo:  info,
	}
}

func (p *Provider) deviceName(userAgent string) string {
	if namer, ok := p.env.(Namer); ok {
		if name := readAttr(p, "device_name", "", namer.DeviceName); name != "" {
			return name
		}
	}
	if userAgent == models.Unknown {
		return "Unknown Device"
	}
	return ParseUserAgent(userAgent)
}

type touchInfo struct {
	supported bool
	points    int
}

// readAttr runs one attribute lookup, turning errors and panics into fallback.
func readAttr[T any](p *Provider, field string, fallback T, fn func() (T, error)) (v T) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Debug("device attribute read panicked", "field", field, "panic", r)
			v = fallback
		}
	}()

	v, err := fn()
	if err != nil {
		p.logger.Debug("device attribute read failed", "field", field, "error", err)
		return fallback
	}
	return v
}

func (p *Provider) generateID() string {
	id, err := p.newID()
	if err == nil && id != "" {
		return id
	}
	p.logger.Warn("uuid generation failed, using time-based device id", "error", err)
	return fmt.Sprintf("%x-%016x", time.Now().UnixNano(), rand.Uint64())
}

func (p *Provider) safeGet(key string) (v string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", models.ErrStorage, r)
		}
	}()
	return p.store.Get(key)
}

func (p *Provider) safeSet(key, value string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", models.ErrStorage, r)
		}
	}()
	return p.store.Set(key, value)
}

func hashFingerprint(userAgent, language string, width, height int, timezone string) string {
	data := strings.Join([]string{
		userAgent,
		language,
		fmt.Sprintf("%dx%d", width, height),
		timezone,
	}, "|")
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])[:fingerprintLength]
}

func randomFingerprint() string {
	return fmt.Sprintf("fp-%016x%08x", rand.Uint64(), rand.Uint32())
}

func orUnknown(s string) string {
	if s == "" {
		return models.Unknown
	}
	return s
}
