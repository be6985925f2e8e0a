package device

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeHost(t *testing.T, env map[string]string) *HostEnvironment {
	t.Helper()
	h := NewHostEnvironment("haulgate-cli", "1.2.3")
	h.getenv = func(k string) string { return env[k] }
	h.hostname = func() (string, error) { return "dispatch-01", nil }
	h.sysRoot = t.TempDir()
	h.procRoot = t.TempDir()
	return h
}

func TestHostEnvironment_Languages(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want []string
	}{
		{"LANGUAGE list", map[string]string{"LANGUAGE": "de_DE:en_US"}, []string{"de-DE", "en-US"}},
		{"LANG with charset", map[string]string{"LANG": "en_GB.UTF-8"}, []string{"en-GB"}},
		{"LC_ALL wins over LANG", map[string]string{"LC_ALL": "fr_FR", "LANG": "en_US"}, []string{"fr-FR"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fakeHost(t, tt.env).Languages()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := fakeHost(t, map[string]string{"LANG": "C"}).Languages()
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHostEnvironment_ScreenAndTimezone(t *testing.T) {
	h := fakeHost(t, map[string]string{"COLUMNS": "120", "LINES": "40", "TZ": ":Europe/Berlin"})

	w, ht, err := h.Screen()
	require.NoError(t, err)
	assert.Equal(t, 120, w)
	assert.Equal(t, 40, ht)

	tz, err := h.Timezone()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", tz)

	_, _, err = fakeHost(t, nil).Screen()
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHostEnvironment_DeviceMemory(t *testing.T) {
	h := fakeHost(t, nil)
	meminfo := "MemTotal:       16318412 kB\nMemFree:         1234 kB\n"
	require.NoError(t, os.WriteFile(filepath.Join(h.procRoot, "meminfo"), []byte(meminfo), 0o644))

	gb, err := h.DeviceMemoryGB()
	require.NoError(t, err)
	assert.InDelta(t, 15.6, gb, 0.01)
}

func TestHostEnvironment_GPU(t *testing.T) {
	h := fakeHost(t, nil)

	_, _, err := h.GPU()
	assert.ErrorIs(t, err, ErrUnavailable)

	dev := filepath.Join(h.sysRoot, "class", "drm", "card0", "device")
	require.NoError(t, os.MkdirAll(dev, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dev, "vendor"), []byte("0x10de\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dev, "device"), []byte("0x2504\n"), 0o644))

	vendor, renderer, err := h.GPU()
	require.NoError(t, err)
	assert.Equal(t, "NVIDIA Corporation", vendor)
	assert.Equal(t, "PCI device 0x2504", renderer)
}

func TestHostEnvironment_UserAgentAndName(t *testing.T) {
	h := fakeHost(t, nil)

	ua, err := h.UserAgent()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ua, "haulgate-cli/1.2.3 ("), ua)

	name, err := h.DeviceName()
	require.NoError(t, err)
	assert.Contains(t, name, "haulgate-cli on ")
	assert.Contains(t, name, "dispatch-01")

	h.hostname = func() (string, error) { return "", errors.New("no hostname") }
	name, _ = h.DeviceName()
	assert.NotContains(t, name, "(")
}

func TestHostEnvironment_ProviderUsesHostName(t *testing.T) {
	h := fakeHost(t, map[string]string{"LANG": "en_US.UTF-8", "COLUMNS": "80", "LINES": "24", "TZ": "UTC"})

	info := NewProvider(NewMemoryStore(), h, discardLogger()).GetDeviceInfo()

	assert.Contains(t, info.DeviceName, "dispatch-01")
	assert.Len(t, info.Fingerprint, fingerprintLength)
	assert.Equal(t, "en-US", info.DeviceInfo.Language)
	assert.Equal(t, "UTC", info.DeviceInfo.Timezone)
}
