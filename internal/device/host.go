package device

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

var gpuVendors = map[string]string{
	"0x10de": "NVIDIA Corporation",
	"0x1002": "Advanced Micro Devices, Inc.",
	"0x8086": "Intel Corporation",
	"0x1af4": "Red Hat, Inc. (virtio)",
	"0x15ad": "VMware",
	"0x1414": "Microsoft Corporation",
}

// HostEnvironment describes the machine a terminal client runs on.
type HostEnvironment struct {
	AppName string
	Version string

	getenv   func(string) string
	readFile func(string) ([]byte, error)
	hostname func() (string, error)
	sysRoot  string
	procRoot string
}

func NewHostEnvironment(appName, version string) *HostEnvironment {
	return &HostEnvironment{
		AppName:  appName,
		Version:  version,
		getenv:   os.Getenv,
		readFile: os.ReadFile,
		hostname: os.Hostname,
		sysRoot:  "/sys",
		procRoot: "/proc",
	}
}

func (h *HostEnvironment) UserAgent() (string, error) {
	if h.AppName == "" {
		return "", ErrUnavailable
	}
	return fmt.Sprintf("%s/%s (%s; %s) Go/%s",
		h.AppName, h.Version, osTitle(runtime.GOOS), runtime.GOARCH, strings.TrimPrefix(runtime.Version(), "go")), nil
}

// Languages follows the gettext lookup order.
func (h *HostEnvironment) Languages() ([]string, error) {
	if list := h.getenv("LANGUAGE"); list != "" {
		var langs []string
		for _, l := range strings.Split(list, ":") {
			if tag := localeToTag(l); tag != "" {
				langs = append(langs, tag)
			}
		}
		if len(langs) > 0 {
			return langs, nil
		}
	}
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if tag := localeToTag(h.getenv(key)); tag != "" {
			return []string{tag}, nil
		}
	}
	return nil, ErrUnavailable
}

func (h *HostEnvironment) Platform() (string, error) {
	return osTitle(runtime.GOOS) + " " + archName(runtime.GOARCH), nil
}

func (h *HostEnvironment) Timezone() (string, error) {
	if tz := h.getenv("TZ"); tz != "" {
		return strings.TrimPrefix(tz, ":"), nil
	}
	if raw, err := h.readFile("/etc/timezone"); err == nil {
		if tz := strings.TrimSpace(string(raw)); tz != "" {
			return tz, nil
		}
	}
	if target, err := os.Readlink("/etc/localtime"); err == nil {
		if i := strings.Index(target, "zoneinfo/"); i >= 0 {
			return target[i+len("zoneinfo/"):], nil
		}
	}
	return "", ErrUnavailable
}

// Screen reports the terminal geometry in character cells.
func (h *HostEnvironment) Screen() (int, int, error) {
	cols, errC := strconv.Atoi(h.getenv("COLUMNS"))
	lines, errL := strconv.Atoi(h.getenv("LINES"))
	if errC != nil || errL != nil || cols <= 0 || lines <= 0 {
		return 0, 0, ErrUnavailable
	}
	return cols, lines, nil
}

func (h *HostEnvironment) HardwareConcurrency() (int, error) {
	return runtime.NumCPU(), nil
}

func (h *HostEnvironment) DeviceMemoryGB() (float64, error) {
	raw, err := h.readFile(filepath.Join(h.procRoot, "meminfo"))
	if err != nil {
		return 0, ErrUnavailable
	}

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[0] == "MemTotal:" {
			kb, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return 0, ErrUnavailable
			}
			gb := kb / (1024 * 1024)
			return float64(int(gb*10+0.5)) / 10, nil
		}
	}
	return 0, ErrUnavailable
}

func (h *HostEnvironment) Touch() (bool, int, error) {
	return false, 0, nil
}

// GPU reads the PCI vendor and device ids of the first DRM card.
func (h *HostEnvironment) GPU() (string, string, error) {
	cards, _ := filepath.Glob(filepath.Join(h.sysRoot, "class", "drm", "card[0-9]*"))
	for _, card := range cards {
		rawVendor, err := h.readFile(filepath.Join(card, "device", "vendor"))
		if err != nil {
			continue
		}
		vendorID := strings.ToLower(strings.TrimSpace(string(rawVendor)))
		vendor, ok := gpuVendors[vendorID]
		if !ok {
			vendor = "PCI vendor " + vendorID
		}

		renderer := "unknown"
		if rawDevice, err := h.readFile(filepath.Join(card, "device", "device")); err == nil {
			renderer = "PCI device " + strings.TrimSpace(string(rawDevice))
		}
		return vendor, renderer, nil
	}
	return "", "", ErrUnavailable
}

// DeviceName labels a terminal client by application and host.
func (h *HostEnvironment) DeviceName() (string, error) {
	host, err := h.hostname()
	if err != nil || host == "" {
		return fmt.Sprintf("%s on %s", h.AppName, osTitle(runtime.GOOS)), nil
	}
	return fmt.Sprintf("%s on %s (%s)", h.AppName, osTitle(runtime.GOOS), host), nil
}

// localeToTag turns "en_US.UTF-8" into "en-US".
func localeToTag(locale string) string {
	locale = strings.TrimSpace(locale)
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	if locale == "" || locale == "C" || locale == "POSIX" {
		return ""
	}
	return strings.ReplaceAll(locale, "_", "-")
}

func osTitle(goos string) string {
	switch goos {
	case "darwin":
		return "macOS"
	case "linux":
		return "Linux"
	case "windows":
		return "Windows"
	case "freebsd":
		return "FreeBSD"
	default:
		return goos
	}
}

func archName(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "386":
		return "i686"
	case "arm64":
		return "aarch64"
	default:
		return goarch
	}
}
