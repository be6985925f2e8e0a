package device

import (
	"errors"

	"github.com/BradenHooton/haulgate/internal/models"
)

// ErrUnavailable is returned by an attribute read that cannot read its attribute.
var ErrUnavailable = errors.New("attribute unavailable")

// Environment exposes the attributes the fingerprint and device info are built from.
// Every attribute read may fail independently.
type Environment interface {
	UserAgent() (string, error)
	Languages() ([]string, error)
	Platform() (string, error)
	Timezone() (string, error)
	Screen() (width, height int, err error)
	HardwareConcurrency() (int, error)
	DeviceMemoryGB() (float64, error)
	Touch() (supported bool, maxPoints int, err error)
	GPU() (vendor, renderer string, err error)
}

// Namer is implemented by environments that know a better device label than
// the one derived from the user agent.
type Namer interface {
	DeviceName() (string, error)
}

// ReportedEnvironment serves attributes that a front-end collected and
// reported. Empty values are treated as unavailable.
type ReportedEnvironment struct {
	Info models.DeviceInfo
}

func (e ReportedEnvironment) UserAgent() (string, error) {
	return nonEmpty(e.Info.UserAgent)
}

func (e ReportedEnvironment) Languages() ([]string, error) {
	if len(e.Info.Languages) > 0 {
		return e.Info.Languages, nil
	}
	if e.Info.Language != "" {
		return []string{e.Info.Language}, nil
	}
	return nil, ErrUnavailable
}

func (e ReportedEnvironment) Platform() (string, error) {
	return nonEmpty(e.Info.Platform)
}

func (e ReportedEnvironment) Timezone() (string, error) {
	return nonEmpty(e.Info.Timezone)
}

func (e ReportedEnvironment) Screen() (int, int, error) {
	if e.Info.ScreenWidth <= 0 || e.Info.ScreenHeight <= 0 {
		return 0, 0, ErrUnavailable
	}
	return e.Info.ScreenWidth, e.Info.ScreenHeight, nil
}

func (e ReportedEnvironment) HardwareConcurrency() (int, error) {
	if e.Info.HardwareConcurrency <= 0 {
		return 0, ErrUnavailable
	}
	return e.Info.HardwareConcurrency, nil
}

func (e ReportedEnvironment) DeviceMemoryGB() (float64, error) {
	if e.Info.DeviceMemoryGB <= 0 {
		return 0, ErrUnavailable
	}
	return e.Info.DeviceMemoryGB, nil
}

func (e ReportedEnvironment) Touch() (bool, int, error) {
	return e.Info.TouchSupport, e.Info.MaxTouchPoints, nil
}

func (e ReportedEnvironment) GPU() (string, string, error) {
	if e.Info.GPUVendor == "" && e.Info.GPURenderer == "" {
		return "", "", ErrUnavailable
	}
	return e.Info.GPUVendor, e.Info.GPURenderer, nil
}

func nonEmpty(s string) (string, error) {
	if s == "" {
		return "", ErrUnavailable
	}
	return s, nil
}
