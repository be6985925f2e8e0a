package models

// Unknown is reported for any device attribute that could not be read.
const Unknown = "unknown"

// DeviceFingerprint is the risk signal bundle sent with login and verify calls.
// DeviceID is stable; the remaining fields are recomputed on every call.
type DeviceFingerprint struct {
	DeviceID    string     `json:"device_id"`
	DeviceName  string     `json:"device_name"`
	Fingerprint string     `json:"fingerprint"`
	DeviceInfo  DeviceInfo `json:"device_info"`
}

// DeviceInfo describes the environment the client runs in.
type DeviceInfo struct {
	UserAgent           string   `json:"user_agent"`
	Platform            string   `json:"platform"`
	Language            string   `json:"language"`
	Languages           []string `json:"languages"`
	Timezone            string   `json:"timezone"`
	ScreenWidth         int      `json:"screen_width"`
	ScreenHeight        int      `json:"screen_height"`
	HardwareConcurrency int      `json:"hardware_concurrency"`
	DeviceMemoryGB      float64  `json:"device_memory"`
	TouchSupport        bool     `json:"touch_support"`
	MaxTouchPoints      int      `json:"max_touch_points"`
	GPUVendor           string   `json:"gpu_vendor"`
	GPURenderer         string   `json:"gpu_renderer"`
}
