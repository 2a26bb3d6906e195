package devicefp

import (
	"runtime"
	"time"
)

// Descriptor contains the ambient environment attributes of the running
// device. Quasi-stable, not secret: it feeds the handshake's device
// metadata and the fingerprint digest.
type Descriptor struct {
	BrowserName    string `json:"browser_name"`
	BrowserVersion string `json:"browser_version"`
	OSName         string `json:"os_name"`
	OSVersion      string `json:"os_version"`
	DeviceType     string `json:"device_type"`
	DeviceVendor   string `json:"device_vendor,omitempty"`
	DeviceModel    string `json:"device_model,omitempty"`

	ScreenWidth    int `json:"screen_width"`
	ScreenHeight   int `json:"screen_height"`
	ViewportWidth  int `json:"viewport_width"`
	ViewportHeight int `json:"viewport_height"`

	HardwareConcurrency int     `json:"hardware_concurrency"`
	DeviceMemoryGB      float64 `json:"device_memory_gb,omitempty"`
	NetworkClass        string  `json:"network_class,omitempty"`

	Timezone string `json:"timezone"`
	Locale   string `json:"locale,omitempty"`
}

// IsComplete checks that the attributes the handshake completion step
// requires are present
func (d Descriptor) IsComplete() bool {
	return d.OSName != "" && d.DeviceType != "" && d.Timezone != ""
}

// Source supplies ambient environment attributes to the collector.
// The host application injects the attributes only it can observe
// (browser facts, screen geometry); SystemSource covers the rest.
type Source interface {
	Descriptor() Descriptor
}

// StaticSource returns a fixed descriptor, for tests and embedding hosts
// that snapshot their environment once
type StaticSource struct {
	D Descriptor
}

// Descriptor returns the fixed descriptor
func (s StaticSource) Descriptor() Descriptor {
	return s.D
}

// SystemSource fills the attributes observable from the Go runtime:
// OS name, hardware concurrency and timezone. Remaining fields come from
// the overlay descriptor supplied by the host.
type SystemSource struct {
	// Overlay carries host-supplied attributes merged over the
	// runtime-derived ones
	Overlay Descriptor
}

// Descriptor returns the runtime-derived descriptor merged with the overlay
func (s SystemSource) Descriptor() Descriptor {
	d := s.Overlay
	if d.OSName == "" {
		d.OSName = runtime.GOOS
	}
	if d.HardwareConcurrency == 0 {
		d.HardwareConcurrency = runtime.NumCPU()
	}
	if d.Timezone == "" {
		zone, _ := time.Now().Zone()
		d.Timezone = zone
	}
	if d.DeviceType == "" {
		d.DeviceType = "desktop"
	}
	return d
}
