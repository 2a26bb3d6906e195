package devicefp

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// SignalFunc is the boundary to an external fingerprint library: a pure
// function returning an opaque signal, supplementary to Hash
type SignalFunc func() string

// Collector derives a deterministic descriptor and digest of the running
// device. Collect is a pure, synchronous read with no side effects.
type Collector struct {
	source Source
	signal SignalFunc
}

// NewCollector creates a collector over the given attribute source
func NewCollector(source Source, opts ...CollectorOption) *Collector {
	c := &Collector{
		source: source,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CollectorOption configures a Collector
type CollectorOption func(*Collector)

// WithSignal attaches a supplementary external fingerprint signal
func WithSignal(signal SignalFunc) CollectorOption {
	return func(c *Collector) {
		c.signal = signal
	}
}

// Collect reads the ambient environment attributes into a structured
// descriptor. Identical environment yields an identical descriptor across
// repeated calls.
func (c *Collector) Collect() Descriptor {
	return c.source.Descriptor()
}

// Signal returns the supplementary external fingerprint signal, or empty
// when no library is attached
func (c *Collector) Signal() string {
	if c.signal == nil {
		return ""
	}
	return c.signal()
}

// Hash canonicalizes a fixed, ordered subset of descriptor fields and
// computes a SHA-256 digest. Identical environment yields an identical
// digest; this is a recognition aid, not a uniqueness guarantee under a
// spoofed environment.
func Hash(d Descriptor) string {
	combined := strings.Join([]string{
		d.BrowserName,
		d.BrowserVersion,
		d.OSName,
		d.OSVersion,
		d.DeviceType,
		fmt.Sprintf("%dx%d", d.ScreenWidth, d.ScreenHeight),
		fmt.Sprintf("%d", d.HardwareConcurrency),
		d.Timezone,
	}, "|")

	digest := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(digest[:])
}
