package devicefp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDescriptor() Descriptor {
	return Descriptor{
		BrowserName:         "Firefox",
		BrowserVersion:      "128.0",
		OSName:              "linux",
		OSVersion:           "6.1",
		DeviceType:          "desktop",
		ScreenWidth:         1920,
		ScreenHeight:        1080,
		ViewportWidth:       1600,
		ViewportHeight:      900,
		HardwareConcurrency: 8,
		Timezone:            "Europe/Berlin",
		Locale:              "de-DE",
	}
}

func TestHash_Deterministic(t *testing.T) {
	d := testDescriptor()

	first := Hash(d)
	second := Hash(d)

	require.Len(t, first, 64) // hex-encoded SHA-256
	assert.Equal(t, first, second)
}

func TestHash_SensitiveToCanonicalFields(t *testing.T) {
	base := Hash(testDescriptor())

	changed := testDescriptor()
	changed.Timezone = "America/New_York"
	assert.NotEqual(t, base, Hash(changed))

	changed = testDescriptor()
	changed.ScreenWidth = 2560
	assert.NotEqual(t, base, Hash(changed))
}

func TestHash_IgnoresNonCanonicalFields(t *testing.T) {
	base := Hash(testDescriptor())

	// Viewport and locale are quasi-volatile and stay out of the digest
	changed := testDescriptor()
	changed.ViewportWidth = 800
	changed.ViewportHeight = 600
	changed.Locale = "fr-FR"
	assert.Equal(t, base, Hash(changed))
}

func TestCollector_Collect(t *testing.T) {
	d := testDescriptor()
	collector := NewCollector(StaticSource{D: d})

	first := collector.Collect()
	second := collector.Collect()

	assert.Equal(t, d, first)
	assert.Equal(t, first, second)
}

func TestCollector_Signal(t *testing.T) {
	collector := NewCollector(StaticSource{D: testDescriptor()})
	assert.Equal(t, "", collector.Signal())

	collector = NewCollector(StaticSource{D: testDescriptor()},
		WithSignal(func() string { return "external-signal" }))
	assert.Equal(t, "external-signal", collector.Signal())
}

func TestSystemSource_FillsDefaults(t *testing.T) {
	d := SystemSource{}.Descriptor()

	assert.NotEmpty(t, d.OSName)
	assert.NotZero(t, d.HardwareConcurrency)
	assert.NotEmpty(t, d.Timezone)
	assert.Equal(t, "desktop", d.DeviceType)
	assert.True(t, d.IsComplete())
}

func TestSystemSource_OverlayWins(t *testing.T) {
	d := SystemSource{
		Overlay: Descriptor{
			OSName:     "custom-os",
			DeviceType: "tablet",
			Timezone:   "UTC",
		},
	}.Descriptor()

	assert.Equal(t, "custom-os", d.OSName)
	assert.Equal(t, "tablet", d.DeviceType)
	assert.Equal(t, "UTC", d.Timezone)
}

func TestDescriptor_IsComplete(t *testing.T) {
	assert.True(t, testDescriptor().IsComplete())
	assert.False(t, Descriptor{}.IsComplete())

	d := testDescriptor()
	d.Timezone = ""
	assert.False(t, d.IsComplete())
}
