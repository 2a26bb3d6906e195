// Package devicefp derives a deterministic descriptor and digest of the
// running device for the device-trust handshake.
//
// Collect is a pure, synchronous snapshot of ambient environment
// attributes (browser, OS, device type, screen geometry, hardware
// concurrency, timezone). Hash canonicalizes a fixed ordered subset of
// those attributes into a SHA-256 digest.
//
// The digest is a recognition aid: identical environment yields an
// identical digest, but a spoofed environment yields a spoofed digest.
// It is explicitly not a security boundary.
//
//	collector := devicefp.NewCollector(devicefp.SystemSource{
//		Overlay: devicefp.Descriptor{
//			BrowserName:    "embedded",
//			BrowserVersion: appVersion,
//			ScreenWidth:    1920,
//			ScreenHeight:   1080,
//		},
//	})
//
//	descriptor := collector.Collect()
//	digest := devicefp.Hash(descriptor)
package devicefp
