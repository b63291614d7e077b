// Package version holds build-time version information.
package version

// Version is the current skillet version. Overridden at build time via
// -ldflags "-X github.com/skillet-ai/skillet/pkg/version.Version=...".
var Version = "0.3.0-dev"
