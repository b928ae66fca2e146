// Package version holds build metadata set through -ldflags.
package version

// Version is overridden at build time with -ldflags "-X .../internal/version.Version=...".
var Version = "dev"
