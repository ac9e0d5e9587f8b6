// Package version exposes the build version of stagegate.
package version

// Version is the current version of stagegate. It is set at build time
// via -ldflags; the default marks non-release builds.
var Version = "0.1.0-dev"
