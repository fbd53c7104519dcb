// Package version provides build and version information for algoscene.
package version

// Version is the current release version of algoscene.
// This can be overridden at build time using:
//
//	go build -ldflags "-X github.com/AaronLay10/algoscene/internal/version.Version=x.y.z"
var Version = "0.1.0"
