package version

// Version is the current release, overridden at build time with
// -ldflags "-X github.com/alvmarrod/domain-weaver/internal/version.Version=..."
var Version = "0.3.0"
