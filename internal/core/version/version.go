package version

// Version is overridden at build time via
// -ldflags "-X github.com/guiyumin/mediahub/internal/core/version.Version=v1.2.3"
var Version = "dev"

// UserAgent identifies mediahub in outbound requests that do not need to look like a browser.
func UserAgent() string {
	return "mediahub/" + Version
}
