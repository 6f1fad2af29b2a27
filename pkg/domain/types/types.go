package types

// Version is the application version, overwritten at build time with -ldflags
var Version = "dev"

const (
	// DefaultRepository is the GitHub repository hosting model weight assets
	DefaultRepository = "ultralytics/assets"

	// DefaultRelease is the release tag used when nothing better can be resolved
	DefaultRelease = "v0.0.0"

	// LatestRelease selects the most recent release of a repository
	LatestRelease = "latest"

	// DefaultDownloadHost is the host serving release asset downloads
	DefaultDownloadHost = "https://github.com"

	// DefaultRetry is the number of retries after the first download attempt
	DefaultRetry = 3

	// AssetMinBytes is the size guard for release assets and direct URL weights
	AssetMinBytes int64 = 100000
)

// DefaultAssets returns the asset names assumed to exist when release metadata is unreachable
func DefaultAssets() []string {
	var assets []string
	for _, size := range []string{"n", "s", "m", "l", "x"} {
		for _, suffix := range []string{"", "6", "-cls", "-seg"} {
			assets = append(assets, "yolov8"+size+suffix+".pt")
		}
	}
	return assets
}
