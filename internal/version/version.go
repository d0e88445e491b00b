package version

// Overridden at build time with -ldflags "-X github.com/keshon/jukebox/internal/version.Version=...".
var (
	AppName        = "Jukebox"
	AppDescription = "Voice channel music bot: search, queue, shuffle, pause, skip and volume."
	Version        = "dev"
)
