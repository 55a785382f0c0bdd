package runtime

// Set by goreleaser via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	Timestamp = "unknown"
)
