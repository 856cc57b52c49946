package version

import "runtime"

// Build information. Populated at build-time via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info holds resolved build information
type Info struct {
	Version   string
	GitCommit string
	BuildDate string
	GoVersion string
}

// Get returns the build information for this binary
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}

// Map returns the build information as string labels, for metrics
func (i Info) Map() map[string]string {
	return map[string]string{
		"version":    i.Version,
		"git_commit": i.GitCommit,
		"build_date": i.BuildDate,
		"go_version": i.GoVersion,
	}
}
