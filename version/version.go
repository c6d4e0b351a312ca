// Package version holds build information, overridable with -ldflags.
package version

var Version = "0.3.0"
var BuildDate = "2026-10-16"

func GetVersion() string {
	return Version
}

func GetBuildDate() string {
	return BuildDate
}
