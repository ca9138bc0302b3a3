// Package buildinfo carries the version stamp, overridden at link time:
//
//	go build -ldflags "-X .../internal/buildinfo.Version=v0.3.0 ..."
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func String() string {
	return fmt.Sprintf("windco %s (commit=%s, date=%s)", Version, Commit, Date)
}
