// Package version holds build metadata set with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/doeshing/aicmd-go/internal/version.Version=1.2.0"
package version

var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)
