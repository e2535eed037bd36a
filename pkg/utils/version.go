// Package utils holds small helpers shared by the docmem commands.
package utils

import "log/slog"

// Set at link time with -ldflags "-X".
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// BuildAttr groups the build metadata for a startup log record.
func BuildAttr() slog.Attr {
	return slog.Group("build",
		slog.String("version", Version),
		slog.String("sha", Sha),
		slog.String("built_at", Buildtime),
	)
}
