package constants

import "io/fs"

const (
	// DefaultDirPerm is the default permission used when creating directories.
	DefaultDirPerm fs.FileMode = 0o755
	// DefaultFilePerm is the default permission used when creating files.
	DefaultFilePerm fs.FileMode = 0o644
)

const (
	// ToolErrorLimitBytes caps how much probe stderr is kept in a failure message.
	ToolErrorLimitBytes = 2048
)
