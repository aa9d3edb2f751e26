package probe

import "time"

// Defaults for a probe run.
const (
	DefaultSessions          = 4
	DefaultPlayersPerSession = 3
	DefaultWorkers           = 4
	DefaultWait              = 45 * time.Second
	DefaultTimeout           = 90 * time.Second
)

// File permission constants.
const (
	reportFilePermission = 0o600
	logFilePermission    = 0o600
	directoryPermission  = 0o750
)
