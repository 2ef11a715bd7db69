package media

import "errors"

var (
	// ErrStorageUnavailable indicates no object store is configured.
	ErrStorageUnavailable = errors.New("media storage unavailable")
	// ErrProbeUnavailable indicates the ffprobe binary is not configured.
	ErrProbeUnavailable = errors.New("media probe unavailable")

	errJanitorClosed = errors.New("media janitor closed")
)
