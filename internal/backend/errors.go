package backend

import "errors"

// ErrSendUnsupported is returned by Send when the backend/handle cannot
// accept input (spec.md §4.2: direct backend without a retained stdin).
var ErrSendUnsupported = errors.New("backend: send not supported for this worker")

// ErrBackendGone is returned when the backend's observation mechanism
// itself is missing (e.g. a stale tmux server socket after a reboot,
// spec.md §9 Open Question b) — distinct from the process simply having
// exited, which Alive reports as (false, nil).
var ErrBackendGone = errors.New("backend: underlying session unreachable")
