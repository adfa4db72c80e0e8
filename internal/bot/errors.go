package bot

import "errors"

// Validation failures raised by the command layer before anything reaches
// the scheduler. They map 1:1 to user-facing replies in the router.
var (
	ErrBadTime      = errors.New("unrecognized time format")
	ErrPastDeadline = errors.New("deadline is in the past")
)
