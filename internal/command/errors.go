package command

import "errors"

var (
	ErrMissingField  = errors.New("command: missing required field")
	ErrInvalidUsage  = errors.New("command: invalid usage")
	ErrInvalidBounds = errors.New("command: invalid bounds")
	ErrDuplicateName = errors.New("command: duplicate name")
	ErrCronConflict  = errors.New("command: before and after are mutually exclusive")
	ErrNotLazy       = errors.New("command: no lazy callback")
	ErrNoCron        = errors.New("command: no cron callback")

	// ErrSkipLazy may be returned by an execute callback of a lazy command to
	// finish without waiting for a continuation. It is not a failure.
	ErrSkipLazy = errors.New("command: lazy continuation skipped")
)
