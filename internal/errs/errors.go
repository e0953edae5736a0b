package errs

import "errors"

var (
	ErrNoSpace      = errors.New("shmrt: no space")
	ErrBadArgument  = errors.New("shmrt: bad argument")
	ErrClosed       = errors.New("shmrt: closed")
	ErrNotSupported = errors.New("shmrt: not supported on this platform")
	ErrNoPss        = errors.New("shmrt: no Pss field")
)
