package docstore

import (
	"context"
	"errors"
	"net"
)

var (
	ErrNotFound         = errors.New("docstore: not found")
	ErrUnavailable      = errors.New("docstore: unavailable")
	ErrDeadlineExceeded = errors.New("docstore: deadline exceeded")
	ErrPermissionDenied = errors.New("docstore: permission denied")
	ErrInvalidArgument  = errors.New("docstore: invalid argument")
	ErrPrecondition     = errors.New("docstore: failed precondition")
)

// IsConnectivity reports whether err means the store could not be reached in
// time. Such failures are expected while offline and are recovered by replay.
func IsConnectivity(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
