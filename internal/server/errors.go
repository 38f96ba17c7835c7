package server

import (
	"errors"
	"os"

	"github.com/quietwire/tftpd/internal/transfer"
	"github.com/quietwire/tftpd/pkg/wire"
)

// classify maps a failed transfer's error onto the Error packet sent to the
// peer. Handlers that return a wire.Error pick their own code; common
// filesystem errors get their canonical codes; everything else is reported
// under the undefined code.
func classify(err error) wire.Error {
	var werr wire.Error
	switch {
	case errors.As(err, &werr):
		return werr
	case errors.Is(err, os.ErrNotExist):
		return wire.Error{Code: wire.ErrFileNotFound, Message: "file not found"}
	case errors.Is(err, os.ErrPermission):
		return wire.Error{Code: wire.ErrAccessViolation, Message: "access violation"}
	case errors.Is(err, os.ErrExist):
		return wire.Error{Code: wire.ErrFileExists, Message: "file already exists"}
	case errors.Is(err, transfer.ErrRetriesExceeded):
		return wire.Error{Code: wire.ErrUndefined, Message: "transfer timed out"}
	default:
		return wire.Error{Code: wire.ErrUndefined, Message: err.Error()}
	}
}
