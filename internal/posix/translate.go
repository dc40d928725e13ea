package posix

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/pkg/sftp"
)

// statusTable implements the translation table from spec section 4.3.
// Any status code not present here defaults to EIO.
var statusTable = map[uint32]Errno{
	sftp.ErrSSHFxOk:                  OK,
	sftp.ErrSSHFxEOF:                 OK,
	sftp.ErrSSHFxNoSuchFile:          ENoEnt,
	sftp.ErrSSHFxPermissionDenied:    EPerm,
	sftp.ErrSSHFxOpUnsupported:       ENoSys,
	sftp.ErrSSHFxNoConnection:        EIO,
	sftp.ErrSSHFxConnectionLost:      EIO,
	sftp.ErrSSHFxBadMessage:          EIO,
	sftp.ErrSSHFxFailure:             EIO,
	sftp.ErrSSHFxNoSuchPath:          ENoEnt,
	sftp.ErrSSHFxFileAlreadyExists:   EExist,
	sftp.ErrSSHFxWriteProtect:        EROFS,
	sftp.ErrSSHFxNoSpaceOnFilesystem: ENoSpc,
	sftp.ErrSSHFxQuotaExceeded:       EDQuot,
	sftp.ErrSSHFxLockConflict:        EDeadlk,
	sftp.ErrSSHFxDirNotEmpty:         ENotEmpty,
	sftp.ErrSSHFxNotADirectory:       ENotDir,
	sftp.ErrSSHFxInvalidFilename:     EInval,
	sftp.ErrSSHFxInvalidParameter:    EInval,
	sftp.ErrSSHFxLinkLoop:            ELoop,
	sftp.ErrSSHFxFileIsADirectory:    EIsDir,
	sftp.ErrSSHFxInvalidHandle:       EBadF,
}

// TranslateError converts an error returned from the SFTP operation surface
// (an already-translated Errno wrapped with context, a *sftp.StatusError,
// or occasionally a bare os.PathError from the local side of a copy helper)
// into the fixed POSIX errno enumeration. A nil error translates to OK.
func TranslateError(err error) Errno {
	if err == nil {
		return OK
	}
	var errno Errno
	if errors.As(err, &errno) {
		return errno
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return EIO
	}
	var statusErr *sftp.StatusError
	if errors.As(err, &statusErr) {
		if e, ok := statusTable[uint32(statusErr.Code)]; ok {
			return e
		}
		return EIO
	}
	switch {
	case os.IsNotExist(err):
		return ENoEnt
	case os.IsPermission(err):
		return EPerm
	case errors.Is(err, os.ErrClosed):
		return EBadF
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return TranslateError(pathErr.Err)
	}
	return EIO
}

// IsWouldBlock reports whether err represents the SFTP would-block status
// that the read/write loops must sleep-and-retry on rather than surface.
func IsWouldBlock(err error) bool {
	var statusErr *sftp.StatusError
	if errors.As(err, &statusErr) {
		// SSH_FX_OK/EOF never indicate would-block; pkg/sftp does not
		// define a distinct would-block status of its own, but servers
		// that proxy EAGAIN from the underlying filesystem report it via
		// ErrSSHFxFailure with text containing "again"/"EAGAIN". Callers
		// should prefer checking for this condition before falling back
		// to TranslateError.
		return statusErr.Code == sftp.ErrSSHFxFailure && looksLikeWouldBlock(statusErr.Error())
	}
	return false
}

func looksLikeWouldBlock(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "again")
}
