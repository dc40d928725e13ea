// Package fusefs is the Filesystem Callback Layer: a pathfs.FileSystem
// that turns the fourteen POSIX callbacks into calls against the SFTP
// Operation Surface (internal/sftpops) and the Connection Record
// (internal/session), translating attributes and errors through
// internal/posix at the boundary.
//
// Grounded on rclone's cmd/mount2, the one place in rclone's own tree that
// drives github.com/hanwen/go-fuse/v2 directly, generalized from mount2's
// newer inode-tree `fs` package down to the flatter `pathfs` binding,
// whose path-based method set maps 1:1 onto the fourteen POSIX callbacks.
package fusefs

import (
	"golang.org/x/sys/unix"

	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/remotefs/remotefs/internal/posix"
)

// toStatus converts the fixed POSIX errno enumeration into the fuse.Status
// values the kernel understands. Deliberately a local table rather than a
// cast, since posix.Errno intentionally does not alias unix.Errno.
func toStatus(e posix.Errno) fuse.Status {
	switch e {
	case posix.OK:
		return fuse.OK
	case posix.ENoEnt:
		return fuse.Status(unix.ENOENT)
	case posix.EPerm:
		return fuse.Status(unix.EPERM)
	case posix.ENotDir:
		return fuse.Status(unix.ENOTDIR)
	case posix.EIsDir:
		return fuse.Status(unix.EISDIR)
	case posix.EExist:
		return fuse.Status(unix.EEXIST)
	case posix.EROFS:
		return fuse.Status(unix.EROFS)
	case posix.ENoSpc:
		return fuse.Status(unix.ENOSPC)
	case posix.EDQuot:
		return fuse.Status(unix.EDQUOT)
	case posix.ENotEmpty:
		return fuse.Status(unix.ENOTEMPTY)
	case posix.EInval:
		return fuse.Status(unix.EINVAL)
	case posix.ENotConn:
		return fuse.Status(unix.ENOTCONN)
	case posix.EBadF:
		return fuse.Status(unix.EBADF)
	case posix.ENoSys:
		return fuse.Status(unix.ENOSYS)
	case posix.ENoMem:
		return fuse.Status(unix.ENOMEM)
	case posix.EWouldBlock:
		return fuse.Status(unix.EWOULDBLOCK)
	case posix.ELoop:
		return fuse.Status(unix.ELOOP)
	case posix.EDeadlk:
		return fuse.Status(unix.EDEADLK)
	default:
		return fuse.Status(unix.EIO)
	}
}

// statusFromErr wraps TranslateError and toStatus for the common case of
// an operation surface call that returned a bare error.
func statusFromErr(err error) fuse.Status {
	if err == nil {
		return fuse.OK
	}
	return toStatus(posix.TranslateError(err))
}
