package sftpops

import (
	"os"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"

	"github.com/remotefs/remotefs/internal/posix"
)

// fileHandle is the narrow surface the operation layer needs from an open
// remote file. *sftp.File satisfies it directly; tests substitute fakes so
// the loop and bookkeeping logic can be exercised without a live session.
// Grounded on rclone's backend/sftp.go, which also narrows *sftp.File down
// to the handful of methods each call site actually uses.
type fileHandle interface {
	seekReadWriter
	Close() error
	Chmod(mode os.FileMode) error
	Truncate(size int64) error
	Sync() error
}

var _ fileHandle = (*sftp.File)(nil)

// toRemoteAttr converts a library os.FileInfo-shaped stat reply into the
// RemoteAttr the posix mapper consumes. Permissions, size and times are
// always marked present, whether or not the remote reported them, and the
// access time is taken from the modification time. Owner ids are never
// marked present, so MapAttr always substitutes the mounting user's ids.
func toRemoteAttr(fi os.FileInfo) posix.RemoteAttr {
	ra := posix.RemoteAttr{
		HasPerm: true,
		Perm:    fi.Mode(),
		HasSize: true,
		Size:    fi.Size(),
	}
	if fi.IsDir() {
		ra.Perm |= os.ModeDir
	}
	ra.HasTimes = true
	ra.AccessTime = fi.ModTime()
	ra.ModTime = fi.ModTime()
	return ra
}

// Stat implements the getattr operation: a single remote stat call
// translated through the attribute mapper.
func Stat(client *sftp.Client, path string, ctx posix.MappingContext) (posix.Attr, error) {
	fi, err := client.Stat(path)
	if err != nil {
		return posix.Attr{}, errors.Wrapf(posix.TranslateError(err), "stat %q", path)
	}
	return posix.MapAttr(toRemoteAttr(fi), ctx), nil
}

// Open implements the open operation: the remote file is opened with the
// already-translated os.O_* flag set and handed back as a fileHandle for
// the caller to register in the handle table.
func Open(client *sftp.Client, path string, flag int) (*sftp.File, error) {
	f, err := client.OpenFile(path, flag)
	if err != nil {
		return nil, errors.Wrapf(posix.TranslateError(err), "open %q", path)
	}
	return f, nil
}

// Create implements the create operation as open-with-create-write-truncate;
// it never needs a separate mkdir-equivalent call.
func Create(client *sftp.Client, path string) (*sftp.File, error) {
	flag, _ := CreateFlags().ToRemote()
	f, err := client.OpenFile(path, flag)
	if err != nil {
		return nil, errors.Wrapf(posix.TranslateError(err), "create %q", path)
	}
	return f, nil
}

// Close releases an open remote file handle.
func Close(f fileHandle) error {
	if err := f.Close(); err != nil {
		return errors.Wrap(posix.TranslateError(err), "close")
	}
	return nil
}

// Fsync requests the remote flush its buffers for the open handle.
// pkg/sftp only forwards this when the remote advertises the
// fsync@openssh.com extension; a would-block reply means the remote is
// still working and is treated as success, while a not-supported reply is
// reported as such rather than folded into i/o-error.
func Fsync(f fileHandle) error {
	err := f.Sync()
	if err == nil {
		return nil
	}
	if posix.IsWouldBlock(err) {
		return nil
	}
	return errors.Wrap(posix.TranslateError(err), "fsync")
}

// Unlink implements the unlink operation.
func Unlink(client *sftp.Client, path string) error {
	if err := client.Remove(path); err != nil {
		return errors.Wrapf(posix.TranslateError(err), "unlink %q", path)
	}
	return nil
}

// Mkdir implements the mkdir operation. pkg/sftp's Mkdir ignores the POSIX
// mode argument (no SFTP setstat-on-create primitive); a following setstat
// is issued when a non-default mode was requested.
func Mkdir(client *sftp.Client, path string, mode os.FileMode) error {
	if err := client.Mkdir(path); err != nil {
		return errors.Wrapf(posix.TranslateError(err), "mkdir %q", path)
	}
	if mode != 0 {
		if err := client.Chmod(path, mode); err != nil {
			return errors.Wrapf(posix.TranslateError(err), "mkdir %q: setting mode", path)
		}
	}
	return nil
}

// Rmdir implements the rmdir operation.
func Rmdir(client *sftp.Client, path string) error {
	if err := client.RemoveDirectory(path); err != nil {
		return errors.Wrapf(posix.TranslateError(err), "rmdir %q", path)
	}
	return nil
}

// Rename implements the rename operation with the overwrite + atomic +
// native flags: the SFTP posix-rename extension, not the plain
// SSH_FXP_RENAME request, since a plain rename fails when newPath already
// exists and this operation must replace it.
func Rename(client *sftp.Client, oldPath, newPath string) error {
	if err := client.PosixRename(oldPath, newPath); err != nil {
		return errors.Wrapf(posix.TranslateError(err), "rename %q -> %q", oldPath, newPath)
	}
	return nil
}

// Access implements the access operation as a getattr followed by a mask
// check: ownership decides which permission triad applies (user-bits if
// uid matches, group-bits if gid matches, else other-bits), and every bit
// requested in mask must be set in that triad. A zero mask is an
// existence-only check, which succeeds unconditionally once stat succeeds.
func Access(client *sftp.Client, path string, ctx posix.MappingContext, mask, uid, gid uint32) error {
	fi, err := client.Stat(path)
	if err != nil {
		return errors.Wrapf(posix.TranslateError(err), "access %q", path)
	}
	if mask == 0 {
		return nil
	}
	attr := posix.MapAttr(toRemoteAttr(fi), ctx)
	if !posix.CheckAccess(attr.Mode, attr.UID, attr.GID, uid, gid, mask) {
		return errors.Wrapf(posix.EPerm, "access %q", path)
	}
	return nil
}

// SetstatSize implements a by-path truncate via the remote SFTP setstat
// request, the first of Truncate's two fallback strategies.
func SetstatSize(client *sftp.Client, path string, size int64) error {
	if err := client.Truncate(path, size); err != nil {
		return errors.Wrapf(posix.TranslateError(err), "truncate %q", path)
	}
	return nil
}
