package fusefs

import (
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/remotefs/remotefs/internal/posix"
)

// toFuseAttr converts a fully-populated posix.Attr into the fuse.Attr the
// kernel expects, packing the file-type bits the way Linux stat(2) does.
func toFuseAttr(a posix.Attr) fuse.Attr {
	out := fuse.Attr{
		Size:    uint64(a.Size),
		Blocks:  uint64(a.Blocks),
		Mode:    rawMode(a.Mode),
		Nlink:   a.Nlink,
		Owner:   fuse.Owner{Uid: a.UID, Gid: a.GID},
		Blksize: uint32(a.BlockSize),
	}
	out.Atime, out.Atimensec = splitTime(a.Atime)
	out.Mtime, out.Mtimensec = splitTime(a.Mtime)
	out.Ctime, out.Ctimensec = splitTime(a.Ctime)
	return out
}

func splitTime(t time.Time) (uint64, uint32) {
	if t.IsZero() {
		return 0, 0
	}
	return uint64(t.Unix()), uint32(t.Nanosecond())
}

// rawMode packs os.FileMode's Go-specific high bits down into the
// Linux stat(2) mode word the kernel expects: file-type nibble plus the
// low nine permission bits.
func rawMode(mode os.FileMode) uint32 {
	perm := uint32(mode.Perm())
	switch {
	case mode&os.ModeDir != 0:
		return unix.S_IFDIR | perm
	case mode&os.ModeSymlink != 0:
		return unix.S_IFLNK | perm
	case mode&os.ModeSocket != 0:
		return unix.S_IFSOCK | perm
	case mode&os.ModeNamedPipe != 0:
		return unix.S_IFIFO | perm
	case mode&os.ModeDevice != 0:
		return unix.S_IFBLK | perm
	default:
		return unix.S_IFREG | perm
	}
}
