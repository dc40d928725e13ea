package posix

import (
	"os"
	"time"
)

// blockSize is the fixed block size reported for every file, per spec.
const blockSize = 4096

// procBasePath is the one remote base path for which the zero-size
// compatibility shim activates. Kept as an exact-match constant per the
// narrow-compatibility decision recorded in DESIGN.md.
const procBasePath = "/proc"

// RemoteAttr carries whichever fields a remote stat reply actually
// populated. Each field is independently present/absent.
type RemoteAttr struct {
	HasPerm bool
	Perm    os.FileMode // includes type bits (os.ModeDir etc.)

	HasOwner bool
	UID, GID uint32

	HasSize bool
	Size    int64

	HasTimes           bool
	AccessTime, ModTime time.Time
}

// Attr is the POSIX stat record the mapper always produces in full: every
// field populated, file-type bit always set (invariant 3 in spec section 3).
type Attr struct {
	Mode       os.FileMode
	UID, GID   uint32
	Size       int64
	Nlink      uint32
	BlockSize  int64
	Blocks     int64
	Atime      time.Time
	Mtime      time.Time
	Ctime      time.Time
}

// MappingContext supplies the ambient values the mapper needs when a
// remote field is absent: the mounting user's own identifiers and the
// base path of the mount being stat'd (for the /proc shim), plus whether
// the path being mapped is the mount root.
type MappingContext struct {
	MountUID, MountGID uint32
	RemoteBasePath     string
	IsMountRoot        bool
}

// MapAttr implements the attribute translation rules in spec section 4.3.
func MapAttr(r RemoteAttr, ctx MappingContext) Attr {
	a := Attr{}

	switch {
	case r.HasPerm:
		a.Mode = r.Perm
	case ctx.IsMountRoot:
		a.Mode = os.ModeDir | 0555
	default:
		a.Mode = 0444
	}

	if r.HasOwner {
		a.UID, a.GID = r.UID, r.GID
	} else {
		a.UID, a.GID = ctx.MountUID, ctx.MountGID
	}

	if a.Mode.IsDir() {
		a.Nlink = 2
	} else {
		a.Nlink = 1
	}

	if r.HasSize {
		a.Size = r.Size
	}
	if r.HasSize && a.Size == 0 && !a.Mode.IsDir() && ctx.RemoteBasePath == procBasePath {
		a.Size = blockSize
	}

	a.BlockSize = blockSize
	a.Blocks = (a.Size + blockSize - 1) / blockSize

	if r.HasTimes {
		a.Atime = r.AccessTime
		a.Mtime = r.ModTime
		a.Ctime = r.ModTime
	} else {
		now := time.Now()
		a.Atime, a.Mtime, a.Ctime = now, now, now
	}

	return a
}

// Access mask bits, matching the POSIX access(2) convention the kernel
// bridge hands the callback layer (F_OK is the zero value: existence only).
const (
	MaskRead    uint32 = 4
	MaskWrite   uint32 = 2
	MaskExecute uint32 = 1
)

// CheckAccess implements the access-mask check: ownership picks which
// permission triad applies (user-bits if uid matches, else group-bits if
// gid matches, else other-bits), then every requested bit in mask must be
// set in that triad.
func CheckAccess(mode os.FileMode, fileUID, fileGID, uid, gid, mask uint32) bool {
	perm := uint32(mode.Perm())
	var bits uint32
	switch {
	case uid == fileUID:
		bits = (perm >> 6) & 0o7
	case gid == fileGID:
		bits = (perm >> 3) & 0o7
	default:
		bits = perm & 0o7
	}
	return mask&bits == mask
}
