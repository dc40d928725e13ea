package fusefs

import (
	"golang.org/x/sys/unix"

	"github.com/remotefs/remotefs/internal/sftpops"
)

// openFlagsFromRaw decodes the raw POSIX open(2) flag word the kernel
// passes into Open/Create into the operation surface's own flag struct.
func openFlagsFromRaw(raw uint32) sftpops.OpenFlags {
	var of sftpops.OpenFlags
	switch int(raw) & unix.O_ACCMODE {
	case unix.O_WRONLY:
		of.Access = sftpops.WriteOnly
	case unix.O_RDWR:
		of.Access = sftpops.ReadWrite
	default:
		of.Access = sftpops.ReadOnly
	}
	of.Append = int(raw)&unix.O_APPEND != 0
	of.Truncate = int(raw)&unix.O_TRUNC != 0
	of.Create = int(raw)&unix.O_CREAT != 0
	of.Exclusive = int(raw)&unix.O_EXCL != 0
	return of
}
