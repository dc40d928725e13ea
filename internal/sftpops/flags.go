package sftpops

import "os"

// AccessMode is the POSIX open access mode: read, write, or both.
type AccessMode int

const (
	ReadOnly AccessMode = iota
	WriteOnly
	ReadWrite
)

// OpenFlags is the POSIX-side input to the open flag mapping: the access
// mode plus the independent append/truncate/create/exclusive bits.
type OpenFlags struct {
	Access    AccessMode
	Append    bool
	Truncate  bool
	Create    bool
	Exclusive bool
}

// ToRemote maps POSIX open flags onto the remote os.O_* flag set:
// truncate is forwarded only when the access mode includes write,
// otherwise it is dropped (the caller should log a warning in that case).
func (f OpenFlags) ToRemote() (flag int, truncateIgnored bool) {
	switch f.Access {
	case WriteOnly:
		flag = os.O_WRONLY
	case ReadWrite:
		flag = os.O_RDWR
	default:
		flag = os.O_RDONLY
	}

	if f.Append {
		flag |= os.O_APPEND
	}
	if f.Truncate {
		if f.Access == ReadOnly {
			truncateIgnored = true
		} else {
			flag |= os.O_TRUNC
		}
	}
	if f.Create {
		flag |= os.O_CREATE
	}
	if f.Exclusive {
		flag |= os.O_EXCL
	}
	return flag, truncateIgnored
}

// CreateFlags is the flag set equivalent to open with create+write+truncate.
func CreateFlags() OpenFlags {
	return OpenFlags{Access: WriteOnly, Create: true, Truncate: true}
}
