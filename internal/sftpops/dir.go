package sftpops

import (
	"os"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"

	"github.com/remotefs/remotefs/internal/posix"
)

// DirEntry is one entry returned by ReadDir: name plus enough of its
// attributes for the filesystem callback layer to answer readdir-plus
// style queries without a second round trip.
type DirEntry struct {
	Name string
	Attr posix.Attr
}

// ReadDir implements the readdir operation as a single remote directory
// listing request, translated entry-by-entry through the attribute mapper.
// Grounded on restic's fuse/dir.go, which also materializes the full
// listing up front rather than streaming it.
func ReadDir(client *sftp.Client, path string, ctx posix.MappingContext) ([]DirEntry, error) {
	infos, err := client.ReadDir(path)
	if err != nil {
		return nil, errors.Wrapf(posix.TranslateError(err), "readdir %q", path)
	}

	entries := make([]DirEntry, 0, len(infos))
	for _, fi := range infos {
		entryCtx := ctx
		entryCtx.IsMountRoot = false
		entries = append(entries, DirEntry{
			Name: fi.Name(),
			Attr: posix.MapAttr(toRemoteAttr(fi), entryCtx),
		})
	}
	return entries, nil
}

// EnsureDirMode returns mode with the directory bit set, substituting 0755
// when mode is zero (meaning "use the process default"). Mkdir does not
// call it; it passes the caller's mode through unchanged.
func EnsureDirMode(mode os.FileMode) os.FileMode {
	if mode == 0 {
		return 0755 | os.ModeDir
	}
	return mode | os.ModeDir
}
