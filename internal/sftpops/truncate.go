package sftpops

import (
	"io"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"

	"github.com/remotefs/remotefs/internal/posix"
)

// Truncate implements the truncate-by-path operation's two-strategy
// fallback. The first strategy, a bare remote SETSTAT, is attempted first;
// servers that reject SETSTAT-only-size (some SFTPv3 implementations
// require the file to be open) fall back to truncateByRewrite.
func Truncate(client *sftp.Client, path string, size int64) error {
	err := SetstatSize(client, path, size)
	if err == nil {
		return nil
	}
	if posix.TranslateError(err) != posix.EInval && posix.TranslateError(err) != posix.ENoSys {
		return err
	}
	return truncateByRewrite(client, path, size)
}

// truncateByRewrite implements the read-and-rewrite fallback: open the
// source for read, buffer min(target size, current size) bytes, reopen
// with truncate+write+create, rewrite the buffer. O(new-size) in memory;
// acceptable because truncate to a non-zero size through this path is
// rare.
func truncateByRewrite(client *sftp.Client, path string, size int64) error {
	src, err := client.Open(path)
	if err != nil {
		return errors.Wrapf(posix.TranslateError(err), "truncate %q: opening source for read", path)
	}
	fi, err := src.Stat()
	if err != nil {
		_ = src.Close()
		return errors.Wrapf(posix.TranslateError(err), "truncate %q: stat before rewrite", path)
	}

	keep := size
	if fi.Size() < keep {
		keep = fi.Size()
	}
	buf := make([]byte, keep)
	if keep > 0 {
		if _, err := io.ReadFull(src, buf); err != nil {
			_ = src.Close()
			return errors.Wrapf(posix.TranslateError(err), "truncate %q: buffering", path)
		}
	}
	if err := src.Close(); err != nil {
		return errors.Wrapf(posix.TranslateError(err), "truncate %q: closing source", path)
	}

	flag, _ := (OpenFlags{Access: ReadWrite, Truncate: true, Create: true}).ToRemote()
	dst, err := client.OpenFile(path, flag)
	if err != nil {
		return errors.Wrapf(posix.TranslateError(err), "truncate %q: reopen truncate+write+create", path)
	}
	defer dst.Close()

	if len(buf) > 0 {
		if _, err := dst.Write(buf); err != nil {
			return errors.Wrapf(posix.TranslateError(err), "truncate %q: rewriting buffer", path)
		}
	}
	if size > int64(len(buf)) {
		if err := dst.Truncate(size); err != nil {
			return errors.Wrapf(posix.TranslateError(err), "truncate %q: extending past buffer", path)
		}
	}
	return nil
}

// handleReplacer is the narrow slice of session.Record's handle table that
// the truncate fallback needs: look up the existing handle to close it,
// then swap in the reopened one under the same identifier.
type handleReplacer interface {
	Get(id uint64) (any, bool)
	Replace(id uint64, value any)
}

// TruncateReplacingHandle implements the handle-based truncate variant:
// close the caller's existing handle first, perform the path-based
// truncate (with its own setstat-then-rewrite fallback), then reopen
// read+write and replace the handle table entry in place so the
// identifier the FUSE layer handed out to the kernel stays valid across
// the substitution and subsequent operations on it still work.
func TruncateReplacingHandle(client *sftp.Client, handles handleReplacer, id uint64, path string, size int64) error {
	if old, ok := handles.Get(id); ok {
		if oldHandle, ok := old.(fileHandle); ok {
			_ = oldHandle.Close()
		}
	}

	if err := Truncate(client, path, size); err != nil {
		return err
	}

	flag, _ := (OpenFlags{Access: ReadWrite}).ToRemote()
	f, err := client.OpenFile(path, flag)
	if err != nil {
		return errors.Wrapf(posix.TranslateError(err), "truncate %q: reopen read+write", path)
	}

	handles.Replace(id, f)
	return nil
}
