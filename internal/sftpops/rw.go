// Package sftpops is the SFTP Operation Surface: typed wrappers around the
// remote operations the filesystem callback layer needs, including the
// read/write loops with partial-transfer and retry semantics.
//
// Grounded on rclone's backend/sftp/sftp.go, which drives *sftp.File the
// same way (Open/OpenFile, then stream through it), generalized from
// rclone's whole-object semantics to the byte-range read()/write() calls
// a FUSE callback needs.
package sftpops

import (
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/remotefs/remotefs/internal/posix"
)

// ChunkSize is the recommended chunk budget for read/write loops: 64 KiB.
const ChunkSize = 64 * 1024

// WouldBlockRetryDelay is the sleep between would-block retries: ~10 ms.
const WouldBlockRetryDelay = 10 * time.Millisecond

// seekReadWriter is the narrow surface the read/write loops need from an
// open remote handle. *sftp.File satisfies it; tests inject fakes that
// simulate short reads/writes and would-block statuses without a live
// SFTP server.
type seekReadWriter interface {
	Seek(offset int64, whence int) (int64, error)
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// ReadAt seeks to offset, then repeatedly reads in ChunkSize pieces until
// length is filled, EOF is reached, or an error occurs. A would-block
// result sleeps and retries.
// The total bytes accumulated is returned even on EOF (a short read is not
// itself an error).
func ReadAt(f seekReadWriter, offset int64, length int) ([]byte, error) {
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "read: seek failed")
	}

	buf := make([]byte, 0, length)
	chunk := make([]byte, ChunkSize)
	for len(buf) < length {
		want := len(chunk)
		if remaining := length - len(buf); remaining < want {
			want = remaining
		}
		n, err := f.Read(chunk[:want])
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			if err == io.EOF {
				return buf, nil
			}
			if posix.IsWouldBlock(err) {
				time.Sleep(WouldBlockRetryDelay)
				continue
			}
			return buf, errors.Wrap(err, "read failed")
		}
		if n == 0 {
			// No error, no data: treat as EOF rather than spin.
			return buf, nil
		}
	}
	return buf, nil
}

// WriteAt seeks to offset, then repeatedly writes in ChunkSize pieces,
// accumulating short writes, retrying on would-block, and stopping early
// if the remote returns zero with no error.
func WriteAt(f seekReadWriter, offset int64, data []byte) (int, error) {
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return 0, errors.Wrap(err, "write: seek failed")
	}

	written := 0
	for written < len(data) {
		end := written + ChunkSize
		if end > len(data) {
			end = len(data)
		}
		n, err := f.Write(data[written:end])
		if n > 0 {
			written += n
		}
		if err != nil {
			if posix.IsWouldBlock(err) {
				time.Sleep(WouldBlockRetryDelay)
				continue
			}
			return written, errors.Wrap(err, "write failed")
		}
		if n == 0 {
			return written, nil
		}
	}
	return written, nil
}
