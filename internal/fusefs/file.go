package fusefs

import (
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/hanwen/go-fuse/v2/fuse/nodefs"
	"github.com/pkg/sftp"

	"github.com/remotefs/remotefs/internal/metrics"
	"github.com/remotefs/remotefs/internal/posix"
	"github.com/remotefs/remotefs/internal/session"
	"github.com/remotefs/remotefs/internal/sftpops"
)

// remoteFile adapts an open *sftp.File to nodefs.File, routing every call
// through the SFTP Operation Surface's read/write loops
// (internal/sftpops) instead of talking to the handle directly, so the
// same accumulation and would-block retry semantics apply whether the
// call originated from the kernel or from a test.
type remoteFile struct {
	nodefs.File

	handle   *sftp.File
	handleID uint64
	record   *session.Record
	path     string
	mapCtx   posix.MappingContext
	metrics  *metrics.Collector
}

// newRemoteFile registers handle in the Connection Record's handle table
// so the truncate fallback can close-and-replace it by identifier, then
// wraps it for the kernel.
func newRemoteFile(handle *sftp.File, record *session.Record, path string, mapCtx posix.MappingContext, m *metrics.Collector) *remoteFile {
	return &remoteFile{
		File:     nodefs.NewDefaultFile(),
		handle:   handle,
		handleID: record.Handles().Put(handle),
		record:   record,
		path:     path,
		mapCtx:   mapCtx,
		metrics:  m,
	}
}

func (f *remoteFile) observe(op string, err error) fuse.Status {
	status := statusFromErr(err)
	if f.metrics != nil {
		f.metrics.ObserveOp(op, status == fuse.OK)
	}
	return status
}

func (f *remoteFile) Read(dest []byte, off int64) (fuse.ReadResult, fuse.Status) {
	data, err := sftpops.ReadAt(f.handle, off, len(dest))
	if status := f.observe("read", err); status != fuse.OK {
		return nil, status
	}
	return fuse.ReadResultData(data), fuse.OK
}

func (f *remoteFile) Write(data []byte, off int64) (uint32, fuse.Status) {
	n, err := sftpops.WriteAt(f.handle, off, data)
	if status := f.observe("write", err); status != fuse.OK {
		return uint32(n), status
	}
	return uint32(n), fuse.OK
}

func (f *remoteFile) Release() {
	_ = sftpops.Close(f.handle)
	f.record.Handles().Delete(f.handleID)
}

func (f *remoteFile) Flush() fuse.Status {
	return fuse.OK
}

func (f *remoteFile) Fsync(flags int) fuse.Status {
	return f.observe("fsync", sftpops.Fsync(f.handle))
}

// Truncate implements the handle-based truncate transition: the handle is
// closed, the path is truncated (with its own setstat-then-rewrite
// fallback), and a fresh read+write handle is reopened and swapped in
// under the same identifier, invisibly to the kernel's file descriptor.
func (f *remoteFile) Truncate(size uint64) fuse.Status {
	client, err := f.record.SFTP()
	if err != nil {
		return toStatus(posix.ENotConn)
	}
	if status := f.observe("truncate", sftpops.TruncateReplacingHandle(client, f.record.Handles(), f.handleID, f.path, int64(size))); status != fuse.OK {
		return status
	}
	if replaced, ok := f.record.Handles().Get(f.handleID); ok {
		if h, ok := replaced.(*sftp.File); ok {
			f.handle = h
		}
	}
	return fuse.OK
}

func (f *remoteFile) GetAttr(out *fuse.Attr) fuse.Status {
	client, err := f.record.SFTP()
	if err != nil {
		return toStatus(posix.ENotConn)
	}
	attr, err := sftpops.Stat(client, f.path, f.mapCtx)
	if status := f.observe("getattr", err); status != fuse.OK {
		return status
	}
	*out = toFuseAttr(attr)
	return fuse.OK
}
