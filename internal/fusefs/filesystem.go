package fusefs

import (
	"os"
	"path"
	"strings"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/hanwen/go-fuse/v2/fuse/nodefs"
	"github.com/hanwen/go-fuse/v2/fuse/pathfs"
	"github.com/pkg/sftp"
	"github.com/sirupsen/logrus"

	"github.com/remotefs/remotefs/internal/metrics"
	"github.com/remotefs/remotefs/internal/posix"
	"github.com/remotefs/remotefs/internal/registry"
	"github.com/remotefs/remotefs/internal/session"
	"github.com/remotefs/remotefs/internal/sftpops"
)

// FS is the pathfs.FileSystem implementation backing one mount: the
// fourteen POSIX callbacks, each translating between the kernel's path
// and flag vocabulary and the SFTP Operation Surface's typed calls.
//
// FS carries its Connection Record as an explicit field rather than a
// package global, so a test can construct one against a fake session
// without touching any shared state.
type FS struct {
	pathfs.FileSystem

	record     *session.Record
	mountPoint string
	registry   *registry.Registry
	metrics    *metrics.Collector
	log        *logrus.Entry

	// ReadOnly rejects every mutating callback with EROFS, set from
	// the mount command's -o readonly option.
	ReadOnly bool
}

// New constructs a filesystem callback layer over an already-built
// Connection Record. Connect() is invoked from OnMount, matching the
// kernel's init-then-mount callback order.
func New(record *session.Record, mountPoint string, reg *registry.Registry, m *metrics.Collector, log *logrus.Entry) *FS {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &FS{
		FileSystem: pathfs.NewDefaultFileSystem(),
		record:     record,
		mountPoint: mountPoint,
		registry:   reg,
		metrics:    m,
		log:        log,
	}
}

func (fs *FS) remotePath(name string) string {
	if name == "" || name == "." {
		return fs.record.RemoteBasePath
	}
	return path.Join(fs.record.RemoteBasePath, name)
}

func (fs *FS) mappingContext(name string) posix.MappingContext {
	return posix.MappingContext{
		RemoteBasePath: fs.record.RemoteBasePath,
		IsMountRoot:    name == "" || name == ".",
	}
}

func (fs *FS) client() (*sftp.Client, fuse.Status) {
	client, err := fs.record.SFTP()
	if err != nil {
		return nil, toStatus(posix.ENotConn)
	}
	return client, fuse.OK
}

func (fs *FS) observe(op string, err error) fuse.Status {
	return fs.observeStatus(op, statusFromErr(err))
}

func (fs *FS) observeStatus(op string, status fuse.Status) fuse.Status {
	if fs.metrics != nil {
		fs.metrics.ObserveOp(op, status == fuse.OK)
	}
	return status
}

// OnMount connects the session, then registers the mount so cp/mv can
// discover it.
func (fs *FS) OnMount(nodeFS *pathfs.PathNodeFs) {
	if err := fs.record.Connect(); err != nil {
		fs.log.WithError(err).Error("mount: session connect failed")
		return
	}
	if fs.registry != nil {
		entry := registry.MountEntry{
			MountPoint: fs.mountPoint,
			Host:       fs.record.Host,
			Port:       fs.record.Port,
			User:       fs.record.User,
			RemotePath: fs.record.RemoteBasePath,
			KeyPath:    fs.record.Auth.KeyPath,
			Password:   fs.record.Auth.Password,
		}
		if err := fs.registry.RegisterMount(entry); err != nil {
			fs.log.WithError(err).Warn("mount: registering mount entry failed")
		}
	}
}

// OnUnmount deregisters the mount, then disconnects the session.
func (fs *FS) OnUnmount() {
	if fs.registry != nil {
		if err := fs.registry.DeregisterMount(fs.mountPoint); err != nil {
			fs.log.WithError(err).Warn("unmount: deregistering mount entry failed")
		}
	}
	if err := fs.record.Disconnect(); err != nil {
		fs.log.WithError(err).Error("unmount: session disconnect failed")
	}
}

func (fs *FS) GetAttr(name string, context *fuse.Context) (*fuse.Attr, fuse.Status) {
	client, status := fs.client()
	if status != fuse.OK {
		return nil, status
	}
	attr, err := sftpops.Stat(client, fs.remotePath(name), fs.mappingContext(name))
	if status := fs.observe("getattr", err); status != fuse.OK {
		return nil, status
	}
	out := toFuseAttr(attr)
	return &out, fuse.OK
}

func (fs *FS) OpenDir(name string, context *fuse.Context) ([]fuse.DirEntry, fuse.Status) {
	client, status := fs.client()
	if status != fuse.OK {
		return nil, status
	}
	entries, err := sftpops.ReadDir(client, fs.remotePath(name), fs.mappingContext(name))
	if err != nil {
		// The observed wire behavior is that opendir against a
		// non-directory fails with precisely these two translated codes;
		// coerce them so the kernel sees ENOTDIR rather than a generic
		// not-supported/i-o-error.
		if errno := posix.TranslateError(err); errno == posix.ENoSys || errno == posix.EIO {
			return nil, fs.observeStatus("readdir", toStatus(posix.ENotDir))
		}
		return nil, fs.observe("readdir", err)
	}

	out := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		out = append(out, fuse.DirEntry{Name: e.Name, Mode: rawMode(e.Attr.Mode)})
	}
	return out, fs.observeStatus("readdir", fuse.OK)
}

func (fs *FS) Open(name string, flags uint32, context *fuse.Context) (nodefs.File, fuse.Status) {
	client, status := fs.client()
	if status != fuse.OK {
		return nil, status
	}
	of := openFlagsFromRaw(flags)
	if fs.ReadOnly && of.Access != sftpops.ReadOnly {
		return nil, toStatus(posix.EROFS)
	}
	remoteFlag, truncateIgnored := of.ToRemote()
	if truncateIgnored {
		fs.log.WithField("path", name).Warn("open: truncate requested on a read-only open, ignoring")
	}
	handle, err := sftpops.Open(client, fs.remotePath(name), remoteFlag)
	if err != nil {
		// Some servers answer "open a directory for writing" with
		// permission-denied or invalid-argument rather than is-a-directory;
		// stat once more and upgrade the error when that's what happened.
		if errno := posix.TranslateError(err); errno == posix.EPerm || errno == posix.EInval {
			if attr, statErr := sftpops.Stat(client, fs.remotePath(name), fs.mappingContext(name)); statErr == nil && attr.Mode.IsDir() {
				return nil, fs.observeStatus("open", toStatus(posix.EIsDir))
			}
		}
		return nil, fs.observe("open", err)
	}
	fs.observeStatus("open", fuse.OK)
	return newRemoteFile(handle, fs.record, fs.remotePath(name), fs.mappingContext(name), fs.metrics), fuse.OK
}

func (fs *FS) Create(name string, flags uint32, mode uint32, context *fuse.Context) (nodefs.File, fuse.Status) {
	if fs.ReadOnly {
		return nil, toStatus(posix.EROFS)
	}
	client, status := fs.client()
	if status != fuse.OK {
		return nil, status
	}
	handle, err := sftpops.Create(client, fs.remotePath(name))
	if status := fs.observe("create", err); status != fuse.OK {
		return nil, status
	}
	if mode != 0 {
		_ = client.Chmod(fs.remotePath(name), os.FileMode(mode).Perm())
	}
	return newRemoteFile(handle, fs.record, fs.remotePath(name), fs.mappingContext(name), fs.metrics), fuse.OK
}

func (fs *FS) Access(name string, mode uint32, context *fuse.Context) fuse.Status {
	client, status := fs.client()
	if status != fuse.OK {
		return status
	}
	return fs.observe("access", sftpops.Access(client, fs.remotePath(name), fs.mappingContext(name), mode, context.Owner.Uid, context.Owner.Gid))
}

func (fs *FS) Mkdir(name string, mode uint32, context *fuse.Context) fuse.Status {
	if fs.ReadOnly {
		return toStatus(posix.EROFS)
	}
	client, status := fs.client()
	if status != fuse.OK {
		return status
	}
	return fs.observe("mkdir", sftpops.Mkdir(client, fs.remotePath(name), os.FileMode(mode).Perm()))
}

func (fs *FS) Rmdir(name string, context *fuse.Context) fuse.Status {
	if fs.ReadOnly {
		return toStatus(posix.EROFS)
	}
	client, status := fs.client()
	if status != fuse.OK {
		return status
	}
	return fs.observe("rmdir", sftpops.Rmdir(client, fs.remotePath(name)))
}

func (fs *FS) Unlink(name string, context *fuse.Context) fuse.Status {
	if fs.ReadOnly {
		return toStatus(posix.EROFS)
	}
	client, status := fs.client()
	if status != fuse.OK {
		return status
	}
	return fs.observe("unlink", sftpops.Unlink(client, fs.remotePath(name)))
}

func (fs *FS) Rename(oldName, newName string, context *fuse.Context) fuse.Status {
	if fs.ReadOnly {
		return toStatus(posix.EROFS)
	}
	client, status := fs.client()
	if status != fuse.OK {
		return status
	}
	return fs.observe("rename", sftpops.Rename(client, fs.remotePath(oldName), fs.remotePath(newName)))
}

func (fs *FS) Truncate(name string, size uint64, context *fuse.Context) fuse.Status {
	if fs.ReadOnly {
		return toStatus(posix.EROFS)
	}
	client, status := fs.client()
	if status != fuse.OK {
		return status
	}
	return fs.observe("truncate", sftpops.Truncate(client, fs.remotePath(name), int64(size)))
}

func (fs *FS) String() string {
	return "remotefs(" + fs.record.Host + strings.TrimPrefix(fs.record.RemoteBasePath, "/") + ")"
}
