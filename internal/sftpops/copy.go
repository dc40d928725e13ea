package sftpops

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
)

// CopyBufferSize is the buffer used by the local<->remote copy helpers
// backing the cp/mv CLI tools.
const CopyBufferSize = 1 << 20 // 1 MiB, larger than the FUSE I/O chunk since these are whole-file transfers.

// UploadFile streams localPath up to remotePath over an established SFTP
// session, creating remotePath (truncating if it exists) and preserving
// the local file's permission bits. Grounded on rclone's backend/sftp.go
// Put, which drives io.Copy the same way against an *sftp.File.
func UploadFile(client *sftp.Client, localPath, remotePath string) (err error) {
	local, err := os.Open(localPath)
	if err != nil {
		return errors.Wrapf(err, "opening local file %q", localPath)
	}
	defer local.Close()

	info, err := local.Stat()
	if err != nil {
		return errors.Wrapf(err, "stating local file %q", localPath)
	}

	flag, _ := CreateFlags().ToRemote()
	remote, err := client.OpenFile(remotePath, flag)
	if err != nil {
		return errors.Wrapf(err, "creating remote file %q", remotePath)
	}
	defer func() {
		if cerr := remote.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "closing remote file")
		}
	}()

	if _, err = io.CopyBuffer(remote, local, make([]byte, CopyBufferSize)); err != nil {
		return errors.Wrapf(err, "uploading to %q", remotePath)
	}

	if err = client.Chmod(remotePath, info.Mode()); err != nil {
		return errors.Wrapf(err, "setting mode on %q", remotePath)
	}
	return nil
}

// DownloadFile streams remotePath down to localPath, creating localPath
// (truncating if it exists) and preserving the remote file's permission
// bits where the remote reported them.
func DownloadFile(client *sftp.Client, remotePath, localPath string) (err error) {
	remote, err := client.Open(remotePath)
	if err != nil {
		return errors.Wrapf(err, "opening remote file %q", remotePath)
	}
	defer remote.Close()

	info, err := remote.Stat()
	if err != nil {
		return errors.Wrapf(err, "stating remote file %q", remotePath)
	}

	mode := info.Mode()
	if mode == 0 {
		mode = 0644
	}
	local, err := os.OpenFile(localPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return errors.Wrapf(err, "creating local file %q", localPath)
	}
	defer func() {
		if cerr := local.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "closing local file")
		}
	}()

	if _, err = io.CopyBuffer(local, remote, make([]byte, CopyBufferSize)); err != nil {
		return errors.Wrapf(err, "downloading from %q", remotePath)
	}
	return nil
}

// MoveFile implements the move semantics cp/mv share for a remote-to-remote
// transfer: a single rename, which is atomic where the remote supports it.
func MoveFile(client *sftp.Client, oldPath, newPath string) error {
	return Rename(client, oldPath, newPath)
}
