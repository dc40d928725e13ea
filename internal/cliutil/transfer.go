package cliutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"

	"github.com/remotefs/remotefs/internal/posix"
	"github.com/remotefs/remotefs/internal/registry"
	"github.com/remotefs/remotefs/internal/session"
	"github.com/remotefs/remotefs/internal/sftpops"
)

// Plan is the resolved combination of two classified CLI arguments,
// ready to execute.
type Plan struct {
	Src, Dst Location
	Recurse  bool
}

// Kind names which of the four local/remote combinations a Plan is.
type Kind int

const (
	LocalToLocal Kind = iota
	LocalToRemote
	RemoteToLocal
	RemoteToRemote
)

func (p Plan) Kind() Kind {
	switch {
	case !p.Src.IsRemote && !p.Dst.IsRemote:
		return LocalToLocal
	case !p.Src.IsRemote && p.Dst.IsRemote:
		return LocalToRemote
	case p.Src.IsRemote && !p.Dst.IsRemote:
		return RemoteToLocal
	default:
		return RemoteToRemote
	}
}

// sessionFor dials a Connection Record for a classified remote Location
// using its mount's registered connection parameters.
func sessionFor(reg *registry.Registry, loc Location) (*session.Record, error) {
	entry, ok, err := reg.Lookup(loc.MountPoint)
	if err != nil {
		return nil, errors.Wrapf(err, "looking up mount %q", loc.MountPoint)
	}
	if !ok {
		return nil, errors.Errorf("mount %q is not registered (is it mounted?)", loc.MountPoint)
	}
	if entry.Host == "" {
		return nil, errors.Errorf("mount %q has no stored credentials; reconnect by remounting", loc.MountPoint)
	}

	rec := session.New(session.Config{
		Host:           entry.Host,
		Port:           entry.Port,
		User:           entry.User,
		RemoteBasePath: entry.RemotePath,
		Auth: session.AuthConfig{
			Password: entry.Password,
			KeyPath:  entry.KeyPath,
		},
	}, nil)
	if err := rec.Connect(); err != nil {
		return nil, errors.Wrapf(err, "connecting to mount %q", loc.MountPoint)
	}
	return rec, nil
}

// resolveDestination appends the source basename when dst names an
// existing directory, local or remote.
func resolveDestination(client *sftp.Client, dst Location, srcBase string) (Location, error) {
	if dst.IsRemote {
		if client == nil {
			return dst, nil
		}
		if info, err := client.Stat(dst.RemotePath); err == nil && info.IsDir() {
			dst.RemotePath = filepath.Join(dst.RemotePath, srcBase)
		}
		return dst, nil
	}
	if info, err := os.Stat(dst.LocalPath); err == nil && info.IsDir() {
		dst.LocalPath = filepath.Join(dst.LocalPath, srcBase)
	}
	return dst, nil
}

// Copy implements remotefs-cp's dispatch across the four combinations.
// recurse must be set for a directory source; mv never sets it (directory
// moves are rejected by the caller before Move is invoked).
func Copy(reg *registry.Registry, plan Plan, verbose bool) error {
	switch plan.Kind() {
	case LocalToLocal:
		return runSystemCopy(plan.Src.LocalPath, plan.Dst.LocalPath, plan.Recurse, verbose)

	case LocalToRemote:
		rec, err := sessionFor(reg, plan.Dst)
		if err != nil {
			return err
		}
		defer rec.Disconnect()
		client, _ := rec.SFTP()
		dst, err := resolveDestination(client, plan.Dst, filepath.Base(plan.Src.LocalPath))
		if err != nil {
			return err
		}
		return copyLocalToRemote(client, plan.Src.LocalPath, dst.RemotePath, plan.Recurse, verbose)

	case RemoteToLocal:
		rec, err := sessionFor(reg, plan.Src)
		if err != nil {
			return err
		}
		defer rec.Disconnect()
		client, _ := rec.SFTP()
		dst, err := resolveDestination(nil, plan.Dst, filepath.Base(plan.Src.RemotePath))
		if err != nil {
			return err
		}
		return copyRemoteToLocal(client, plan.Src.RemotePath, dst.LocalPath, plan.Recurse, verbose)

	default: // RemoteToRemote
		if plan.Src.MountPoint != plan.Dst.MountPoint {
			return errors.New("remote-to-remote copy requires both paths to be in the same mount")
		}
		rec, err := sessionFor(reg, plan.Src)
		if err != nil {
			return err
		}
		defer rec.Disconnect()
		client, _ := rec.SFTP()
		dst, err := resolveDestination(client, plan.Dst, filepath.Base(plan.Src.RemotePath))
		if err != nil {
			return err
		}
		return copyRemoteToRemote(client, plan.Src.RemotePath, dst.RemotePath, plan.Recurse, verbose)
	}
}

// Move implements remotefs-mv's dispatch. Directory moves are rejected by
// the caller, which refers the user to `cp -r` plus `rm`, before Move is
// ever invoked.
func Move(reg *registry.Registry, plan Plan, verbose bool) error {
	switch plan.Kind() {
	case LocalToLocal:
		return runSystemMove(plan.Src.LocalPath, plan.Dst.LocalPath)

	case RemoteToRemote:
		if plan.Src.MountPoint != plan.Dst.MountPoint {
			return errors.New("remote-to-remote move requires both paths to be in the same mount")
		}
		rec, err := sessionFor(reg, plan.Src)
		if err != nil {
			return err
		}
		defer rec.Disconnect()
		client, _ := rec.SFTP()
		dst, err := resolveDestination(client, plan.Dst, filepath.Base(plan.Src.RemotePath))
		if err != nil {
			return err
		}
		return sftpops.MoveFile(client, plan.Src.RemotePath, dst.RemotePath)

	case LocalToRemote:
		if err := Copy(reg, plan, verbose); err != nil {
			return err
		}
		return os.Remove(plan.Src.LocalPath)

	default: // RemoteToLocal
		if err := Copy(reg, plan, verbose); err != nil {
			return err
		}
		rec, err := sessionFor(reg, plan.Src)
		if err != nil {
			return err
		}
		defer rec.Disconnect()
		client, _ := rec.SFTP()
		return sftpops.Unlink(client, plan.Src.RemotePath)
	}
}

// IsRemoteDirectory stats a classified remote Location to tell whether it
// names a directory, used by remotefs-mv to reject directory moves before
// any transfer is attempted.
// Any error (unregistered mount, connect failure, missing path) is treated
// as "not a directory" and left for Move to report properly.
func IsRemoteDirectory(reg *registry.Registry, loc Location) bool {
	rec, err := sessionFor(reg, loc)
	if err != nil {
		return false
	}
	defer rec.Disconnect()
	client, _ := rec.SFTP()
	if client == nil {
		return false
	}
	info, err := client.Stat(loc.RemotePath)
	return err == nil && info.IsDir()
}

func runSystemCopy(src, dst string, recurse, verbose bool) error {
	args := []string{}
	if recurse {
		args = append(args, "-r")
	}
	if verbose {
		args = append(args, "-v")
	}
	args = append(args, src, dst)
	cmd := exec.Command("cp", args...)
	cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
	return cmd.Run()
}

func runSystemMove(src, dst string) error {
	cmd := exec.Command("mv", src, dst)
	cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
	return cmd.Run()
}

func copyLocalToRemote(client *sftp.Client, localPath, remotePath string, recurse, verbose bool) error {
	info, err := os.Stat(localPath)
	if err != nil {
		return errors.Wrapf(err, "stating %q", localPath)
	}
	if info.IsDir() {
		if !recurse {
			return errors.New("cp: omitting directory (specify -r to copy directories)")
		}
		if err := sftpops.Mkdir(client, remotePath, info.Mode().Perm()); err != nil {
			if cause, ok := errors.Cause(err).(posix.Errno); !ok || cause != posix.EExist {
				return err
			}
		}
		entries, err := os.ReadDir(localPath)
		if err != nil {
			return errors.Wrapf(err, "reading directory %q", localPath)
		}
		for _, e := range entries {
			if verbose {
				fmt.Println(filepath.Join(localPath, e.Name()))
			}
			if err := copyLocalToRemote(client, filepath.Join(localPath, e.Name()), filepath.Join(remotePath, e.Name()), recurse, verbose); err != nil {
				return err
			}
		}
		return nil
	}
	return sftpops.UploadFile(client, localPath, remotePath)
}

func copyRemoteToLocal(client *sftp.Client, remotePath, localPath string, recurse, verbose bool) error {
	info, err := client.Stat(remotePath)
	if err != nil {
		return errors.Wrapf(err, "stating %q", remotePath)
	}
	if info.IsDir() {
		if !recurse {
			return errors.New("cp: omitting directory (specify -r to copy directories)")
		}
		if err := os.MkdirAll(localPath, info.Mode().Perm()|0700); err != nil {
			return errors.Wrapf(err, "creating directory %q", localPath)
		}
		entries, err := client.ReadDir(remotePath)
		if err != nil {
			return errors.Wrapf(err, "reading directory %q", remotePath)
		}
		for _, e := range entries {
			if e.Name() == "." || e.Name() == ".." {
				continue
			}
			if verbose {
				fmt.Println(filepath.Join(remotePath, e.Name()))
			}
			if err := copyRemoteToLocal(client, filepath.Join(remotePath, e.Name()), filepath.Join(localPath, e.Name()), recurse, verbose); err != nil {
				return err
			}
		}
		return nil
	}
	return sftpops.DownloadFile(client, remotePath, localPath)
}

func copyRemoteToRemote(client *sftp.Client, srcPath, dstPath string, recurse, verbose bool) error {
	info, err := client.Stat(srcPath)
	if err != nil {
		return errors.Wrapf(err, "stating %q", srcPath)
	}
	if info.IsDir() {
		if !recurse {
			return errors.New("cp: omitting directory (specify -r to copy directories)")
		}
		if err := sftpops.Mkdir(client, dstPath, info.Mode().Perm()); err != nil {
			return err
		}
		entries, err := client.ReadDir(srcPath)
		if err != nil {
			return errors.Wrapf(err, "reading directory %q", srcPath)
		}
		for _, e := range entries {
			if e.Name() == "." || e.Name() == ".." {
				continue
			}
			if verbose {
				fmt.Println(filepath.Join(srcPath, e.Name()))
			}
			if err := copyRemoteToRemote(client, filepath.Join(srcPath, e.Name()), filepath.Join(dstPath, e.Name()), recurse, verbose); err != nil {
				return err
			}
		}
		return nil
	}

	tmp, err := os.CreateTemp("", "remotefs-cp-*")
	if err != nil {
		return errors.Wrap(err, "creating temp staging file")
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := sftpops.DownloadFile(client, srcPath, tmpPath); err != nil {
		return err
	}
	return sftpops.UploadFile(client, tmpPath, dstPath)
}
