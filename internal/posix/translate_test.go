package posix

import (
	"os"
	"testing"

	"github.com/pkg/sftp"
)

func TestTranslateError_Nil(t *testing.T) {
	if got := TranslateError(nil); got != OK {
		t.Fatalf("expected OK for nil error, got %v", got)
	}
}

func TestTranslateError_StatusCodes(t *testing.T) {
	cases := []struct {
		code uint32
		want Errno
	}{
		{sftp.ErrSSHFxOk, OK},
		{sftp.ErrSSHFxEOF, OK},
		{sftp.ErrSSHFxNoSuchFile, ENoEnt},
		{sftp.ErrSSHFxPermissionDenied, EPerm},
		{sftp.ErrSSHFxOpUnsupported, ENoSys},
		{sftp.ErrSSHFxInvalidHandle, EBadF},
		{sftp.ErrSSHFxFileAlreadyExists, EExist},
		{sftp.ErrSSHFxWriteProtect, EROFS},
		{sftp.ErrSSHFxNoSpaceOnFilesystem, ENoSpc},
		{sftp.ErrSSHFxDirNotEmpty, ENotEmpty},
		{sftp.ErrSSHFxNotADirectory, ENotDir},
		{sftp.ErrSSHFxInvalidParameter, EInval},
		{sftp.ErrSSHFxLinkLoop, ELoop},
		{sftp.ErrSSHFxNoConnection, EIO},
		{sftp.ErrSSHFxConnectionLost, EIO},
		{sftp.ErrSSHFxBadMessage, EIO},
	}
	for _, c := range cases {
		err := &sftp.StatusError{Code: c.code}
		if got := TranslateError(err); got != c.want {
			t.Errorf("status %d: got %v, want %v", c.code, got, c.want)
		}
	}
}

func TestTranslateError_UnknownStatusDefaultsToEIO(t *testing.T) {
	err := &sftp.StatusError{Code: 9999}
	if got := TranslateError(err); got != EIO {
		t.Fatalf("expected EIO for unknown status, got %v", got)
	}
}

func TestTranslateError_WrappedPathError(t *testing.T) {
	err := &os.PathError{Op: "open", Path: "/x", Err: os.ErrNotExist}
	if got := TranslateError(err); got != ENoEnt {
		t.Fatalf("expected ENoEnt for wrapped os.ErrNotExist, got %v", got)
	}
}

func TestLooksLikeWouldBlock(t *testing.T) {
	if !looksLikeWouldBlock("resource temporarily unavailable: EAGAIN") {
		t.Fatalf("expected EAGAIN-flavored message to be detected as would-block")
	}
	if looksLikeWouldBlock("disk full") {
		t.Fatalf("did not expect unrelated message to be treated as would-block")
	}
}

func TestIsWouldBlock_NonStatusError(t *testing.T) {
	if IsWouldBlock(os.ErrNotExist) {
		t.Fatalf("did not expect a non-StatusError to be treated as would-block")
	}
}
