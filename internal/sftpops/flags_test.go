package sftpops

import (
	"os"
	"testing"
)

func TestToRemote_ReadOnlyDropsTruncate(t *testing.T) {
	flag, ignored := OpenFlags{Access: ReadOnly, Truncate: true}.ToRemote()
	if !ignored {
		t.Fatalf("expected truncate to be reported ignored on a read-only open")
	}
	if flag&os.O_TRUNC != 0 {
		t.Fatalf("did not expect O_TRUNC to be forwarded for a read-only open")
	}
}

func TestToRemote_WriteTruncateForwarded(t *testing.T) {
	flag, ignored := OpenFlags{Access: WriteOnly, Truncate: true}.ToRemote()
	if ignored {
		t.Fatalf("did not expect truncate to be ignored on a writable open")
	}
	if flag&os.O_TRUNC == 0 {
		t.Fatalf("expected O_TRUNC to be forwarded")
	}
	if flag&os.O_WRONLY == 0 {
		t.Fatalf("expected O_WRONLY to be set")
	}
}

func TestToRemote_AppendAndCreateAndExclusive(t *testing.T) {
	flag, _ := OpenFlags{Access: ReadWrite, Append: true, Create: true, Exclusive: true}.ToRemote()
	for _, bit := range []int{os.O_RDWR, os.O_APPEND, os.O_CREATE, os.O_EXCL} {
		if flag&bit == 0 {
			t.Fatalf("expected flag bit %d set in %#o", bit, flag)
		}
	}
}

func TestCreateFlagsEquivalentToOpenCreateWriteTruncate(t *testing.T) {
	flag, ignored := CreateFlags().ToRemote()
	if ignored {
		t.Fatalf("create flags should never report truncate ignored")
	}
	for _, bit := range []int{os.O_WRONLY, os.O_CREATE, os.O_TRUNC} {
		if flag&bit == 0 {
			t.Fatalf("expected flag bit %d set in %#o", bit, flag)
		}
	}
}
