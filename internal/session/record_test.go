package session

import "testing"

func TestConfigAddrDefaultsPort22(t *testing.T) {
	c := Config{Host: "example.com"}
	if got := c.addr(); got != "example.com:22" {
		t.Fatalf("expected default port 22, got %q", got)
	}
}

func TestConfigAddrHonorsExplicitPort(t *testing.T) {
	c := Config{Host: "example.com", Port: "2222"}
	if got := c.addr(); got != "example.com:2222" {
		t.Fatalf("expected explicit port, got %q", got)
	}
}

func TestNewRecordDefaultsRemoteBasePath(t *testing.T) {
	r := New(Config{Host: "example.com"}, nil)
	if r.RemoteBasePath != "/" {
		t.Fatalf("expected default remote base path \"/\", got %q", r.RemoteBasePath)
	}
}

func TestHandleTablePutGetDelete(t *testing.T) {
	r := New(Config{Host: "example.com"}, nil)
	ht := r.Handles()

	id := ht.Put("value-a")
	v, ok := ht.Get(id)
	if !ok || v != "value-a" {
		t.Fatalf("expected to retrieve stored value, got %v ok=%v", v, ok)
	}

	ht.Replace(id, "value-b")
	v, ok = ht.Get(id)
	if !ok || v != "value-b" {
		t.Fatalf("expected replaced value, got %v ok=%v", v, ok)
	}

	ht.Delete(id)
	if _, ok := ht.Get(id); ok {
		t.Fatalf("expected handle to be gone after delete")
	}
}

func TestHandleTableIDsAreUnique(t *testing.T) {
	r := New(Config{Host: "example.com"}, nil)
	ht := r.Handles()
	a := ht.Put("a")
	b := ht.Put("b")
	if a == b {
		t.Fatalf("expected distinct handle ids, got %d and %d", a, b)
	}
}

func TestRecordNotConnectedBeforeConnect(t *testing.T) {
	r := New(Config{Host: "example.com"}, nil)
	if r.Connected() {
		t.Fatalf("expected fresh record to be disconnected")
	}
	if _, err := r.SFTP(); err == nil {
		t.Fatalf("expected error retrieving SFTP client before connect")
	}
}

func TestDisconnectIdempotentOnIdleRecord(t *testing.T) {
	r := New(Config{Host: "example.com"}, nil)
	if err := r.Disconnect(); err != nil {
		t.Fatalf("expected idle disconnect to be a no-op, got %v", err)
	}
}
