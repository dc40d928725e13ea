package mountopts

import "testing"

func TestParse_KeyValuePairs(t *testing.T) {
	opts := Parse([]string{"host=example.com,user=alice,port=2222"})
	if opts["host"] != "example.com" || opts["user"] != "alice" || opts["port"] != "2222" {
		t.Fatalf("unexpected parse result: %+v", opts)
	}
}

func TestParse_BareKeyIsFlagStyle(t *testing.T) {
	opts := Parse([]string{"readonly,allow_other"})
	if !Has(opts, "readonly") || !Has(opts, "allow_other") {
		t.Fatalf("expected bare keys present, got %+v", opts)
	}
	if v, _ := Get(opts, "readonly"); v != "" {
		t.Fatalf("expected bare key to have empty value, got %q", v)
	}
}

func TestParse_MultipleDashOAccumulate(t *testing.T) {
	opts := Parse([]string{"host=example.com", "user=alice"})
	if opts["host"] != "example.com" || opts["user"] != "alice" {
		t.Fatalf("unexpected parse result: %+v", opts)
	}
}

func TestParse_LaterValueWins(t *testing.T) {
	opts := Parse([]string{"port=22", "port=2222"})
	if opts["port"] != "2222" {
		t.Fatalf("expected later value to win, got %q", opts["port"])
	}
}

func TestGetDefault_FallsBackWhenAbsent(t *testing.T) {
	opts := Parse([]string{"host=example.com"})
	if got := GetDefault(opts, "port", "22"); got != "22" {
		t.Fatalf("expected fallback 22, got %q", got)
	}
}
