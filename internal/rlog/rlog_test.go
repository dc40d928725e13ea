package rlog

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_DefaultsToInfoOnUnknownLevel(t *testing.T) {
	log := New("not-a-level")
	if log.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info level default, got %v", log.GetLevel())
	}
}

func TestNew_HonorsValidLevel(t *testing.T) {
	log := New("debug")
	if log.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %v", log.GetLevel())
	}
}

func TestWithOp_SetsOpField(t *testing.T) {
	log := New("info")
	entry := WithOp(log, "read")
	if entry.Data["op"] != "read" {
		t.Fatalf("expected op field set, got %+v", entry.Data)
	}
}
