package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewAppliesLevel(t *testing.T) {
	l := New(LoggingConfig{Level: "debug"})
	if l.entry.Logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("unexpected level: %s", l.entry.Logger.GetLevel())
	}
}

func TestNewDefaultsBadLevelToInfo(t *testing.T) {
	l := New(LoggingConfig{Level: "chatty"})
	if l.entry.Logger.GetLevel() != logrus.InfoLevel {
		t.Fatalf("unexpected level: %s", l.entry.Logger.GetLevel())
	}
}

func TestServiceFieldAttached(t *testing.T) {
	l := NewDefault("mintd")
	if got := l.entry.Data["service"]; got != "mintd" {
		t.Fatalf("unexpected service field: %v", got)
	}
}

func TestWithFieldChains(t *testing.T) {
	base := NewDefault("mintd")
	child := base.WithField("wallet", "abc")

	if _, ok := base.entry.Data["wallet"]; ok {
		t.Fatal("WithField must not mutate the parent logger")
	}
	if got := child.entry.Data["wallet"]; got != "abc" {
		t.Fatalf("unexpected field value: %v", got)
	}
}

func TestJSONFormatSelected(t *testing.T) {
	l := New(LoggingConfig{Format: "json"})
	if _, ok := l.entry.Logger.Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("expected JSON formatter, got %T", l.entry.Logger.Formatter)
	}
}
