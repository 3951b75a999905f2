package logging

import "testing"

func TestNewLoggerWithService(t *testing.T) {
	l := NewLoggerWithService("almanac")
	if l == nil {
		t.Fatalf("expected non-nil logger")
	}
	entry := l.WithFields(Fields{"sign": "aries", "period": "daily"})
	if entry == nil {
		t.Fatalf("expected non-nil entry")
	}
}
