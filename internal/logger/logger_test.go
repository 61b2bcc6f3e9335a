package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_Fields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := fromCore(core).Named("posts").With("handler", "posts")

	log.Debug("like toggled", "post_id", "abc", "liked", true)
	log.Warn("modify denied", "identity", "b@x.com")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	first := entries[0]
	if first.Level != zapcore.DebugLevel || first.Message != "like toggled" || first.LoggerName != "posts" {
		t.Errorf("entry = %+v", first.Entry)
	}
	fields := first.ContextMap()
	if fields["handler"] != "posts" || fields["post_id"] != "abc" || fields["liked"] != true {
		t.Errorf("fields = %v", fields)
	}
	if got := entries[1].ContextMap()["identity"]; got != "b@x.com" {
		t.Errorf("identity = %v", got)
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := fromCore(core)

	log.Debug("hidden")
	log.Info("shown")
	if logs.Len() != 1 || logs.All()[0].Message != "shown" {
		t.Fatalf("entries = %+v, want only the info entry", logs.All())
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		production bool
		level      string
		wantErr    bool
	}{
		{name: "development default", production: false},
		{name: "production default", production: true},
		{name: "explicit level", production: true, level: "warn"},
		{name: "bad level", production: false, level: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.production, tt.level)
			if tt.wantErr {
				if err == nil {
					t.Fatal("New() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}
			log.Info("hello")
		})
	}
}

func TestNop(t *testing.T) {
	log := Nop().With("k", "v").Named("x")
	log.Info("dropped")
	log.Sync()
}
