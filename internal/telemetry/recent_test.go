package telemetry

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestRecorderKeepsNewestFirst(t *testing.T) {
	r := NewRecorder(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		r.Record(ctx, Operation{
			Tool:          fmt.Sprintf("tool-%d", i),
			CorrelationID: NewCorrelationID(),
			Status:        "ok",
			At:            time.Now(),
		})
	}

	ops := r.Recent()
	if len(ops) != 3 {
		t.Fatalf("len = %d, want 3", len(ops))
	}
	for i, want := range []string{"tool-4", "tool-3", "tool-2"} {
		if ops[i].Tool != want {
			t.Errorf("ops[%d] = %q, want %q", i, ops[i].Tool, want)
		}
	}
}

func TestRecorderNoMirrorHealth(t *testing.T) {
	r := NewRecorder(0)
	if err := r.PingMirror(context.Background()); err != nil {
		t.Errorf("PingMirror with no mirror = %v, want nil", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close = %v", err)
	}
}

func TestNewCorrelationIDUnique(t *testing.T) {
	a, b := NewCorrelationID(), NewCorrelationID()
	if a == "" || a == b {
		t.Errorf("ids not unique: %q %q", a, b)
	}
}
