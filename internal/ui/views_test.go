package ui

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/dkeye/Interview/internal/core"
)

func TestRoomsView(t *testing.T) {
	out := RoomsView([]core.RoomInfo{{ID: "r1", Participants: 1, Capacity: 2}})
	if !strings.Contains(out, "r1") || !strings.Contains(out, "1/2") {
		t.Fatalf("rooms view:\n%s", out)
	}
	if out := RoomsView(nil); !strings.Contains(out, "No open rooms") {
		t.Fatalf("empty view = %q", out)
	}
}

func TestVerdictView(t *testing.T) {
	out := VerdictView(json.RawMessage(`{"status":"ACCEPTED","passCount":3,"totalTestCases":3,"runtimeMs":12}`))
	if !strings.Contains(out, "ACCEPTED") || !strings.Contains(out, "3/3") || !strings.Contains(out, "12 ms") {
		t.Fatalf("verdict view:\n%s", out)
	}
	if out := VerdictView(json.RawMessage(`{"compileError":"x"}`)); !strings.Contains(out, "compileError") {
		t.Fatalf("raw verdict = %q", out)
	}
}
