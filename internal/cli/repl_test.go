package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/dkeye/Interview/internal/app/media"
	"github.com/dkeye/Interview/internal/app/orch"
	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/domain"
)

type fakeSession struct {
	code     string
	edits    []string
	selected []int64
	toggles  map[media.Kind]bool
	problems []domain.Problem
	calls    int
	submits  int
}

func (f *fakeSession) Room() domain.RoomID { return "r1" }
func (f *fakeSession) Token() domain.ParticipantToken { return "token-1234567890" }
func (f *fakeSession) State() orch.State { return orch.StateJoined }
func (f *fakeSession) PeerState() core.PeerLinkState { return core.PeerStable }
func (f *fakeSession) Connected() bool { return true }
func (f *fakeSession) Code() string { return f.code }
func (f *fakeSession) Result() json.RawMessage { return nil }
func (f *fakeSession) Problems() []domain.Problem { return f.problems }
func (f *fakeSession) RemoteTracks() []orch.RemoteTrackStats { return nil }
func (f *fakeSession) SelfTest(context.Context) error { return nil }

func (f *fakeSession) CurrentProblem() (domain.Problem, bool) {
	if len(f.problems) == 0 {
		return domain.Problem{}, false
	}
	return f.problems[0], true
}

func (f *fakeSession) EditCode(text string) error {
	f.code = text
	f.edits = append(f.edits, text)
	return nil
}

func (f *fakeSession) SelectProblem(id int64) error {
	f.selected = append(f.selected, id)
	return nil
}

func (f *fakeSession) Submit(context.Context) (json.RawMessage, error) {
	f.submits++
	return json.RawMessage(`{"status":"ACCEPTED","passCount":1,"totalTestCases":1}`), nil
}

func (f *fakeSession) StartCall() error {
	f.calls++
	return core.WrapError("start call", core.ErrNoDevice, "no local media")
}

func (f *fakeSession) SetTrackEnabled(kind media.Kind, enabled bool) error {
	if f.toggles == nil {
		f.toggles = map[media.Kind]bool{}
	}
	f.toggles[kind] = enabled
	return nil
}

func runScript(t *testing.T, sess *fakeSession, script string) string {
	t.Helper()
	var out bytes.Buffer
	newREPL(sess, strings.NewReader(script), &out).run(context.Background())
	return out.String()
}

func TestREPLEditsAppendLines(t *testing.T) {
	sess := &fakeSession{code: domain.DefaultTemplate}
	runScript(t, sess, "a := 1\nb := 2\n/undo\n")
	want := []string{"a := 1", "a := 1\nb := 2", "a := 1"}
	if len(sess.edits) != len(want) {
		t.Fatalf("edits = %q", sess.edits)
	}
	for i := range want {
		if sess.edits[i] != want[i] {
			t.Fatalf("edit %d = %q, want %q", i, sess.edits[i], want[i])
		}
	}
}

func TestREPLCommands(t *testing.T) {
	sess := &fakeSession{problems: []domain.Problem{{ID: 7, Title: "Two Sum"}}}
	out := runScript(t, sess, "/problem 7\n/problem x\n/mic off\n/cam on\n/submit\n/call\n/bogus\n")

	if len(sess.selected) != 1 || sess.selected[0] != 7 {
		t.Fatalf("selected = %v", sess.selected)
	}
	if sess.toggles[media.KindAudio] || !sess.toggles[media.KindVideo] {
		t.Fatalf("toggles = %v", sess.toggles)
	}
	if sess.submits != 1 || !strings.Contains(out, "ACCEPTED") {
		t.Fatalf("submit not rendered:\n%s", out)
	}
	if sess.calls != 1 || !strings.Contains(out, "no local media") {
		t.Fatalf("call error not reported:\n%s", out)
	}
	for _, want := range []string{"usage: /problem <id>", "unknown command /bogus"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestREPLLeaveStopsReading(t *testing.T) {
	sess := &fakeSession{}
	runScript(t, sess, "/leave\nlate edit\n")
	if len(sess.edits) != 0 {
		t.Fatalf("edits after leave = %q", sess.edits)
	}
}

func TestREPLStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pr, pw := io.Pipe()
	defer pw.Close()
	var out bytes.Buffer
	newREPL(&fakeSession{}, pr, &out).run(ctx)
}
