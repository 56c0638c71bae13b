package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dkeye/Interview/internal/app/media"
	"github.com/dkeye/Interview/internal/app/orch"
	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/domain"
	"github.com/dkeye/Interview/internal/ui"
)

// roomSession is the part of orch.Session the console drives.
type roomSession interface {
	Room() domain.RoomID
	Token() domain.ParticipantToken
	State() orch.State
	PeerState() core.PeerLinkState
	Connected() bool
	Code() string
	Result() json.RawMessage
	Problems() []domain.Problem
	CurrentProblem() (domain.Problem, bool)
	RemoteTracks() []orch.RemoteTrackStats
	EditCode(text string) error
	SelectProblem(id int64) error
	Submit(ctx context.Context) (json.RawMessage, error)
	StartCall() error
	SetTrackEnabled(kind media.Kind, enabled bool) error
	SelfTest(ctx context.Context) error
}

const helpText = `Lines not starting with / are appended to the shared code.
  /code              show the buffer
  /set <text>        replace the buffer
  /undo              drop the last line
  /problems          list problems
  /problem <id>      switch problem
  /submit            grade the buffer
  /result            show the last verdict
  /mic on|off        toggle the microphone
  /cam on|off        toggle the camera
  /call              offer to the peer again
  /selftest          record and play back the microphone
  /state             session status
  /leave             leave the room`

type repl struct {
	sess roomSession
	in   io.Reader

	// submitting hides the result callback while our own verdict is printed.
	submitting atomic.Bool

	mu  sync.Mutex
	out io.Writer
}

func newREPL(sess roomSession, in io.Reader, out io.Writer) *repl {
	return &repl{sess: sess, in: in, out: out}
}

func (r *repl) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

func (r *repl) println(s string) { r.printf("%s\n", s) }

func (r *repl) onRemoteCode(text string) {
	r.println(ui.MutedStyle.Render(ui.IconCode + " peer updated the code"))
}

func (r *repl) onRemoteResult(raw json.RawMessage) {
	if len(raw) == 0 || r.submitting.Load() {
		return
	}
	r.println(ui.TitleStyle.Render("Peer submitted"))
	r.println(ui.VerdictView(raw))
}

// run reads commands until /leave, EOF, ctx cancellation or session close.
func (r *repl) run(ctx context.Context) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	r.println(ui.MutedStyle.Render("type /help for commands"))
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if !r.handle(ctx, line) {
				return
			}
		}
	}
}

// handle executes one line and reports whether the console should continue.
func (r *repl) handle(ctx context.Context, line string) bool {
	if !strings.HasPrefix(line, "/") {
		r.report(r.sess.EditCode(appendLine(r.sess.Code(), line)))
		return true
	}

	cmd, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "help":
		r.println(helpText)
	case "code":
		r.println(ui.CodeView(r.sess.Code()))
	case "set":
		r.report(r.sess.EditCode(arg))
	case "undo":
		r.report(r.sess.EditCode(dropLine(r.sess.Code())))
	case "problems":
		current, _ := r.sess.CurrentProblem()
		r.println(ui.ProblemsView(r.sess.Problems(), current.ID))
	case "problem":
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			r.println(ui.ErrorStyle.Render("usage: /problem <id>"))
			return true
		}
		r.report(r.sess.SelectProblem(id))
	case "submit":
		r.submitting.Store(true)
		raw, err := r.sess.Submit(ctx)
		r.submitting.Store(false)
		if err != nil {
			r.report(err)
			return true
		}
		r.println(ui.VerdictView(raw))
	case "result":
		r.println(ui.VerdictView(r.sess.Result()))
	case "mic", "cam":
		kind := media.KindAudio
		if cmd == "cam" {
			kind = media.KindVideo
		}
		switch arg {
		case "on", "off":
			r.report(r.sess.SetTrackEnabled(kind, arg == "on"))
		default:
			r.printf("%s\n", ui.ErrorStyle.Render("usage: /"+cmd+" on|off"))
		}
	case "call":
		r.report(r.sess.StartCall())
	case "selftest":
		r.report(r.sess.SelfTest(ctx))
	case "state":
		r.println(r.stateView())
		r.println(ui.TracksView(r.tracks()))
	case "leave", "quit":
		return false
	default:
		r.println(ui.ErrorStyle.Render("unknown command /" + cmd + ", try /help"))
	}
	return true
}

func (r *repl) report(err error) {
	if err != nil {
		r.println(ui.ErrorStyle.Render(ui.IconError + " " + err.Error()))
	}
}

func (r *repl) stateView() string {
	return ui.SessionView(ui.SessionInfo{
		Room:   string(r.sess.Room()),
		Sender: r.sess.Token().Short(),
		State:  r.sess.State().String(),
		Peer:   r.sess.PeerState().String(),
		Online: r.sess.Connected(),
	})
}

func (r *repl) tracks() []ui.TrackRow {
	stats := r.sess.RemoteTracks()
	rows := make([]ui.TrackRow, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, ui.TrackRow{ID: s.ID, Kind: s.Kind, Packets: s.Packets, Bytes: s.Bytes})
	}
	return rows
}

func appendLine(code, line string) string {
	if code == "" || code == domain.DefaultTemplate {
		return line
	}
	return code + "\n" + line
}

func dropLine(code string) string {
	i := strings.LastIndex(code, "\n")
	if i < 0 {
		return ""
	}
	return code[:i]
}
