package http

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Interview/internal/adapters/channel"
	"github.com/dkeye/Interview/internal/adapters/rtc"
	"github.com/dkeye/Interview/internal/app"
	"github.com/dkeye/Interview/internal/app/media"
	"github.com/dkeye/Interview/internal/app/orch"
	"github.com/dkeye/Interview/internal/config"
	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
)

func newRelay(t *testing.T) (*app.Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := app.NewHub(app.HubConfig{})
	cfg := &config.Config{
		Mode:     "test",
		Secret:   "test-secret",
		Problems: []domain.Problem{{ID: 1, Title: "Two Sum", TemplateCode: "class Solution {}"}},
	}
	srv := httptest.NewServer(SetupRouter(context.Background(), cfg, hub))
	t.Cleanup(srv.Close)
	return hub, srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/signal"
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func subscribers(hub *app.Hub, topic string) int {
	for _, ti := range hub.Broker.Topics() {
		if ti.Topic == topic {
			return ti.Subscribers
		}
	}
	return 0
}

func TestRelayFansOutOverWebsocket(t *testing.T) {
	hub, srv := newRelay(t)
	ctx := context.Background()
	topic := domain.RoomID("r1").Topic()
	dialer := channel.NewWSDialer(wsURL(srv))

	a, err := dialer.Connect(ctx, topic)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Disconnect()
	b, err := dialer.Connect(ctx, topic)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Disconnect()

	got := make(chan core.Envelope, 8)
	a.Subscribe(func(env core.Envelope) { got <- env })
	b.Subscribe(func(core.Envelope) {})
	waitFor(t, "two subscribers", func() bool { return subscribers(hub, topic) == 2 })

	for _, sender := range []domain.ParticipantToken{"a-token", "b-token"} {
		env, _ := core.NewEnvelope(core.TypeJoin, sender, nil)
		ch := a
		if sender == "b-token" {
			ch = b
		}
		if err := ch.Publish(ctx, env); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, "both joined", func() bool { return hub.Room("r1").Participants == 2 })

	text := "x=1"
	env, _ := core.NewEnvelope(core.TypeCodeUpdate, "b-token", core.CodeUpdate{SourceCode: &text})
	if err := b.Publish(ctx, env); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(3 * time.Second)
	for {
		select {
		case env := <-got:
			if env.Type != core.TypeCodeUpdate {
				continue
			}
			upd, err := env.CodeUpdate()
			if err != nil || env.Sender != "b-token" || upd != text {
				t.Fatalf("update = %+v (%v)", env, err)
			}
			return
		case <-deadline:
			t.Fatal("code update never arrived")
		}
	}
}

func TestCollaboratorEndpoints(t *testing.T) {
	_, srv := newRelay(t)

	var problems []domain.Problem
	getJSON(t, srv.URL+"/api/problems", &problems)
	if len(problems) != 1 || problems[0].Title != "Two Sum" {
		t.Fatalf("problems = %+v", problems)
	}

	var servers []config.ICEServer
	getJSON(t, srv.URL+"/api/ice-servers", &servers)
	if servers == nil {
		t.Fatal("ice servers should encode as an empty list")
	}

	var rooms []core.RoomInfo
	getJSON(t, srv.URL+"/api/rooms", &rooms)
	if len(rooms) != 0 {
		t.Fatalf("rooms = %+v", rooms)
	}
}

func getJSON(t *testing.T, url string, out any) {
	t.Helper()
	resp, err := nethttp.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("GET %s: %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
}

func TestSessionsNegotiateThroughRelay(t *testing.T) {
	hub, srv := newRelay(t)
	peers := func([]webrtc.ICEServer) (core.PeerConnection, error) {
		return rtc.NewWebRTCConnection(webrtc.Configuration{}, "e2e")
	}
	newSession := func() *orch.Session {
		s := orch.NewSession(orch.Config{Room: "r1", WantAudio: true, Debounce: 30 * time.Millisecond}, orch.Deps{
			Dialer:  channel.NewWSDialer(wsURL(srv)),
			Peers:   peers,
			Devices: media.Synthetic{},
		})
		t.Cleanup(func() { _ = s.Leave() })
		return s
	}
	a, b := newSession(), newSession()
	if err := a.Join(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "a in room", func() bool { return hub.Room("r1").Participants == 1 })
	if err := b.Join(context.Background()); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "stable links", func() bool {
		for _, s := range []*orch.Session{a, b} {
			local, remote := s.HasDescriptions()
			if s.PeerState() != core.PeerStable || !local || !remote {
				return false
			}
		}
		return true
	})

	if err := a.EditCode("print(1)"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "code on b", func() bool { return b.Code() == "print(1)" })

	if err := b.Leave(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "b left the room", func() bool { return hub.Room("r1").Participants == 1 })
}
