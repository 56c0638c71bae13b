package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_ENV", "missing")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8080 || cfg.RoomCapacity != 2 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.PingPeriod != 54*time.Second || cfg.JoinRateEvery != 10*time.Second {
		t.Fatalf("durations = %v %v", cfg.PingPeriod, cfg.JoinRateEvery)
	}
	if len(cfg.ICEServers) != 2 || cfg.ICEServers[0].URLs[0] != "stun:stun.l.google.com:19302" {
		t.Fatalf("ice servers = %+v", cfg.ICEServers)
	}
}

func TestParticipantFlagsOverride(t *testing.T) {
	t.Setenv("CONFIG_ENV", "missing")
	flags := pflag.NewFlagSet("join", pflag.ContinueOnError)
	flags.String("server", "", "")
	flags.String("room", "", "")
	flags.Bool("video", true, "")
	flags.Duration("debounce", 0, "")
	if err := flags.Parse([]string{"--server=https://interview.example.com", "--room=r1", "--video=false"}); err != nil {
		t.Fatal(err)
	}

	p, err := LoadParticipant(flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Room != "r1" || p.Video || !p.Audio {
		t.Fatalf("participant = %+v", p)
	}
	if p.Debounce != 300*time.Millisecond {
		t.Fatalf("debounce = %v, want default", p.Debounce)
	}

	ws, err := p.SignalURL()
	if err != nil {
		t.Fatal(err)
	}
	if ws != "wss://interview.example.com/api/ws/signal" {
		t.Fatalf("signal url = %s", ws)
	}
	if got := p.ICEServersURL(); got != "https://interview.example.com/api/ice-servers" {
		t.Fatalf("ice url = %s", got)
	}
	if got := p.RoomsURL(); got != "https://interview.example.com/api/rooms" {
		t.Fatalf("rooms url = %s", got)
	}
}
