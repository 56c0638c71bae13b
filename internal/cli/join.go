package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dkeye/Interview/internal/adapters/channel"
	"github.com/dkeye/Interview/internal/adapters/rest"
	"github.com/dkeye/Interview/internal/adapters/rtc"
	"github.com/dkeye/Interview/internal/app/media"
	"github.com/dkeye/Interview/internal/app/orch"
	"github.com/dkeye/Interview/internal/config"
	"github.com/dkeye/Interview/internal/domain"
	"github.com/dkeye/Interview/internal/ui"
	"github.com/spf13/cobra"
)

var joinCmd = &cobra.Command{
	Use:   "join [room]",
	Short: "Join a room and open the interactive console",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJoin,
}

func init() {
	f := joinCmd.Flags()
	f.String("room", "", "room id")
	f.Bool("video", true, "publish a synthetic camera track")
	f.Bool("audio", true, "publish a synthetic microphone track")
	f.Bool("deny-media", false, "simulate a denied device permission")
	f.Duration("debounce", 0, "code broadcast debounce")
	f.Int64("user-id", 0, "user id sent with submissions")
	f.String("language", "", "submission language")
	f.String("judge-url", "", "judge endpoint; submissions are disabled when empty")
	f.String("catalog-url", "", "problem catalog endpoint, defaults to the relay")
	f.String("ice-url", "", "ICE discovery endpoint, defaults to the relay")
	rootCmd.AddCommand(joinCmd)
}

func runJoin(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadParticipant(cmd.Flags())
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.Room = args[0]
	}
	if cfg.Room == "" {
		return fmt.Errorf("a room id is required")
	}
	signalURL, err := cfg.SignalURL()
	if err != nil {
		return err
	}

	sess := orch.NewSession(orch.Config{
		Room:             domain.RoomID(cfg.Room),
		WantVideo:        cfg.Video,
		WantAudio:        cfg.Audio,
		Debounce:         cfg.Debounce,
		SelfTestDuration: cfg.SelfTestDuration,
		UserID:           cfg.UserID,
		Language:         cfg.Language,
	}, deps(cfg, signalURL))

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ui.PrintInfof("joining %s via %s", cfg.Room, signalURL)
	if err := sess.Join(ctx); err != nil {
		_ = sess.Leave()
		return err
	}
	go printWarnings(ctx, sess)

	r := newREPL(sess, os.Stdin, os.Stdout)
	sess.Sync().OnCodeChange(r.onRemoteCode)
	sess.Sync().OnResultChange(r.onRemoteResult)
	r.run(ctx)

	if err := sess.Leave(); err != nil {
		ui.PrintWarningf("left with errors: %v", err)
		return nil
	}
	ui.PrintSuccess("left the room")
	return nil
}

func deps(cfg *config.Participant, signalURL string) orch.Deps {
	client := rest.NewClient(cfg.HTTPTimeout)
	d := orch.Deps{
		Dialer:  channel.NewWSDialer(signalURL),
		Peers:   rtc.NewFactory("participant"),
		ICE:     &rest.ICEDiscovery{Client: client, URL: cfg.ICEServersURL()},
		Devices: media.Synthetic{Deny: cfg.DenyMedia},
		Player:  media.DiscardPlayer{},
		Catalog: &rest.Catalog{Client: client, URL: cfg.ProblemsURL()},
	}
	if cfg.JudgeURL != "" {
		d.Grader = &rest.Judge{Client: client, URL: cfg.JudgeURL}
	}
	return d
}

func printWarnings(ctx context.Context, sess *orch.Session) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sess.Done():
			return
		case w := <-sess.Warnings():
			ui.PrintWarning(w.Error())
		}
	}
}
