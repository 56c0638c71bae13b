package cli

import (
	"github.com/dkeye/Interview/internal/app/media"
	"github.com/dkeye/Interview/internal/config"
	"github.com/dkeye/Interview/internal/ui"
	"github.com/spf13/cobra"
)

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Record the microphone briefly and play it back",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadParticipant(cmd.Flags())
		if err != nil {
			return err
		}
		ctrl := media.NewController(media.Synthetic{Deny: cfg.DenyMedia}, media.Config{SelfTestDuration: cfg.SelfTestDuration})
		ui.PrintInfof("recording for %s", cfg.SelfTestDuration)
		if err := ctrl.SelfTest(cmd.Context(), media.DiscardPlayer{}); err != nil {
			return err
		}
		ui.PrintSuccess("microphone works")
		return nil
	},
}

func init() {
	selftestCmd.Flags().Bool("deny-media", false, "simulate a denied device permission")
	selftestCmd.Flags().Duration("selftest-duration", 0, "recording length")
	rootCmd.AddCommand(selftestCmd)
}
