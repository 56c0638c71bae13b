package cli

import (
	"fmt"

	"github.com/dkeye/Interview/internal/adapters/rest"
	"github.com/dkeye/Interview/internal/config"
	"github.com/dkeye/Interview/internal/ui"
	"github.com/spf13/cobra"
)

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List open rooms on the relay",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadParticipant(cmd.Flags())
		if err != nil {
			return err
		}
		rooms, err := (&rest.Rooms{Client: rest.NewClient(cfg.HTTPTimeout), URL: cfg.RoomsURL()}).List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list rooms: %w", err)
		}
		fmt.Println(ui.RoomsView(rooms))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(roomsCmd)
}
