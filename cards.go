package main

import (
	"cmp"

	"github.com/spf13/cobra"

	"github.com/oszuidwest/zwfm-audioscan/internal/alsa"
	"github.com/oszuidwest/zwfm-audioscan/internal/render"
)

// newCardsCmd returns the cards command, which prints the hardware registry
// card listing without touching the audio backends.
func newCardsCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "cards",
		Short: "List hardware registry sound cards",
		Args:  noArgs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			snap := cfg.Snapshot()

			cards, err := alsa.ReadCards(cmp.Or(snap.RegistryRoot, alsa.DefaultRoot))
			if err != nil {
				return err
			}

			if jsonOut {
				return render.CardsJSON(cmd.OutOrStdout(), cards)
			}
			render.Cards(cmd.OutOrStdout(), cards)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "JSON output")

	return cmd
}
