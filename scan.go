package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/oszuidwest/zwfm-audioscan/internal/capability"
	"github.com/oszuidwest/zwfm-audioscan/internal/catalog"
	"github.com/oszuidwest/zwfm-audioscan/internal/render"
	"github.com/oszuidwest/zwfm-audioscan/internal/scan"
)

// newScanCmd returns the scan command, which runs one enumeration pass and
// renders the result.
func newScanCmd() *cobra.Command {
	var flags struct {
		card       string
		device     string
		all        bool
		jsonOut    bool
		verbose    bool
		noRegistry bool
		exclusive  bool
		backend    string
	}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan audio devices and print the catalog",
		Args:  noArgs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			snap := cfg.Snapshot()

			backendNames := snap.Backends
			if flags.backend != "" {
				backendNames = []string{flags.backend}
			}
			backends, err := capability.ParseBackends(backendNames)
			if err != nil {
				return usageError{err}
			}

			var view catalog.View
			if flags.all {
				view = catalog.ViewAll
			}

			result, err := scan.Run(scan.Options{
				Filter:       catalog.Predicate{Card: flags.card, Device: flags.device},
				View:         view,
				SkipRegistry: flags.noRegistry || snap.SkipRegistry,
				RegistryRoot: snap.RegistryRoot,
				Backends:     backends,
				Exclusive:    flags.exclusive || snap.Exclusive,
			})
			if err != nil {
				return err
			}

			if flags.jsonOut {
				return render.JSON(cmd.OutOrStdout(), result)
			}
			render.Text(cmd.OutOrStdout(), result, flags.verbose)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.card, "card", "", "Only devices on this card (index or name substring)")
	cmd.Flags().StringVar(&flags.device, "device", "", "Only devices matching this identifier substring")
	cmd.Flags().BoolVar(&flags.all, "all", false, "Full endpoint list instead of the deduplicated view")
	cmd.Flags().BoolVar(&flags.jsonOut, "json", false, "JSON output")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Per-device capability detail")
	cmd.Flags().BoolVar(&flags.noRegistry, "no-registry", false, "Skip the hardware registry")
	cmd.Flags().BoolVar(&flags.exclusive, "exclusive", false, "Probe exclusive-mode capabilities")
	cmd.Flags().StringVar(&flags.backend, "backend", "",
		"Audio backend to use ("+strings.Join(capability.BackendNames(), ", ")+")")

	return cmd
}
