package main

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/oszuidwest/zwfm-audioscan/internal/util"
)

// Build information, injected via ldflags at release time.
var (
	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

// newVersionCmd returns the version command.
func newVersionCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  noArgs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "audioscan %s\n", Version)
			if Commit != "" {
				fmt.Fprintf(out, "  commit:   %s\n", Commit)
			}
			if BuildTime != "" {
				fmt.Fprintf(out, "  built:    %s\n", util.FormatHumanTime(BuildTime))
			}
			fmt.Fprintf(out, "  go:       %s\n", runtime.Version())
			fmt.Fprintf(out, "  platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)

			if !check {
				return nil
			}

			// One-shot check, no background loop
			vc := &VersionChecker{stopCh: make(chan struct{})}
			if !vc.check() {
				return errors.New("update check failed")
			}
			info := vc.Info()
			switch {
			case info.Latest == "":
				fmt.Fprintf(out, "  update:   no releases found\n")
			case info.UpdateAvail:
				fmt.Fprintf(out, "  update:   %s available\n", info.Latest)
			default:
				fmt.Fprintf(out, "  update:   up to date\n")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Check for a newer release")

	return cmd
}
