package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oszuidwest/zwfm-audioscan/internal/notify"
)

// newTestNotifyCmd returns the test-notify command, which sends a test
// message through every configured notification channel and reports the
// result per channel.
func newTestNotifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test message through the configured notification channels",
		Args:  noArgs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			snap := cfg.Snapshot()
			out := cmd.OutOrStdout()

			type channel struct {
				name       string
				configured bool
				send       func() error
			}
			channels := []channel{
				{"webhook", snap.HasWebhook(), func() error {
					return notify.SendTestWebhook(snap.WebhookURL, snap.StationName)
				}},
				{"log", snap.HasLogPath(), func() error {
					return notify.WriteTestLog(snap.LogPath)
				}},
				{"email", snap.HasGraph(), func() error {
					return notify.SendTestEmail(notify.BuildGraphConfig(snap), snap.StationName)
				}},
				{"zabbix", snap.HasZabbix(), func() error {
					return notify.SendTestZabbix(snap.ZabbixServer, snap.ZabbixPort, snap.ZabbixHost, snap.ZabbixKey)
				}},
			}

			tested := 0
			failed := 0
			for _, ch := range channels {
				if !ch.configured {
					fmt.Fprintf(out, "%-8s not configured\n", ch.name)
					continue
				}
				tested++
				if err := ch.send(); err != nil {
					failed++
					fmt.Fprintf(out, "%-8s FAILED: %v\n", ch.name, err)
					continue
				}
				fmt.Fprintf(out, "%-8s ok\n", ch.name)
			}

			if tested == 0 {
				fmt.Fprintln(out, "no notification channels configured")
				return nil
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d notification channels failed", failed, tested)
			}
			return nil
		},
	}

	return cmd
}
