package notify

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oszuidwest/zwfm-audioscan/internal/catalog"
	"github.com/oszuidwest/zwfm-audioscan/internal/config"
	"github.com/oszuidwest/zwfm-audioscan/internal/util"
)

// ChangeNotifier manages notifications for device tree changes.
type ChangeNotifier struct {
	cfg *config.Config

	// mu protects the state fields below
	mu sync.Mutex

	// Devices alerted as lost, by identifier, with the time of loss.
	// A device that returns clears its entry and downgrades the alert
	// to a recovery.
	lost map[string]time.Time

	// Cached Graph client for email notifications
	graphClient *GraphClient
}

// NewChangeNotifier returns a ChangeNotifier configured with the given config.
func NewChangeNotifier(cfg *config.Config) *ChangeNotifier {
	return &ChangeNotifier{cfg: cfg, lost: make(map[string]time.Time)}
}

// InvalidateGraphClient clears the cached Graph client.
// Call this when Graph configuration changes.
func (n *ChangeNotifier) InvalidateGraphClient() {
	n.mu.Lock()
	n.graphClient = nil
	n.mu.Unlock()
}

// getOrCreateGraphClient returns the cached Graph client, creating it if needed.
func (n *ChangeNotifier) getOrCreateGraphClient(cfg *GraphConfig) (*GraphClient, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.graphClient != nil {
		return n.graphClient, nil
	}

	client, err := NewGraphClient(cfg)
	if err != nil {
		return nil, err
	}
	n.graphClient = client
	return client, nil
}

// HandleChanges dispatches notifications for one batch of catalog changes.
func (n *ChangeNotifier) HandleChanges(changes []catalog.Change, summary catalog.Summary) {
	if len(changes) == 0 {
		return
	}

	batch := n.classify(changes)
	cfg := n.cfg.Snapshot()

	if cfg.HasWebhook() {
		go n.sendChangeWebhook(cfg, batch, summary)
	}
	if cfg.HasGraph() {
		go n.sendChangeEmail(cfg, batch, summary)
	}
	if cfg.HasLogPath() {
		go n.logChanges(cfg, batch, summary)
	}
	if cfg.HasZabbix() {
		go n.sendChangeZabbix(cfg, batch, summary)
	}
}

// Reset clears the lost-device state.
func (n *ChangeNotifier) Reset() {
	n.mu.Lock()
	n.lost = make(map[string]time.Time)
	n.mu.Unlock()
}

// changeBatch is one classified set of changes.
type changeBatch struct {
	changes  []catalog.Change
	added    []catalog.Change // Devices seen for the first time
	restored []restoredDevice // Devices previously reported lost, now back
	removed  []catalog.Change // Devices that disappeared
	cards    []catalog.Change // Card registry changes
}

type restoredDevice struct {
	change catalog.Change
	gone   time.Duration
}

// classify splits a change batch and updates the lost-device state.
func (n *ChangeNotifier) classify(changes []catalog.Change) changeBatch {
	n.mu.Lock()
	defer n.mu.Unlock()

	batch := changeBatch{changes: changes}
	now := time.Now()
	for _, change := range changes {
		switch change.Kind {
		case catalog.ChangeDeviceAdded:
			if lostAt, ok := n.lost[change.Identifier]; ok {
				delete(n.lost, change.Identifier)
				batch.restored = append(batch.restored, restoredDevice{change: change, gone: now.Sub(lostAt)})
			} else {
				batch.added = append(batch.added, change)
			}
		case catalog.ChangeDeviceRemoved:
			n.lost[change.Identifier] = now
			batch.removed = append(batch.removed, change)
		default:
			batch.cards = append(batch.cards, change)
		}
	}
	return batch
}

// event returns the webhook event name for the batch.
func (b *changeBatch) event() string {
	switch {
	case len(b.removed) > 0:
		return "device_lost"
	case len(b.restored) > 0:
		return "device_restored"
	default:
		return "devices_changed"
	}
}

// subject returns the email subject line for the batch.
func (b *changeBatch) subject(stationName string) string {
	switch {
	case len(b.removed) > 0:
		return "[ALERT] Audio Device Lost - " + stationName
	case len(b.restored) > 0:
		return "[OK] Audio Device Restored - " + stationName
	default:
		return "[INFO] Audio Devices Changed - " + stationName
	}
}

// describe returns one line per change for the email body.
func (b *changeBatch) describe() string {
	var lines []string
	for _, c := range b.removed {
		lines = append(lines, "Lost:     "+describeChange(c))
	}
	for _, r := range b.restored {
		lines = append(lines, fmt.Sprintf("Restored: %s, was gone %s",
			describeChange(r.change), util.FormatDuration(r.gone.Milliseconds())))
	}
	for _, c := range b.added {
		lines = append(lines, "New:      "+describeChange(c))
	}
	for _, c := range b.cards {
		if c.Kind == catalog.ChangeCardAdded {
			lines = append(lines, "Card in:  "+describeChange(c))
		} else {
			lines = append(lines, "Card out: "+describeChange(c))
		}
	}
	return strings.Join(lines, "\n")
}

func describeChange(c catalog.Change) string {
	if c.Description != "" {
		return fmt.Sprintf("%s (%s)", c.Identifier, c.Description)
	}
	return c.Identifier
}

//nolint:gocritic // hugeParam: copy is acceptable for infrequent notification events
func (n *ChangeNotifier) sendChangeWebhook(cfg config.Snapshot, batch changeBatch, summary catalog.Summary) {
	util.LogNotifyResult(
		func() error { return SendChangeWebhook(cfg.WebhookURL, batch.event(), batch.changes, summary) },
		"Change webhook",
	)
}

// BuildGraphConfig creates a GraphConfig from the config snapshot.
//
//nolint:gocritic // hugeParam: copy is acceptable for infrequent notification events
func BuildGraphConfig(cfg config.Snapshot) *GraphConfig {
	return &GraphConfig{
		TenantID:     cfg.GraphTenantID,
		ClientID:     cfg.GraphClientID,
		ClientSecret: cfg.GraphClientSecret,
		FromAddress:  cfg.GraphFromAddress,
		Recipients:   cfg.GraphRecipients,
	}
}

//nolint:gocritic // hugeParam: copy is acceptable for infrequent notification events
func (n *ChangeNotifier) sendChangeEmail(cfg config.Snapshot, batch changeBatch, summary catalog.Summary) {
	graphCfg := BuildGraphConfig(cfg)
	util.LogNotifyResult(
		func() error { return n.sendChangeEmailWithClient(graphCfg, cfg.StationName, batch, summary) },
		"Change email",
	)
}

// sendEmail handles the common email sending infrastructure.
func (n *ChangeNotifier) sendEmail(cfg *GraphConfig, subject, body string) error {
	if !IsConfigured(cfg) {
		return nil
	}

	client, err := n.getOrCreateGraphClient(cfg)
	if err != nil {
		return util.WrapError("create Graph client", err)
	}

	recipients := ParseRecipients(cfg.Recipients)
	if len(recipients) == 0 {
		return fmt.Errorf("no valid recipients")
	}

	if err := client.SendMail(recipients, subject, body); err != nil {
		return util.WrapError("send email via Graph", err)
	}

	return nil
}

// sendChangeEmailWithClient sends a device change email using the cached Graph client.
func (n *ChangeNotifier) sendChangeEmailWithClient(cfg *GraphConfig, stationName string, batch changeBatch, summary catalog.Summary) error {
	body := fmt.Sprintf(
		"Audio device change detected by the device scanner.\n\n"+
			"%s\n\n"+
			"Devices now: %d total, %d inputs, %d outputs\n"+
			"Time:        %s\n\n"+
			"Check that studio audio paths are unaffected.",
		batch.describe(), summary.TotalDevices, summary.InputDevices, summary.OutputDevices, util.HumanTime(),
	)
	return n.sendEmail(cfg, batch.subject(stationName), body)
}

//nolint:gocritic // hugeParam: copy is acceptable for infrequent notification events
func (n *ChangeNotifier) logChanges(cfg config.Snapshot, batch changeBatch, summary catalog.Summary) {
	util.LogNotifyResult(
		func() error { return LogChanges(cfg.LogPath, batch.changes, summary) },
		"Change log",
	)
}

//nolint:gocritic // hugeParam: copy is acceptable for infrequent notification events
func (n *ChangeNotifier) sendChangeZabbix(cfg config.Snapshot, batch changeBatch, summary catalog.Summary) {
	util.LogNotifyResult(
		func() error {
			return SendChangeZabbix(cfg.ZabbixServer, cfg.ZabbixPort, cfg.ZabbixHost, cfg.ZabbixKey,
				len(batch.added)+len(batch.restored), len(batch.removed), summary.TotalDevices)
		},
		"Change Zabbix",
	)
}
