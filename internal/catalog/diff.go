package catalog

// ChangeKind identifies what a catalog diff entry describes.
type ChangeKind string

// Change kinds reported by Diff.
const (
	ChangeDeviceAdded   ChangeKind = "device_added"
	ChangeDeviceRemoved ChangeKind = "device_removed"
	ChangeCardAdded     ChangeKind = "card_added"
	ChangeCardRemoved   ChangeKind = "card_removed"
)

// Change describes one difference between two catalogs.
type Change struct {
	Kind        ChangeKind `json:"kind"`
	Identifier  string     `json:"identifier"`            // Device identifier or card short name
	Description string     `json:"description,omitempty"` // Card description when known
}

// Diff compares two catalogs and returns device and card differences.
// Devices are compared on the deduplicated view so alias churn around a
// single hotplug event does not fan out into one change per access path.
// Cards are keyed on index plus short name, so a card swapped out at the
// same index reports as a removal and an addition.
func Diff(previous, current *Catalog) []Change {
	if previous == nil {
		previous = &Catalog{}
	}
	if current == nil {
		current = &Catalog{}
	}

	var changes []Change

	prevDevices := identifierSet(previous.Devices)
	currDevices := identifierSet(current.Devices)
	for _, rec := range current.Devices {
		if _, ok := prevDevices[rec.Identifier]; !ok {
			changes = append(changes, Change{Kind: ChangeDeviceAdded, Identifier: rec.Identifier, Description: rec.CardDescription})
		}
	}
	for _, rec := range previous.Devices {
		if _, ok := currDevices[rec.Identifier]; !ok {
			changes = append(changes, Change{Kind: ChangeDeviceRemoved, Identifier: rec.Identifier, Description: rec.CardDescription})
		}
	}

	prevCards := cardSet(previous.Cards)
	currCards := cardSet(current.Cards)
	for _, card := range current.Cards {
		if _, ok := prevCards[cardKey{card.Index, card.ShortName}]; !ok {
			changes = append(changes, Change{Kind: ChangeCardAdded, Identifier: card.ShortName, Description: card.Description})
		}
	}
	for _, card := range previous.Cards {
		if _, ok := currCards[cardKey{card.Index, card.ShortName}]; !ok {
			changes = append(changes, Change{Kind: ChangeCardRemoved, Identifier: card.ShortName, Description: card.Description})
		}
	}

	return changes
}

type cardKey struct {
	index int
	name  string
}

func identifierSet(records []DeviceRecord) map[string]struct{} {
	set := make(map[string]struct{}, len(records))
	for _, rec := range records {
		set[rec.Identifier] = struct{}{}
	}
	return set
}

func cardSet(cards []CardEntry) map[cardKey]struct{} {
	set := make(map[cardKey]struct{}, len(cards))
	for _, card := range cards {
		set[cardKey{card.Index, card.ShortName}] = struct{}{}
	}
	return set
}
