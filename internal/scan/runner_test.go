package scan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oszuidwest/zwfm-audioscan/internal/capability"
	"github.com/oszuidwest/zwfm-audioscan/internal/catalog"
)

func fakeRecord(identifier string, in, out int) catalog.DeviceRecord {
	return catalog.DeviceRecord{
		Identifier:     identifier,
		Driver:         catalog.DriverNative,
		InputChannels:  in,
		OutputChannels: out,
		DefaultRate:    48000,
		SampleRates:    []int{44100, 48000},
	}
}

func fixtureRunner() *Runner {
	return &Runner{
		Enumerate: func(capability.Options) ([]catalog.DeviceRecord, error) {
			return []catalog.DeviceRecord{
				fakeRecord("hw:CARD=HDMI,DEV=0", 0, 2),
				fakeRecord("sysdefault:CARD=HDMI", 0, 2),
				fakeRecord("plughw:CARD=Audio,DEV=0", 2, 2),
				fakeRecord("dmix:CARD=Audio", 0, 2),
				fakeRecord("default", 2, 2),
			}, nil
		},
		ReadCards: func(string) ([]catalog.CardEntry, error) {
			return []catalog.CardEntry{
				{Index: 0, ShortName: "HDMI", Description: "HDA ATI HDMI", DriverName: "HDA-Intel"},
				{Index: 1, ShortName: "Audio", Description: "USB Audio Device", DriverName: "USB-Audio"},
			}, nil
		},
	}
}

func identifiers(devices []catalog.DeviceRecord) []string {
	ids := make([]string, 0, len(devices))
	for _, d := range devices {
		ids = append(ids, d.Identifier)
	}
	return ids
}

func TestRunnerRun(t *testing.T) {
	t.Run("default view collapses aliases and aggregates", func(t *testing.T) {
		result, err := fixtureRunner().Run(Options{})
		require.NoError(t, err)

		assert.Equal(t, []string{"hw:CARD=HDMI,DEV=0", "plughw:CARD=Audio,DEV=0", "default"}, identifiers(result.Devices))
		assert.Len(t, result.Catalog.Cards, 2)
		assert.Equal(t, 3, result.Summary.TotalDevices)
		assert.Equal(t, "default", result.Summary.DefaultInput)
		assert.Equal(t, "default", result.Summary.DefaultOutput)
	})

	t.Run("full view keeps every record", func(t *testing.T) {
		result, err := fixtureRunner().Run(Options{View: catalog.ViewAll})
		require.NoError(t, err)
		assert.Len(t, result.Devices, 5)
	})

	t.Run("filter narrows the presented list and the summary", func(t *testing.T) {
		result, err := fixtureRunner().Run(Options{Filter: catalog.Predicate{Card: "Audio"}})
		require.NoError(t, err)

		assert.Equal(t, []string{"plughw:CARD=Audio,DEV=0"}, identifiers(result.Devices))
		assert.Equal(t, 1, result.Summary.TotalDevices)
		assert.Empty(t, result.Summary.DefaultInput)
	})

	t.Run("skipping the registry leaves records uncorrelated", func(t *testing.T) {
		runner := fixtureRunner()
		runner.ReadCards = func(string) ([]catalog.CardEntry, error) {
			t.Fatal("registry read despite SkipRegistry")
			return nil, nil
		}
		result, err := runner.Run(Options{SkipRegistry: true, View: catalog.ViewAll})
		require.NoError(t, err)

		assert.Empty(t, result.Catalog.Cards)
		for _, d := range result.Devices {
			assert.Nil(t, d.CardIndex, d.Identifier)
		}
	})

	t.Run("unreadable registry degrades instead of failing", func(t *testing.T) {
		runner := fixtureRunner()
		runner.ReadCards = func(string) ([]catalog.CardEntry, error) {
			return nil, errors.New("registry exploded")
		}
		result, err := runner.Run(Options{})
		require.NoError(t, err)
		assert.Empty(t, result.Catalog.Cards)
		assert.NotEmpty(t, result.Devices)
	})

	t.Run("registry root override reaches the reader", func(t *testing.T) {
		runner := fixtureRunner()
		var got string
		reader := runner.ReadCards
		runner.ReadCards = func(root string) ([]catalog.CardEntry, error) {
			got = root
			return reader(root)
		}
		_, err := runner.Run(Options{RegistryRoot: "/tmp/asound"})
		require.NoError(t, err)
		assert.Equal(t, "/tmp/asound", got)
	})

	t.Run("unreachable subsystem is fatal", func(t *testing.T) {
		runner := fixtureRunner()
		runner.Enumerate = func(capability.Options) ([]catalog.DeviceRecord, error) {
			return nil, capability.ErrSubsystemUnavailable
		}
		_, err := runner.Run(Options{})
		assert.ErrorIs(t, err, capability.ErrSubsystemUnavailable)
	})

	t.Run("enumeration options pass through", func(t *testing.T) {
		runner := fixtureRunner()
		var got capability.Options
		runner.Enumerate = func(opts capability.Options) ([]catalog.DeviceRecord, error) {
			got = opts
			return nil, nil
		}
		_, err := runner.Run(Options{Exclusive: true})
		require.NoError(t, err)
		assert.True(t, got.Exclusive)
	})
}
