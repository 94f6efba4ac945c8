package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	t.Run("counts cover every record exactly once", func(t *testing.T) {
		cat := Build(fixtureRecords(), fixtureCards())
		for _, view := range []View{ViewDefault, ViewAll} {
			devices := cat.Select(view)
			sum := Summarize(devices)

			assert.Equal(t, len(devices), sum.TotalDevices)
			zeroInput := 0
			for _, d := range devices {
				if !d.HasInput() {
					zeroInput++
				}
			}
			assert.Equal(t, sum.TotalDevices, sum.InputDevices+zeroInput)
		}
	})

	t.Run("system default alias drives the default fields", func(t *testing.T) {
		records := append(fixtureRecords(), record(DefaultAlias, 2, 2))
		sum := Summarize(Build(records, fixtureCards()).AllDevices)

		assert.Equal(t, DefaultAlias, sum.DefaultInput)
		assert.Equal(t, DefaultAlias, sum.DefaultOutput)
	})

	t.Run("defaults honor stream direction", func(t *testing.T) {
		sum := Summarize([]DeviceRecord{record(DefaultAlias, 0, 2)})
		assert.Empty(t, sum.DefaultInput)
		assert.Equal(t, DefaultAlias, sum.DefaultOutput)
	})

	t.Run("defaults are never fabricated", func(t *testing.T) {
		sum := Summarize(Build(fixtureRecords(), fixtureCards()).AllDevices)
		assert.Empty(t, sum.DefaultInput)
		assert.Empty(t, sum.DefaultOutput)
	})

	t.Run("correlated records never count as the system default", func(t *testing.T) {
		idx := 0
		rec := record(DefaultAlias, 2, 2)
		rec.CardIndex = &idx
		sum := Summarize([]DeviceRecord{rec})

		assert.Empty(t, sum.DefaultInput)
		assert.Empty(t, sum.DefaultOutput)
	})

	t.Run("empty input yields an all-zero summary", func(t *testing.T) {
		assert.Equal(t, Summary{}, Summarize(nil))
	})
}
