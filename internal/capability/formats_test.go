package capability

import (
	"testing"

	"github.com/gen2brain/malgo"
	"github.com/stretchr/testify/assert"

	"github.com/oszuidwest/zwfm-audioscan/internal/catalog"
)

func format(channels, rate int) malgo.DataFormat {
	return malgo.DataFormat{Format: malgo.FormatS16, Channels: uint32(channels), SampleRate: uint32(rate)}
}

func TestMaxChannels(t *testing.T) {
	t.Run("picks the widest explicit layout", func(t *testing.T) {
		formats := []malgo.DataFormat{format(2, 48000), format(8, 48000), format(6, 44100)}
		assert.Equal(t, 8, maxChannels(formats))
	})

	t.Run("wildcard layout alone means stereo", func(t *testing.T) {
		assert.Equal(t, 2, maxChannels([]malgo.DataFormat{format(0, 48000)}))
	})

	t.Run("explicit layouts win over the wildcard", func(t *testing.T) {
		formats := []malgo.DataFormat{format(0, 0), format(6, 48000)}
		assert.Equal(t, 6, maxChannels(formats))
	})

	t.Run("no formats means no channels", func(t *testing.T) {
		assert.Equal(t, 0, maxChannels(nil))
	})
}

func TestSupportedRates(t *testing.T) {
	t.Run("unions and sorts explicit rates", func(t *testing.T) {
		formats := []malgo.DataFormat{format(2, 48000), format(2, 44100), format(8, 48000)}
		assert.Equal(t, []int{44100, 48000}, supportedRates(formats))
	})

	t.Run("wildcard rate expands to the common table", func(t *testing.T) {
		assert.Equal(t, catalog.CommonSampleRates, supportedRates([]malgo.DataFormat{format(2, 0)}))
	})

	t.Run("no formats means no rates", func(t *testing.T) {
		assert.Nil(t, supportedRates(nil))
	})
}

func TestChooseDefaultRate(t *testing.T) {
	tests := []struct {
		name  string
		rates []int
		want  int
	}{
		{"broadcast rate wins when supported", []int{8000, 44100, 48000, 96000}, 48000},
		{"cd rate is the second choice", []int{22050, 44100, 96000}, 44100},
		{"otherwise the lowest reported rate", []int{88200, 96000}, 88200},
		{"no rates means no default", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chooseDefaultRate(tt.rates))
		})
	}
}

func TestMergeRecord(t *testing.T) {
	t.Run("capture pass completes a playback record", func(t *testing.T) {
		dst := catalog.DeviceRecord{
			Identifier:     "hw:CARD=Audio,DEV=0",
			OutputChannels: 2,
			SampleRates:    []int{44100, 48000},
			DefaultRate:    48000,
			DefaultBuffer:  catalog.FallbackBufferSize,
			BufferSizes:    catalog.CommonBufferSizes,
		}
		src := catalog.DeviceRecord{
			Identifier:    "hw:CARD=Audio,DEV=0",
			InputChannels: 1,
			SampleRates:   []int{48000, 96000},
			DefaultRate:   48000,
			IsDefault:     true,
		}
		mergeRecord(&dst, &src)

		assert.Equal(t, 1, dst.InputChannels)
		assert.Equal(t, 2, dst.OutputChannels)
		assert.Equal(t, []int{44100, 48000, 96000}, dst.SampleRates)
		assert.Equal(t, 48000, dst.DefaultRate)
		assert.True(t, dst.IsDefault)
	})

	t.Run("degraded view gains the capabilities of the other pass", func(t *testing.T) {
		dst := catalog.DeviceRecord{Identifier: "hw:CARD=Audio,DEV=0"}
		src := catalog.DeviceRecord{
			Identifier:    "hw:CARD=Audio,DEV=0",
			InputChannels: 2,
			SampleRates:   []int{44100},
			DefaultRate:   44100,
			DefaultBuffer: catalog.FallbackBufferSize,
			BufferSizes:   catalog.CommonBufferSizes,
		}
		mergeRecord(&dst, &src)

		assert.Equal(t, 2, dst.InputChannels)
		assert.Equal(t, []int{44100}, dst.SampleRates)
		assert.Equal(t, 44100, dst.DefaultRate)
		assert.Equal(t, catalog.FallbackBufferSize, dst.DefaultBuffer)
	})

	t.Run("channel counts never shrink", func(t *testing.T) {
		dst := catalog.DeviceRecord{OutputChannels: 8, SampleRates: []int{48000}, DefaultRate: 48000}
		src := catalog.DeviceRecord{OutputChannels: 2, SampleRates: []int{48000}, DefaultRate: 48000}
		mergeRecord(&dst, &src)
		assert.Equal(t, 8, dst.OutputChannels)
	})
}
