package capability

import (
	"slices"
	"testing"

	"github.com/gen2brain/malgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBackends(t *testing.T) {
	t.Run("resolves names case-insensitively", func(t *testing.T) {
		backends, err := ParseBackends([]string{"ALSA", " pulse "})
		require.NoError(t, err)
		assert.Equal(t, []malgo.Backend{malgo.BackendAlsa, malgo.BackendPulseaudio}, backends)
	})

	t.Run("empty list means platform default", func(t *testing.T) {
		backends, err := ParseBackends(nil)
		require.NoError(t, err)
		assert.Nil(t, backends)
	})

	t.Run("unknown name is rejected with the choices", func(t *testing.T) {
		_, err := ParseBackends([]string{"asio"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "asio")
		assert.Contains(t, err.Error(), "alsa")
	})
}

func TestBackendNames(t *testing.T) {
	names := BackendNames()
	assert.True(t, slices.IsSorted(names))
	assert.Contains(t, names, "alsa")
	assert.Contains(t, names, "pulseaudio")
}
