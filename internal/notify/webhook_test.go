package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oszuidwest/zwfm-audioscan/internal/catalog"
)

func TestSendChangeWebhook(t *testing.T) {
	t.Run("posts the change payload as JSON", func(t *testing.T) {
		var got WebhookPayload
		var contentType string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			contentType = r.Header.Get("Content-Type")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		}))
		defer srv.Close()

		changes := []catalog.Change{{Kind: catalog.ChangeDeviceRemoved, Identifier: "plughw:CARD=Audio,DEV=0"}}
		summary := catalog.Summary{TotalDevices: 2, InputDevices: 1, OutputDevices: 2}
		require.NoError(t, SendChangeWebhook(srv.URL, "device_lost", changes, summary))

		assert.Equal(t, "application/json", contentType)
		assert.Equal(t, "device_lost", got.Event)
		assert.Equal(t, changes, got.Changes)
		require.NotNil(t, got.Summary)
		assert.Equal(t, summary, *got.Summary)
		assert.NotEmpty(t, got.Timestamp)
	})

	t.Run("empty URL is silently skipped", func(t *testing.T) {
		assert.NoError(t, SendChangeWebhook("", "devices_changed", nil, catalog.Summary{}))
	})

	t.Run("non-2xx response is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		err := SendChangeWebhook(srv.URL, "devices_changed", nil, catalog.Summary{})
		assert.ErrorContains(t, err, "webhook returned status 502")
	})
}

func TestSendTestWebhook(t *testing.T) {
	t.Run("requires a configured URL", func(t *testing.T) {
		assert.Error(t, SendTestWebhook("", "ZuidWest FM"))
	})

	t.Run("carries the station name in the message", func(t *testing.T) {
		var got WebhookPayload
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		}))
		defer srv.Close()

		require.NoError(t, SendTestWebhook(srv.URL, "ZuidWest FM"))
		assert.Equal(t, "test", got.Event)
		assert.Contains(t, got.Message, "ZuidWest FM")
	})
}
