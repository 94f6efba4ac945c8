package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/oszuidwest/zwfm-audioscan/internal/catalog"
)

func TestMetrics(t *testing.T) {
	// New registers on the default registry, so create the collectors once
	// for the whole test binary.
	m := New()

	m.ObserveScan(120*time.Millisecond, catalog.Summary{
		TotalDevices:  5,
		InputDevices:  2,
		OutputDevices: 4,
	}, 3)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.Devices.WithLabelValues("total")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Devices.WithLabelValues("input")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Devices.WithLabelValues("output")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Cards))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScansTotal))
	assert.Greater(t, testutil.ToFloat64(m.LastScan), 0.0)

	// Gauges track the latest pass, the counter accumulates.
	m.ObserveScan(80*time.Millisecond, catalog.Summary{
		TotalDevices:  4,
		InputDevices:  2,
		OutputDevices: 3,
	}, 3)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Devices.WithLabelValues("total")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ScansTotal))

	m.IncrementDeviceChange("added")
	m.IncrementDeviceChange("added")
	m.IncrementDeviceChange("removed")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DeviceChanges.WithLabelValues("added")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DeviceChanges.WithLabelValues("removed")))
}
