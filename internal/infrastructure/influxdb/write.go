package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteLampChannels writes a lamp's channel brightness snapshot to InfluxDB.
//
// This is the primary method for recording lamp telemetry after each
// successful poll. The write is non-blocking; data is batched and sent
// asynchronously.
//
// Parameters:
//   - lampID: Unique identifier for the lamp (e.g., "tank-main")
//   - channels: Brightness percentages per channel, index 0-3
//   - pwmFreq: Current PWM frequency in Hz
//   - manualIntensity: Manual-mode intensity scaling in percent
//
// Example:
//
//	client.WriteLampChannels("tank-main", [4]float64{80.0, 65.5, 100.0, 0}, 1000, 100)
func (c *Client) WriteLampChannels(lampID string, channels [4]float64, pwmFreq int, manualIntensity float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"lamp_channels",
		map[string]string{
			"lamp_id": lampID,
		},
		map[string]interface{}{
			"pwm0":             channels[0],
			"pwm1":             channels[1],
			"pwm2":             channels[2],
			"pwm3":             channels[3],
			"pwm_freq":         pwmFreq,
			"manual_intensity": manualIntensity,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteLampSchedule writes a lamp's schedule state indicators.
//
// Used for tracking how many schedule entries a lamp carries and which
// entry is currently active.
//
// Parameters:
//   - lampID: Lamp identifier
//   - enabled: Whether automatic schedule execution is on
//   - items: Number of schedule entries stored on the device
//   - activeIndex: Index of the currently active entry (-1 if none)
func (c *Client) WriteLampSchedule(lampID string, enabled bool, items int, activeIndex int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"lamp_schedule",
		map[string]string{
			"lamp_id": lampID,
		},
		map[string]interface{}{
			"enabled":      enabled,
			"items":        items,
			"active_index": activeIndex,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteCommandMetric writes a command execution measurement.
//
// Used for tracking per-operation latency and outcome against each lamp.
//
// Parameters:
//   - lampID: Lamp identifier
//   - operation: Operation name (e.g., "set_channel", "write_schedule")
//   - durationMs: Round-trip time in milliseconds
//   - success: Whether the device accepted the command
func (c *Client) WriteCommandMetric(lampID string, operation string, durationMs float64, success bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"lamp_commands",
		map[string]string{
			"lamp_id":   lampID,
			"operation": operation,
		},
		map[string]interface{}{
			"duration_ms": durationMs,
			"success":     success,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]interface{}{"sessions": 4, "stale_lamps": 1})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., backfilled data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
