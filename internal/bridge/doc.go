// Package bridge connects the lamp engine to an MQTT broker.
//
// The bridge is a thin fan-out layer: it owns no device state of its
// own and never talks to lamps directly. Everything flows through the
// engine's sessions, preserving the per-lamp ordering guarantee.
//
// # Topics
//
//	skylight/state/{id}         retained snapshot, published on every cache refresh
//	skylight/availability/{id}  retained "online"/"offline", from cache staleness
//	skylight/command/{id}       inbound command vocabulary (JSON)
//	skylight/ack/{id}           per-command acknowledgements
//
// # Command vocabulary
//
//	{"op": "set_channel", "channel": 0, "value": 75}
//	{"op": "set_all_channels", "values": [10,20,30,40], "color_code": 1, "intensity": 100}
//	{"op": "set_mode", "mode": "auto"}
//	{"op": "set_night_mode", "enabled": true}
//	{"op": "apply_preset", "preset": "C5", "power": 70}
//
// Commands are acknowledged on the ack topic whether they succeed or
// fail; failures carry the error text. The bridge never retries a
// command on the caller's behalf.
package bridge
