// Package skylight implements the Device Protocol Engine for Skylight
// LED lamps: a local-network HTTP control client that turns high-level
// operations into firmware requests and raw status responses back into
// structured device state.
//
// # Architecture
//
// The engine is layered, leaves first:
//
//   - Transport: one bounded HTTP call per firmware request, failures
//     classified into the ErrTransport taxonomy. Never retries.
//   - Schedule codec: Encode/Decode between the structured Schedule
//     model and the three historical wire variants (old, safe, new).
//   - Command encoder: one EncodeXxx function per operation, each
//     validating before it builds a Request.
//   - Cache: the last good status snapshot behind an atomic pointer,
//     with a poll sequence number and a staleness threshold.
//   - Session: one goroutine per lamp owning all network I/O, so
//     operations against a single lamp are totally ordered while
//     different lamps proceed independently.
//   - Registry: lamp id to session map with lifecycle management.
//
// # Usage
//
//	session := skylight.NewSession(
//	    skylight.Endpoint{ID: "tank-main", Host: "192.168.1.40"},
//	    skylight.SessionConfig{
//	        PollInterval:       30 * time.Second,
//	        StalenessThreshold: 90 * time.Second,
//	        CommandTimeout:     15 * time.Second,
//	        PollTimeout:        15 * time.Second,
//	    },
//	    logger,
//	)
//	session.OnUpdate(func(ep skylight.Endpoint, snap skylight.Snapshot) {
//	    // fan out to API clients, MQTT, telemetry
//	})
//	session.Start()
//	defer session.Close()
//
//	result, err := session.SetChannel(ctx, 0, 75)
//
// # Error Handling
//
// Errors wrap the package sentinels and are checked with errors.Is.
// Validation and codec failures surface synchronously and never reach
// the device. Transport failures during commands surface immediately
// and are never retried automatically, because a write with unknown
// delivery status must not be repeated blindly. Transport failures
// during polls are absorbed: the cache keeps its last good snapshot,
// goes stale past the threshold, and polling continues indefinitely.
package skylight
