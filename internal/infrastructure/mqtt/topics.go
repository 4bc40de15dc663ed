package mqtt

import "fmt"

// Topic prefixes for the Skylight MQTT hierarchy.
//
// The lamp topics use the flat scheme: skylight/{category}/{lamp_id}
const (
	// TopicPrefix is the base for all Skylight topics.
	TopicPrefix = "skylight"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "skylight/system"
)

// Topics provides builders for Skylight MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.LampState("tank-main")
//	// Returns: "skylight/state/tank-main"
type Topics struct{}

// LampState returns the topic for a lamp's retained status snapshot.
//
// Example: skylight/state/tank-main
func (Topics) LampState(lampID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, lampID)
}

// LampAvailability returns the topic for a lamp's online/offline flag.
// A lamp is "offline" once its cached snapshot crosses the staleness threshold.
//
// Example: skylight/availability/tank-main
func (Topics) LampAvailability(lampID string) string {
	return fmt.Sprintf("%s/availability/%s", TopicPrefix, lampID)
}

// LampCommand returns the topic for commands to a lamp.
//
// Example: skylight/command/tank-main
func (Topics) LampCommand(lampID string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, lampID)
}

// LampAck returns the topic for command acknowledgements from a lamp session.
//
// Example: skylight/ack/tank-main
func (Topics) LampAck(lampID string) string {
	return fmt.Sprintf("%s/ack/%s", TopicPrefix, lampID)
}

// SystemStatus returns the service status topic (online/offline + LWT).
//
// Example: skylight/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllLampCommands returns a pattern matching commands for every lamp.
//
// Pattern: skylight/command/+
func (Topics) AllLampCommands() string {
	return fmt.Sprintf("%s/command/+", TopicPrefix)
}

// AllLampStates returns a pattern matching every lamp's state topic.
//
// Pattern: skylight/state/+
func (Topics) AllLampStates() string {
	return fmt.Sprintf("%s/state/+", TopicPrefix)
}

// AllTopics returns a pattern matching all Skylight topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: skylight/#
func (Topics) AllTopics() string {
	return "skylight/#"
}
