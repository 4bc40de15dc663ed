// Package mqtt provides MQTT client connectivity for Skylight Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Skylight Core uses MQTT as an optional integration bus: every cache refresh
// is published as a retained state message per lamp, and a small command
// vocabulary is accepted on per-lamp command topics. Home automation
// platforms subscribe to state topics instead of polling the REST API.
//
//	Skylight Core ↔ MQTT Broker ↔ automation platform / dashboards
//
// # Security Considerations
//
//   - TLS is recommended when the broker is not on the same host
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all lamp commands
//	err = client.Subscribe(mqtt.Topics{}.AllLampCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish retained state
//	topic := mqtt.Topics{}.LampState("tank-main")
//	client.PublishRetained(topic, statusJSON)
package mqtt
