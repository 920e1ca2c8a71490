// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/dashclock/internal/logic"
)

// Topic is the MQTT topic for dashboard events.
const Topic = "vehicle/dashclock/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "vehicle/dashclock/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a dashboard event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Dashboard DashboardPayload `json:"dashboard"`
}

// DashboardPayload contains the dashboard event details.
type DashboardPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	MainMode  string `json:"main_mode"`
	ClockMode string `json:"clock_mode"`
	Reason    string `json:"reason,omitempty"`
	Time      string `json:"time"`
	UptimeMs  uint64 `json:"uptime_ms"`
}

// FormatPayload creates the JSON payload for a dashboard event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Dashboard: DashboardPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			MainMode:  event.MainMode.String(),
			ClockMode: event.ClockMode.String(),
			Reason:    string(event.Reason),
			Time:      event.Time.String(),
			UptimeMs:  event.UptimeMs,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// WillPayload is the last-will message the broker publishes on
// TopicSystem if the connection drops without a clean disconnect.
// It has no timestamp since it is registered at connect time.
func WillPayload() []byte {
	b, _ := json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Event:  "OFFLINE",
			Reason: "UNEXPECTED_DISCONNECT",
		},
	})
	return b
}
