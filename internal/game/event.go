package game

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeRoundStart
	EventTypePlayerJoin
	EventTypePlayerLeave
	EventTypePickup
	EventTypeTag
	EventTypeRoundEnd
)

// EventVersion for backwards compatibility when reading old logs
const EventVersion uint8 = 1

// Event is one line of the audit log
type Event struct {
	Version   uint8           `json:"version"`
	Type      EventType       `json:"type"`
	Timestamp int64           `json:"timestamp"` // Unix nano
	Sequence  uint64          `json:"sequence"`
	RoomCode  string          `json:"roomCode"` // also the rate limiting key
	Payload   json.RawMessage `json:"payload"`
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeRoundStart:
		return "round_start"
	case EventTypePlayerJoin:
		return "player_join"
	case EventTypePlayerLeave:
		return "player_leave"
	case EventTypePickup:
		return "pickup"
	case EventTypeTag:
		return "tag"
	case EventTypeRoundEnd:
		return "round_end"
	default:
		return "unknown"
	}
}

// MarshalText writes the readable name into the log instead of the number.
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Typed payloads for different event types

// PlayerJoinPayload contains player join details
type PlayerJoinPayload struct {
	PlayerID string  `json:"playerId"`
	Name     string  `json:"name"`
	Role     Role    `json:"role"`
	SpawnX   float64 `json:"spawnX"`
	SpawnY   float64 `json:"spawnY"`
}

// PlayerLeavePayload contains player leave details
type PlayerLeavePayload struct {
	PlayerID  string `json:"playerId"`
	Remaining int    `json:"remaining"`
}

// RoundEndPayload contains the frozen outcome
type RoundEndPayload struct {
	Winner       Winner `json:"winner"`
	Message      string `json:"message"`
	ClockMinutes int    `json:"clockMinutes"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) json.RawMessage {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, roomCode string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		RoomCode:  roomCode,
		Payload:   EncodePayload(payload),
	}
}
