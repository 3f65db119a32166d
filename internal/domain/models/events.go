package models

import "time"

// EventKind identifies the kind of engine notification.
type EventKind string

const (
	EventInitialized    EventKind = "initialized"
	EventDataUpdated    EventKind = "dataUpdated"
	EventTrendUpdated   EventKind = "trendUpdated"
	EventSummaryUpdated EventKind = "marketSummaryUpdated"
	EventStarted        EventKind = "started"
	EventStopped        EventKind = "stopped"
	EventConfigUpdated  EventKind = "configUpdated"
	EventError          EventKind = "error"
)

// Event is one notification delivered to subscribers. Payload holds the entity
// the event is about (AggregatedRecord, MarketTrend, MarketSummary, EngineError).
type Event struct {
	Kind      EventKind   `json:"kind"`
	Symbol    string      `json:"symbol,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// EngineError is the payload of an EventError notification.
type EngineError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
