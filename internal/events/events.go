// Package events implements Server-Sent Events for real-time record updates
// and event broadcasting.
package events

import (
	"time"

	"github.com/recall-app/recall-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventRecordCreated represents a record creation event.
	EventRecordCreated EventType = "record.created"
	// EventRecordUpdated represents a record update event.
	EventRecordUpdated EventType = "record.updated"
	// EventRecordDeleted represents a record deletion event.
	EventRecordDeleted EventType = "record.deleted"

	// EventRecordsReloaded represents a full reload of the record set, such
	// as after an import run. Clients should refetch rather than patch.
	EventRecordsReloaded EventType = "records.reloaded"

	// EventImportStarted represents an import run start event.
	EventImportStarted EventType = "import.started"
	// EventImportComplete represents an import run completion event.
	EventImportComplete EventType = "import.completed"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
// The Data field contains the event payload as a JSON object for direct
// deserialization.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

// RecordEventData is the data payload for record create/update events.
// Events are self-contained so clients can render without a follow-up fetch.
type RecordEventData struct {
	Record *domain.Record `json:"record"`
}

// RecordDeletedEventData is the data payload for record delete events.
type RecordDeletedEventData struct {
	DeletedAt time.Time `json:"deleted_at"`
	RecordID  string    `json:"record_id"`
}

// RecordsReloadedEventData is the data payload for full-reload events.
type RecordsReloadedEventData struct {
	ReloadedAt time.Time `json:"reloaded_at"`
	Total      int       `json:"total"`
	Duplicates int       `json:"duplicates"`
}

// ImportStartedEventData is the data payload for import start events.
type ImportStartedEventData struct {
	StartedAt time.Time `json:"started_at"`
	Source    string    `json:"source"`
}

// ImportCompleteEventData is the data payload for import completion events.
type ImportCompleteEventData struct {
	CompletedAt time.Time `json:"completed_at"`
	Source      string    `json:"source"`
	Imported    int       `json:"imported"`
	Skipped     int       `json:"skipped"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewRecordCreatedEvent creates a record.created event.
func NewRecordCreatedEvent(record *domain.Record) Event {
	return Event{
		Type:      EventRecordCreated,
		Data:      RecordEventData{Record: record},
		Timestamp: time.Now(),
	}
}

// NewRecordUpdatedEvent creates a record.updated event.
func NewRecordUpdatedEvent(record *domain.Record) Event {
	return Event{
		Type:      EventRecordUpdated,
		Data:      RecordEventData{Record: record},
		Timestamp: time.Now(),
	}
}

// NewRecordDeletedEvent creates a record.deleted event.
func NewRecordDeletedEvent(recordID string, deletedAt time.Time) Event {
	return Event{
		Type: EventRecordDeleted,
		Data: RecordDeletedEventData{
			RecordID:  recordID,
			DeletedAt: deletedAt,
		},
		Timestamp: time.Now(),
	}
}

// NewRecordsReloadedEvent creates a records.reloaded event.
func NewRecordsReloadedEvent(total, duplicates int) Event {
	return Event{
		Type: EventRecordsReloaded,
		Data: RecordsReloadedEventData{
			ReloadedAt: time.Now(),
			Total:      total,
			Duplicates: duplicates,
		},
		Timestamp: time.Now(),
	}
}

// NewImportStartedEvent creates an import.started event.
func NewImportStartedEvent(source string) Event {
	return Event{
		Type: EventImportStarted,
		Data: ImportStartedEventData{
			Source:    source,
			StartedAt: time.Now(),
		},
		Timestamp: time.Now(),
	}
}

// NewImportCompleteEvent creates an import.completed event.
func NewImportCompleteEvent(source string, imported, skipped int) Event {
	return Event{
		Type: EventImportComplete,
		Data: ImportCompleteEventData{
			Source:      source,
			CompletedAt: time.Now(),
			Imported:    imported,
			Skipped:     skipped,
		},
		Timestamp: time.Now(),
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type: EventHeartbeat,
		Data: HeartbeatEventData{
			ServerTime: time.Now(),
		},
		Timestamp: time.Now(),
	}
}
