// internal/model/event.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventJobQueued        EventType = "JOB_QUEUED"
	EventJobPrinting      EventType = "JOB_PRINTING"
	EventJobCompleted     EventType = "JOB_COMPLETED"
	EventJobFailed        EventType = "JOB_FAILED"
	EventPrinterStatus    EventType = "PRINTER_STATUS"
	EventPrinterAdded     EventType = "PRINTER_ADDED"
	EventPrinterRemoved   EventType = "PRINTER_REMOVED"
	EventProfilesReloaded EventType = "PROFILES_RELOADED"
)

// JobEvent is published on the event bus and streamed to websocket clients
type JobEvent struct {
	ID        uuid.UUID  `json:"id"`
	EventType EventType  `json:"event_type"`
	JobID     *uuid.UUID `json:"job_id,omitempty"`
	PrinterID *uuid.UUID `json:"printer_id,omitempty"`
	Data      JSONObject `json:"data,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	Severity  string     `json:"severity"` // INFO, WARNING, ERROR
}

// NewJobEvent stamps a new event for job
func NewJobEvent(eventType EventType, job *PrintJob, data JSONObject) *JobEvent {
	ev := &JobEvent{
		ID:        uuid.New(),
		EventType: eventType,
		JobID:     &job.ID,
		PrinterID: job.PrinterID,
		Data:      data,
		Timestamp: time.Now(),
		Severity:  "INFO",
	}
	if eventType == EventJobFailed {
		ev.Severity = "ERROR"
	}
	return ev
}

// NewPrinterEvent stamps a new event for printer
func NewPrinterEvent(eventType EventType, printerID uuid.UUID, data JSONObject) *JobEvent {
	return &JobEvent{
		ID:        uuid.New(),
		EventType: eventType,
		PrinterID: &printerID,
		Data:      data,
		Timestamp: time.Now(),
		Severity:  "INFO",
	}
}

// NewSystemEvent stamps an event not tied to a job or printer
func NewSystemEvent(eventType EventType, data JSONObject) *JobEvent {
	return &JobEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Data:      data,
		Timestamp: time.Now(),
		Severity:  "INFO",
	}
}

// EventFilter selects which events a subscriber receives
type EventFilter struct {
	EventTypes []EventType `json:"event_types,omitempty"`
	PrinterIDs []uuid.UUID `json:"printer_ids,omitempty"`
	JobIDs     []uuid.UUID `json:"job_ids,omitempty"`
}

// Matches reports whether ev passes the filter; empty lists match all
func (f *EventFilter) Matches(ev *JobEvent) bool {
	if f == nil {
		return true
	}
	if len(f.EventTypes) > 0 {
		found := false
		for _, t := range f.EventTypes {
			if t == ev.EventType {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.PrinterIDs) > 0 && !containsID(f.PrinterIDs, ev.PrinterID) {
		return false
	}
	if len(f.JobIDs) > 0 && !containsID(f.JobIDs, ev.JobID) {
		return false
	}
	return true
}

func containsID(ids []uuid.UUID, id *uuid.UUID) bool {
	if id == nil {
		return false
	}
	for _, candidate := range ids {
		if candidate == *id {
			return true
		}
	}
	return false
}
