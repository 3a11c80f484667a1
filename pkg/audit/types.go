package audit

import (
	"time"
)

// EventType identifies what happened.
type EventType string

const (
	EventTypePluginLoad    EventType = "plugin.load"
	EventTypePluginUnload  EventType = "plugin.unload"
	EventTypeAccountStatus EventType = "account.status"
	EventTypeAPIRequest    EventType = "api.request"
)

// EventStatus is the outcome of the event.
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
)

// Event is a single audit log entry
type Event struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	Status    EventStatus `json:"status"`

	// Module
	PluginID   string `json:"plugin_id,omitempty"`
	PluginName string `json:"plugin_name,omitempty"`
	PluginType string `json:"plugin_type,omitempty"`
	PluginPath string `json:"plugin_path,omitempty"`

	// Account
	AccountID  string `json:"account_id,omitempty"`
	Username   string `json:"username,omitempty"`
	ProtocolID string `json:"protocol_id,omitempty"`
	FromStatus string `json:"from_status,omitempty"`
	ToStatus   string `json:"to_status,omitempty"`

	// Request
	RequestID  string `json:"request_id,omitempty"`
	Method     string `json:"method,omitempty"`
	Path       string `json:"path,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	RemoteAddr string `json:"remote_addr,omitempty"`

	Message  string         `json:"message,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Filter selects events for ReadLogs. Zero fields match everything.
type Filter struct {
	Types    []EventType
	PluginID string
	Since    time.Time
	// Limit keeps only the newest Limit matches.
	Limit int
}

// Match reports whether e passes the filter.
func (f Filter) Match(e *Event) bool {
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if e.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.PluginID != "" && e.PluginID != f.PluginID {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	return true
}
