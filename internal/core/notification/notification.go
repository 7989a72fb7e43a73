// Copyright (c) 2026 Shelfmark. All rights reserved.

/*
Package notification manages the in-app notification feed.

Notifications are created by service events — a tracked series' release
coming due, a storage problem surfacing through the alert dispatcher —
and leave by dismissal, bulk clear, or the owning series' delete cascade.
The background generator in this package turns due releases into feed
entries, one per release.
*/
package notification

import "time"

// # Domain Enums

// Type classifies what produced a notification.
type Type string

const (
	// TypeRelease marks a tracked series' upcoming release coming due.
	TypeRelease Type = "release"

	// TypeSystem marks an application event, such as degraded storage.
	TypeSystem Type = "system"

	// TypeReminder marks a user-facing nudge.
	TypeReminder Type = "reminder"
)

// IsValid reports whether t is a recognised [Type] value.
func (t Type) IsValid() bool {
	switch t {
	case TypeRelease, TypeSystem, TypeReminder:
		return true
	}
	return false
}

// # Core Entity

// Notification is one entry in the feed.
type Notification struct {
	ID      string `json:"id"`
	Type    Type   `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	IsRead  bool   `json:"is_read"`

	// Optional links back to the records the entry is about. ReleaseID
	// doubles as the dedup key for generated release notifications.
	SeriesID  *string `json:"series_id,omitempty"`
	BookID    *string `json:"book_id,omitempty"`
	ReleaseID *string `json:"release_id,omitempty"`
	ActionURL *string `json:"action_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// # Filtering

// Filter holds the criteria for a filtered feed, answerable from a
// [Notification] alone so it can run over the cached collection.
type Filter struct {
	Type   []Type `json:"type,omitempty"`
	Unread *bool  `json:"unread,omitempty"`
}

// Match reports whether n satisfies every criterion in the filter.
func (f Filter) Match(n *Notification) bool {
	if len(f.Type) > 0 && !containsType(f.Type, n.Type) {
		return false
	}
	if f.Unread != nil && n.IsRead == *f.Unread {
		return false
	}
	return true
}

func containsType(types []Type, t Type) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

// # Field Identifiers

const (
	FieldID        = "id"
	FieldType      = "type"
	FieldTitle     = "title"
	FieldMessage   = "message"
	FieldSeriesID  = "series_id"
	FieldBookID    = "book_id"
	FieldReleaseID = "release_id"
	FieldActionURL = "action_url"
)
