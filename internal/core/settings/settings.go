// Copyright (c) 2026 Shelfmark. All rights reserved.

/*
Package settings holds the single-row application preferences.

One fixed row (id pinned to 1 by the schema) carries the display theme,
the default view, and the notification knobs the release generator reads.
Reads never fail: a missing row or degraded storage serves the defaults.
*/
package settings

import "time"

// # Core Entity

// Settings is the application preference record.
type Settings struct {
	Theme                string    `json:"theme"`
	DefaultView          string    `json:"default_view"`
	NotificationsEnabled bool      `json:"notifications_enabled"`
	ReleaseWindowDays    int       `json:"release_window_days"`
	LastModified         time.Time `json:"last_modified"`
}

// Defaults returns the preferences a fresh installation runs with,
// matching the schema's column defaults.
func Defaults() *Settings {
	return &Settings{
		Theme:                "system",
		DefaultView:          "library",
		NotificationsEnabled: true,
		ReleaseWindowDays:    30,
	}
}

// # Field Identifiers

const (
	FieldTheme             = "theme"
	FieldDefaultView       = "default_view"
	FieldReleaseWindowDays = "release_window_days"
)
