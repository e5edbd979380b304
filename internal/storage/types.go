package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrDisabled = errors.New("storage disabled")
	ErrClosed   = errors.New("storage closed")
)

// Config configures storage.
//
// Driver values:
//   - "file": JSON Lines audit log + JSON snapshots
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
	AuditKeep   int           // file driver: audit entries kept in memory for Recent (default 200)
}

type Store interface {
	AppendAudit(ctx context.Context, e AuditEntry) error
	// RecentAudit returns up to limit entries, newest first.
	RecentAudit(ctx context.Context, limit int) ([]AuditEntry, error)

	UpsertChannel(ctx context.Context, ch ChannelRecord) error
	Channels(ctx context.Context) ([]ChannelRecord, error)
	// ChannelByName returns the most recently seen channel with that name.
	ChannelByName(ctx context.Context, name string) (ChannelRecord, bool, error)

	// ReplaceEvents swaps the whole calendar.
	ReplaceEvents(ctx context.Context, events []SchoolEvent) error
	// EventsBetween returns events with from <= Day <= to ordered by day.
	EventsBetween(ctx context.Context, from, to string) ([]SchoolEvent, error)

	Close() error
}

// AuditEntry records one dispatched command, lazy continuation or cron run.
type AuditEntry struct {
	At         time.Time `json:"at"`
	RequestID  string    `json:"rid,omitempty"`
	Kind       string    `json:"kind"` // "message", "lazy", "cron"
	Command    string    `json:"command"`
	ChannelID  string    `json:"channel_id,omitempty"`
	SenderID   string    `json:"sender_id,omitempty"`
	SenderName string    `json:"sender_name,omitempty"`
	Text       string    `json:"text,omitempty"`
	OK         bool      `json:"ok"`
	Error      string    `json:"err,omitempty"`
	TookMS     int64     `json:"took_ms"`
}

type ChannelRecord struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Direct   bool      `json:"direct,omitempty"`
	Members  int       `json:"members,omitempty"`
	LastSeen time.Time `json:"last_seen"`
}

// SchoolEvent is one calendar entry. Day is a civil date "YYYY-MM-DD".
type SchoolEvent struct {
	Day   string `json:"day"`
	Title string `json:"title"`
}

const dayLayout = "2006-01-02"

// Day formats t as a civil date in its own location.
func Day(t time.Time) string { return t.Format(dayLayout) }
