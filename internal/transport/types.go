// Package transport defines the boundary between chat platforms and the bot.
package transport

import (
	"context"
	"time"
)

type AttachmentKind string

const (
	AttachmentFile  AttachmentKind = "file"
	AttachmentPhoto AttachmentKind = "photo"
	AttachmentVideo AttachmentKind = "video"
)

type Attachment struct {
	Kind     AttachmentKind
	URL      string
	Name     string
	Size     int64
	Duration time.Duration
}

// Message is one inbound chat message. IDs are platform ids rendered as strings.
type Message struct {
	ID          string
	ChannelID   string
	ChannelName string
	Direct      bool
	Members     int
	SenderID    string
	SenderName  string
	Text        string
	Attachments []Attachment
	Received    time.Time
}

// Sender delivers text to a channel. Long texts are split by the adapter.
type Sender interface {
	SendText(ctx context.Context, channelID, text string) error
}

type Adapter interface {
	Sender
	// Name is the platform name used in logs ("telegram", "discord").
	Name() string
	// Start begins delivering messages to out. It returns once receiving has
	// started; receiving stops on Stop or when ctx is done.
	Start(ctx context.Context, out chan<- Message) error
	Stop(ctx context.Context) error
}

// SplitText cuts s into chunks of at most limit runes, preferring newline
// boundaries that do not leave a tiny chunk behind.
func SplitText(s string, limit int) []string {
	rs := []rune(s)
	if limit <= 0 || len(rs) <= limit {
		return []string{s}
	}

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := min(start+limit, len(rs))
		if end < len(rs) {
			for i := end - 1; i > start; i-- {
				if rs[i] == '\n' && i-start >= limit/3 {
					end = i + 1
					break
				}
			}
		}
		chunk := string(rs[start:end])
		if trimmed := trimNewlines(chunk); trimmed != "" {
			out = append(out, trimmed)
		}
		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}

func trimNewlines(s string) string {
	for len(s) > 0 && s[len(s)-1] == '\n' {
		s = s[:len(s)-1]
	}
	return s
}
