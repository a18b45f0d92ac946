package model

import (
	"sort"
	"time"
)

// MessageType identifies the kind of content a message carries.
type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeVideo    MessageType = "video"
	MessageTypeAudio    MessageType = "audio"
	MessageTypeFile     MessageType = "file"
	MessageTypeSticker  MessageType = "sticker"
	MessageTypeLocation MessageType = "location"
	MessageTypeSystem   MessageType = "system"
	MessageTypeDeleted  MessageType = "deleted"
)

// Attachment is a file or media item attached to a message.
type Attachment struct {
	Type      MessageType `json:"type"`
	Filename  string      `json:"filename"`
	URL       string      `json:"url,omitempty"`
	LocalPath string      `json:"local_path,omitempty"`
	MIMEType  string      `json:"mime_type,omitempty"`
	SizeBytes int64       `json:"size_bytes,omitempty"`
}

// IsImage reports whether the attachment is an image.
func (a *Attachment) IsImage() bool {
	return a.Type == MessageTypeImage || hasMIMEPrefix(a.MIMEType, "image/")
}

// IsVideo reports whether the attachment is a video.
func (a *Attachment) IsVideo() bool {
	return a.Type == MessageTypeVideo || hasMIMEPrefix(a.MIMEType, "video/")
}

// IsAudio reports whether the attachment is audio.
func (a *Attachment) IsAudio() bool {
	return a.Type == MessageTypeAudio || hasMIMEPrefix(a.MIMEType, "audio/")
}

func hasMIMEPrefix(mime, prefix string) bool {
	return len(mime) >= len(prefix) && mime[:len(prefix)] == prefix
}

// Reaction is a user reaction attached to a message.
type Reaction struct {
	User      string     `json:"user"`
	Emoji     string     `json:"emoji,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Message is the universal message shape produced by the upstream parsing
// layer. Messages are treated as read-only by the analytics pipeline.
type Message struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`

	Type    MessageType `json:"type,omitempty"`
	ReplyTo string      `json:"reply_to,omitempty"`
	Edited  bool        `json:"edited,omitempty"`

	Attachments []Attachment `json:"attachments,omitempty"`
	Reactions   []Reaction   `json:"reactions,omitempty"`
	Mentions    []string     `json:"mentions,omitempty"`

	Platform string `json:"platform,omitempty"`
}

// Participant describes one conversation member.
type Participant struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role,omitempty"`
}

// Conversation is the universal container every analyzer consumes. It is
// constructed once upstream and never mutated by the pipeline.
type Conversation struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Messages     []Message     `json:"messages"`
	Participants []Participant `json:"participants,omitempty"`
	Platform     string        `json:"platform,omitempty"`
	Type         string        `json:"type,omitempty"`
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.Messages)
}

// SortedMessages returns a copy of the messages sorted by timestamp.
// Message order in the conversation itself is not guaranteed, so analyzers
// that depend on ordering must work from this copy.
func (c *Conversation) SortedMessages() []Message {
	msgs := make([]Message, len(c.Messages))
	copy(msgs, c.Messages)
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
	return msgs
}

// ParticipantNames returns the declared participant usernames, or the unique
// senders in first-seen order when no participant list was supplied.
func (c *Conversation) ParticipantNames() []string {
	if len(c.Participants) > 0 {
		names := make([]string, 0, len(c.Participants))
		for _, p := range c.Participants {
			names = append(names, p.Username)
		}
		return names
	}

	seen := make(map[string]struct{})
	var names []string
	for _, m := range c.Messages {
		if _, ok := seen[m.Sender]; ok {
			continue
		}
		seen[m.Sender] = struct{}{}
		names = append(names, m.Sender)
	}
	return names
}

// DateRange returns the earliest and latest message timestamps. Both zero
// values are returned for an empty conversation.
func (c *Conversation) DateRange() (time.Time, time.Time) {
	if len(c.Messages) == 0 {
		return time.Time{}, time.Time{}
	}
	start, end := c.Messages[0].Timestamp, c.Messages[0].Timestamp
	for _, m := range c.Messages[1:] {
		if m.Timestamp.Before(start) {
			start = m.Timestamp
		}
		if m.Timestamp.After(end) {
			end = m.Timestamp
		}
	}
	return start, end
}

// FilterByDate returns a derived conversation containing only messages in
// [start, end].
func (c *Conversation) FilterByDate(start, end time.Time) *Conversation {
	filtered := make([]Message, 0, len(c.Messages))
	for _, m := range c.Messages {
		if !m.Timestamp.Before(start) && !m.Timestamp.After(end) {
			filtered = append(filtered, m)
		}
	}
	return &Conversation{
		ID:           c.ID,
		Title:        c.Title + " (filtered)",
		Messages:     filtered,
		Participants: c.Participants,
		Platform:     c.Platform,
		Type:         c.Type,
	}
}

// FilterByParticipants returns a derived conversation containing only
// messages from the named senders.
func (c *Conversation) FilterByParticipants(usernames []string) *Conversation {
	keep := make(map[string]struct{}, len(usernames))
	for _, u := range usernames {
		keep[u] = struct{}{}
	}

	filtered := make([]Message, 0, len(c.Messages))
	for _, m := range c.Messages {
		if _, ok := keep[m.Sender]; ok {
			filtered = append(filtered, m)
		}
	}

	var participants []Participant
	for _, p := range c.Participants {
		if _, ok := keep[p.Username]; ok {
			participants = append(participants, p)
		}
	}

	return &Conversation{
		ID:           c.ID,
		Title:        c.Title + " (filtered)",
		Messages:     filtered,
		Participants: participants,
		Platform:     c.Platform,
		Type:         c.Type,
	}
}
