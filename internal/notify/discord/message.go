// Package discord posts embed messages to Discord webhooks.
package discord

import (
	"time"

	"github.com/JakeFAU/weibo-relay/internal/relay"
)

// EmbedColor is the accent colour used on every embed.
const EmbedColor = 16738740

// SourceTimeLayout is the layout of created_at in the source timeline. The day
// may be zero-padded, space-padded or a single digit.
const SourceTimeLayout = "Mon Jan _2 15:04:05 -0700 2006"

// embedTimeLayout omits the zone; a literal Z is appended after conversion.
const embedTimeLayout = "2006-01-02T15:04:05.000000"

// Embed is a single Discord embed object.
type Embed struct {
	Title       string `json:"title"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description"`
	Color       int    `json:"color"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// Message is the webhook request body.
type Message struct {
	Embeds []Embed `json:"embeds"`
}

// FormatTimestamp converts a source created_at value into the embed timestamp,
// rendered as wall-clock time in loc followed by a literal "Z".
func FormatTimestamp(createdAt string, loc *time.Location) (string, error) {
	t, err := time.Parse(SourceTimeLayout, createdAt)
	if err != nil {
		return "", err
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(embedTimeLayout) + "Z", nil
}

// ItemTemplate holds the fixed parts of an item notification.
type ItemTemplate struct {
	Title    string
	Link     string
	Location *time.Location
}

// Build renders item as a single-embed message. The boolean reports whether
// created_at was parsed; when it was not the embed carries no timestamp.
func (tpl ItemTemplate) Build(item relay.Item) (Message, bool) {
	embed := Embed{
		Title:       tpl.Title,
		URL:         tpl.Link,
		Description: item.TextRaw,
		Color:       EmbedColor,
	}
	ts, err := FormatTimestamp(item.CreatedAt, tpl.Location)
	if err == nil {
		embed.Timestamp = ts
	}
	return Message{Embeds: []Embed{embed}}, err == nil
}
