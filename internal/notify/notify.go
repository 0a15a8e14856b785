// Package notify delivers structured notifications to remote webhook
// sinks. Delivery is best-effort: the audit layer swallows sink failures,
// so nothing here may matter to a caller's control flow beyond latency.
package notify

import (
	"context"
	"strconv"
	"time"
)

// Channel names a notification stream. Each channel can route to its own
// webhook endpoint.
type Channel string

const (
	ChannelCommands Channel = "commands"
	ChannelAlerts   Channel = "alerts"
	ChannelChain    Channel = "chain"
)

// Embed colors, decimal-encoded for the webhook payload.
const (
	ColorCommand = 0x5865F2
	ColorSuccess = 0x57F287
	ColorWarning = 0xFEE75C
	ColorAlert   = 0xED4245
	ColorChain   = 0x9B59B6
)

// Field is one key-value pair in a notification.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Notification is the structured payload handed to a Sink.
type Notification struct {
	Title       string
	Description string
	Color       int
	Fields      []Field
	Footer      string
	Timestamp   time.Time
	// Mention, when set, is prepended as plain content outside the embed
	// (e.g. "@here" for critical alerts).
	Mention string
}

// Sink accepts notifications for outbound delivery. Implementations report
// failures as errors; callers in the audit path catch and log them, never
// propagate.
type Sink interface {
	Deliver(ctx context.Context, ch Channel, n Notification) error
}

// severityColors maps alert severities to embed colors.
var severityColors = map[string]int{
	"low":      ColorSuccess,
	"medium":   ColorWarning,
	"high":     ColorAlert,
	"critical": ColorAlert,
}

// Alert builds an alert notification. Critical severity carries an @here
// mention.
func Alert(alertType, severity, message, source string) Notification {
	color, ok := severityColors[severity]
	if !ok {
		color = ColorWarning
	}
	n := Notification{
		Title: "Alert: " + alertType,
		Color: color,
		Fields: []Field{
			{Name: "Type", Value: alertType, Inline: true},
			{Name: "Severity", Value: severity, Inline: true},
		},
		Footer:    "trailguard alerts",
		Timestamp: time.Now().UTC(),
	}
	if source != "" {
		n.Fields = append(n.Fields, Field{Name: "Source", Value: source, Inline: true})
	}
	n.Fields = append(n.Fields, Field{Name: "Message", Value: truncate(message, 1500), Inline: false})
	if severity == "critical" {
		n.Mention = "@here"
	}
	return n
}

// ChainEntryNote builds a notification describing a newly appended or
// verified chain entry.
func ChainEntryNote(entryHash, prevHash string, sequence uint64, status string) Notification {
	color := ColorChain
	mention := ""
	if status == "invalid" {
		color = ColorAlert
		mention = "@here chain integrity compromised"
	}
	return Notification{
		Title:       "Hash Chain Entry",
		Description: "Cryptographic integrity verification",
		Color:       color,
		Fields: []Field{
			{Name: "Status", Value: status, Inline: true},
			{Name: "Sequence", Value: strconv.FormatUint(sequence, 10), Inline: true},
			{Name: "Entry Hash", Value: shortHash(entryHash), Inline: false},
			{Name: "Previous Hash", Value: shortHash(prevHash), Inline: false},
		},
		Footer:    "trailguard integrity",
		Timestamp: time.Now().UTC(),
		Mention:   mention,
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n... (truncated)"
}

func shortHash(h string) string {
	if h == "GENESIS" || len(h) <= 32 {
		return h
	}
	return h[:32] + "..."
}
