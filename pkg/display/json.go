package display

import (
	"encoding/json"
	"io"

	"github.com/0xmhha/filechange/pkg/audit"
	"github.com/0xmhha/filechange/pkg/watch"
)

// jsonFormatter formats output as JSON.
type jsonFormatter struct {
	config Config
}

func (f *jsonFormatter) encoder(w io.Writer) *json.Encoder {
	encoder := json.NewEncoder(w)
	if !f.config.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder
}

// FormatNotification implements Formatter.FormatNotification. Notifications
// are always one object per line so streams stay parseable.
func (f *jsonFormatter) FormatNotification(w io.Writer, n Notification) error {
	return json.NewEncoder(w).Encode(struct {
		Time   string `json:"time,omitempty"`
		Action string `json:"action"`
		Alias  string `json:"alias"`
	}{
		Time:   timestamp(n),
		Action: n.Action.String(),
		Alias:  n.Alias,
	})
}

// FormatAttributes implements Formatter.FormatAttributes.
func (f *jsonFormatter) FormatAttributes(w io.Writer, attrs PathAttributes) error {
	return f.encoder(w).Encode(attrs)
}

// FormatDirectories implements Formatter.FormatDirectories.
func (f *jsonFormatter) FormatDirectories(w io.Writer, dirs []watch.DirectoryInfo) error {
	if dirs == nil {
		dirs = []watch.DirectoryInfo{}
	}
	return f.encoder(w).Encode(dirs)
}

// FormatAuditEvents implements Formatter.FormatAuditEvents.
func (f *jsonFormatter) FormatAuditEvents(w io.Writer, events []audit.Event) error {
	if events == nil {
		events = []audit.Event{}
	}
	return f.encoder(w).Encode(events)
}

func timestamp(n Notification) string {
	if n.Time.IsZero() {
		return ""
	}
	return n.Time.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
