package display

import (
	"fmt"
	"io"

	"github.com/0xmhha/filechange/pkg/audit"
	"github.com/0xmhha/filechange/pkg/watch"
)

// simpleFormatter formats output as simple text.
type simpleFormatter struct {
	config Config
}

// FormatNotification implements Formatter.FormatNotification.
func (f *simpleFormatter) FormatNotification(w io.Writer, n Notification) error {
	_, err := fmt.Fprintf(w, "%s %s\n", n.Action, n.Alias)
	return err
}

// FormatAttributes implements Formatter.FormatAttributes.
func (f *simpleFormatter) FormatAttributes(w io.Writer, attrs PathAttributes) error {
	if !attrs.Exists || attrs.Attributes == nil {
		_, err := fmt.Fprintf(w, "%s: not found\n", attrs.Alias)
		return err
	}

	a := attrs.Attributes
	kind := "file"
	if a.IsDir {
		kind = "dir"
	}
	_, err := fmt.Fprintf(w, "%s: %s | %s | written %s\n",
		attrs.Alias,
		kind,
		formatSize(a.Size),
		formatAge(a.LastWrite, f.config.Now()))
	return err
}

// FormatDirectories implements Formatter.FormatDirectories.
func (f *simpleFormatter) FormatDirectories(w io.Writer, dirs []watch.DirectoryInfo) error {
	for _, d := range dirs {
		targets := 0
		for _, e := range d.Entries {
			targets += e.Targets
		}
		if _, err := fmt.Fprintf(w, "%s: %d entries, %d targets (recursive: %t, closing: %d)\n",
			d.Dir,
			len(d.Entries),
			targets,
			d.Recursive,
			d.Closing); err != nil {
			return err
		}
	}

	return nil
}

// FormatAuditEvents implements Formatter.FormatAuditEvents.
func (f *simpleFormatter) FormatAuditEvents(w io.Writer, events []audit.Event) error {
	for _, ev := range events {
		if _, err := fmt.Fprintf(w, "#%d %s %s %s\n",
			ev.Seq,
			formatTime(ev.Time),
			ev.Kind,
			ev.Path); err != nil {
			return err
		}
	}

	return nil
}
