// Package display provides output formatting for change notifications,
// path attributes, watch introspection and audit events.
//
// It supports multiple output formats (table, JSON, simple text).
package display

import (
	"io"
	"time"

	"github.com/0xmhha/filechange/pkg/audit"
	"github.com/0xmhha/filechange/pkg/event"
	"github.com/0xmhha/filechange/pkg/fsattr"
	"github.com/0xmhha/filechange/pkg/watch"
)

// Format represents an output format.
type Format string

const (
	// FormatTable displays data in a formatted table.
	FormatTable Format = "table"

	// FormatJSON displays data as JSON.
	FormatJSON Format = "json"

	// FormatSimple displays data in simple text format.
	FormatSimple Format = "simple"
)

// Notification is one delivered change, stamped on receipt.
type Notification struct {
	Time   time.Time    `json:"time"`
	Action event.Action `json:"-"`
	Alias  string       `json:"alias"`
}

// PathAttributes is the result of an attribute query.
type PathAttributes struct {
	Alias      string             `json:"alias"`
	Exists     bool               `json:"exists"`
	Attributes *fsattr.Attributes `json:"attributes,omitempty"`
}

// Formatter formats and displays engine output.
type Formatter interface {
	// FormatNotification formats one delivered notification. Streams write
	// one notification at a time.
	FormatNotification(w io.Writer, n Notification) error

	// FormatAttributes formats an attribute query result.
	FormatAttributes(w io.Writer, attrs PathAttributes) error

	// FormatDirectories formats directory watch introspection.
	FormatDirectories(w io.Writer, dirs []watch.DirectoryInfo) error

	// FormatAuditEvents formats recorded audit events.
	FormatAuditEvents(w io.Writer, events []audit.Event) error
}

// Config contains formatter configuration.
type Config struct {
	// Format specifies the output format.
	// Default: FormatTable.
	Format Format

	// ShowTimestamps enables timestamp display.
	// Default: false.
	ShowTimestamps bool

	// Compact enables compact output (less whitespace).
	// Default: false.
	Compact bool

	// Now is the reference for relative times. Default: time.Now.
	Now func() time.Time
}
