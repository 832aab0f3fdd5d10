package display

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/0xmhha/filechange/pkg/audit"
	"github.com/0xmhha/filechange/pkg/watch"
)

// tableFormatter formats output as tables.
type tableFormatter struct {
	config Config
}

// FormatNotification implements Formatter.FormatNotification.
func (f *tableFormatter) FormatNotification(w io.Writer, n Notification) error {
	if f.config.ShowTimestamps {
		_, err := fmt.Fprintf(w, "%-19s  %-16s  %s\n", formatTime(n.Time), n.Action, n.Alias)
		return err
	}
	_, err := fmt.Fprintf(w, "%-16s  %s\n", n.Action, n.Alias)
	return err
}

// FormatAttributes implements Formatter.FormatAttributes.
func (f *tableFormatter) FormatAttributes(w io.Writer, attrs PathAttributes) error {
	if err := writeHeader(w, attrs.Alias, f.config.Compact); err != nil {
		return err
	}

	if !attrs.Exists || attrs.Attributes == nil {
		_, err := fmt.Fprintln(w, "Not found")
		return err
	}

	a := attrs.Attributes
	now := f.config.Now()
	kind := "file"
	if a.IsDir {
		kind = "directory"
	}

	rows := [][]string{
		{"Type", kind},
		{"Size", formatSize(a.Size)},
		{"Created", formatTime(a.Created)},
		{"Last Write", fmt.Sprintf("%s (%s)", formatTime(a.LastWrite), formatAge(a.LastWrite, now))},
		{"Last Access", fmt.Sprintf("%s (%s)", formatTime(a.LastAccess), formatAge(a.LastAccess, now))},
	}

	return f.writeTable(w, []string{"Attribute", "Value"}, rows)
}

// FormatDirectories implements Formatter.FormatDirectories.
func (f *tableFormatter) FormatDirectories(w io.Writer, dirs []watch.DirectoryInfo) error {
	if err := writeHeader(w, "Directory Watches", f.config.Compact); err != nil {
		return err
	}

	header := []string{"Directory", "Entry", "Exists", "Targets", "Last Action", "Last Completion"}
	now := f.config.Now()

	var rows [][]string
	for _, d := range dirs {
		dir := d.Dir
		if d.Recursive {
			dir += " (recursive)"
		}
		if d.Closing > 0 {
			dir += fmt.Sprintf(" [%d closing]", d.Closing)
		}
		for i, e := range d.Entries {
			label := ""
			if i == 0 {
				label = dir
			}
			rows = append(rows, []string{
				label,
				e.Name,
				strconv.FormatBool(e.Exists),
				strconv.Itoa(e.Targets),
				e.LastAction,
				formatAge(e.LastCompletion, now),
			})
		}
	}

	return f.writeTable(w, header, rows)
}

// FormatAuditEvents implements Formatter.FormatAuditEvents.
func (f *tableFormatter) FormatAuditEvents(w io.Writer, events []audit.Event) error {
	if err := writeHeader(w, "Audit Events", f.config.Compact); err != nil {
		return err
	}

	header := []string{"Seq", "Time", "Kind", "Path", "Alias", "Error"}

	rows := make([][]string, len(events))
	for i, ev := range events {
		rows[i] = []string{
			fmt.Sprintf("#%d", ev.Seq),
			formatTime(ev.Time),
			string(ev.Kind),
			ev.Path,
			ev.Alias,
			ev.Error,
		}
	}

	return f.writeTable(w, header, rows)
}

// writeTable writes a formatted table.
func (f *tableFormatter) writeTable(w io.Writer, header []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No data")
		return err
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	if err := f.writeRow(w, header, widths); err != nil {
		return err
	}

	if !f.config.Compact {
		separator := make([]string, len(header))
		for i, width := range widths {
			separator[i] = strings.Repeat("-", width)
		}
		if err := f.writeRow(w, separator, widths); err != nil {
			return err
		}
	}

	for _, row := range rows {
		if err := f.writeRow(w, row, widths); err != nil {
			return err
		}
	}

	if !f.config.Compact {
		_, err := fmt.Fprintln(w)
		return err
	}

	return nil
}

// writeRow writes a single table row.
func (f *tableFormatter) writeRow(w io.Writer, cells []string, widths []int) error {
	gap := "  "
	if f.config.Compact {
		gap = " "
	}

	for i, cell := range cells {
		if i > 0 {
			if _, err := fmt.Fprint(w, gap); err != nil {
				return err
			}
		}
		if i == len(cells)-1 {
			cell = strings.TrimRight(cell, " ")
			if _, err := fmt.Fprint(w, cell); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "%-*s", widths[i], cell); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w)
	return err
}
