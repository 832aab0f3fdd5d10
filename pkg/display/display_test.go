package display

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/0xmhha/filechange/pkg/audit"
	"github.com/0xmhha/filechange/pkg/event"
	"github.com/0xmhha/filechange/pkg/fsattr"
	"github.com/0xmhha/filechange/pkg/watch"
)

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return now }

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config Config
		want   string // Type name
	}{
		{
			name:   "default format (table)",
			config: Config{},
			want:   "*display.tableFormatter",
		},
		{
			name:   "table format",
			config: Config{Format: FormatTable},
			want:   "*display.tableFormatter",
		},
		{
			name:   "json format",
			config: Config{Format: FormatJSON},
			want:   "*display.jsonFormatter",
		},
		{
			name:   "simple format",
			config: Config{Format: FormatSimple},
			want:   "*display.simpleFormatter",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			formatter := New(tt.config)
			if formatter == nil {
				t.Fatal("New() returned nil")
			}

			got := fmt.Sprintf("%T", formatter)
			if got != tt.want {
				t.Errorf("New() type = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"table", "JSON", "Simple"} {
		if _, err := ParseFormat(in); err != nil {
			t.Errorf("ParseFormat(%q) error = %v", in, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
}

func TestFormatNotification(t *testing.T) {
	t.Parallel()

	n := Notification{
		Time:   time.Date(2026, 5, 1, 11, 59, 0, 0, time.UTC),
		Action: event.Modified,
		Alias:  "/app/web.config",
	}

	tests := []struct {
		name   string
		config Config
		want   []string
	}{
		{"table", Config{Format: FormatTable}, []string{"Modified", "/app/web.config"}},
		{"simple", Config{Format: FormatSimple}, []string{"Modified /app/web.config"}},
		{"json", Config{Format: FormatJSON}, []string{`"action":"Modified"`, `"alias":"/app/web.config"`, `"time":"2026-05-01T11:59:00.000Z"`}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if err := New(tt.config).FormatNotification(&buf, n); err != nil {
				t.Fatalf("FormatNotification() error = %v", err)
			}

			output := buf.String()
			for _, want := range tt.want {
				if !strings.Contains(output, want) {
					t.Errorf("output %q missing %q", output, want)
				}
			}
			if strings.Count(output, "\n") != 1 {
				t.Errorf("notification should be one line, got %q", output)
			}
		})
	}
}

func TestTableFormatter_FormatAttributes(t *testing.T) {
	t.Parallel()

	formatter := New(Config{Format: FormatTable, Now: fixedNow})

	attrs := PathAttributes{
		Alias:  "/app/web.config",
		Exists: true,
		Attributes: &fsattr.Attributes{
			Size:       2048,
			Created:    now.Add(-48 * time.Hour),
			LastWrite:  now.Add(-2 * time.Hour),
			LastAccess: now.Add(-time.Minute),
		},
	}

	var buf bytes.Buffer
	if err := formatter.FormatAttributes(&buf, attrs); err != nil {
		t.Fatalf("FormatAttributes() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{"/app/web.config", "file", "2.0 kB", "2 hours ago", "1 minute ago"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}

	buf.Reset()
	if err := formatter.FormatAttributes(&buf, PathAttributes{Alias: "/app/missing"}); err != nil {
		t.Fatalf("FormatAttributes() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Not found") {
		t.Error("missing path should show 'Not found'")
	}
}

func TestTableFormatter_FormatDirectories(t *testing.T) {
	t.Parallel()

	formatter := New(Config{Format: FormatTable, Now: fixedNow})

	dirs := []watch.DirectoryInfo{
		{
			Dir:       "/app",
			Recursive: true,
			Live:      true,
			Closing:   1,
			Entries: []watch.EntryInfo{
				{Name: "web.config", Exists: true, Targets: 2, LastAction: "Modified", LastCompletion: now.Add(-30 * time.Second)},
				{Name: "bin", Exists: true, Targets: 1},
			},
		},
	}

	var buf bytes.Buffer
	if err := formatter.FormatDirectories(&buf, dirs); err != nil {
		t.Fatalf("FormatDirectories() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{"/app (recursive) [1 closing]", "web.config", "bin", "Modified", "30 seconds ago"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	// The directory label is printed once per group.
	if strings.Count(output, "/app (recursive)") != 1 {
		t.Errorf("directory label repeated:\n%s", output)
	}
}

func TestTableFormatter_FormatAuditEvents(t *testing.T) {
	t.Parallel()

	formatter := New(Config{Format: FormatTable})

	events := []audit.Event{
		{Seq: 2, Time: now, Kind: audit.KindResourceLimit, Path: "/app/bin", Error: "no space left on device"},
		{Seq: 1, Time: now, Kind: audit.KindAccessDenied, Path: "/secret", Alias: "/secret/a.txt", Error: "permission denied"},
	}

	var buf bytes.Buffer
	if err := formatter.FormatAuditEvents(&buf, events); err != nil {
		t.Fatalf("FormatAuditEvents() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{"#1", "#2", "access_denied", "resource_limit", "/secret/a.txt"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestJSONFormatter_Collections(t *testing.T) {
	t.Parallel()

	formatter := New(Config{Format: FormatJSON, Compact: true})

	var buf bytes.Buffer
	if err := formatter.FormatDirectories(&buf, nil); err != nil {
		t.Fatalf("FormatDirectories() error = %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty directories = %q, want []", buf.String())
	}

	buf.Reset()
	events := []audit.Event{{Seq: 7, Time: now, Kind: audit.KindAccessDenied, Path: "/secret"}}
	if err := formatter.FormatAuditEvents(&buf, events); err != nil {
		t.Fatalf("FormatAuditEvents() error = %v", err)
	}

	var decoded []audit.Event
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if len(decoded) != 1 || decoded[0].Seq != 7 || decoded[0].Kind != audit.KindAccessDenied {
		t.Errorf("decoded = %+v", decoded)
	}

	buf.Reset()
	attrs := PathAttributes{Alias: "/app/a.txt", Exists: true, Attributes: &fsattr.Attributes{Size: 5}}
	if err := formatter.FormatAttributes(&buf, attrs); err != nil {
		t.Fatalf("FormatAttributes() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"size":5`) {
		t.Errorf("attributes JSON missing size: %s", buf.String())
	}
}

func TestSimpleFormatter(t *testing.T) {
	t.Parallel()

	formatter := New(Config{Format: FormatSimple, Now: fixedNow})

	var buf bytes.Buffer
	attrs := PathAttributes{
		Alias:      "/app/bin",
		Exists:     true,
		Attributes: &fsattr.Attributes{IsDir: true, LastWrite: now.Add(-time.Hour)},
	}
	if err := formatter.FormatAttributes(&buf, attrs); err != nil {
		t.Fatalf("FormatAttributes() error = %v", err)
	}
	if got := buf.String(); !strings.HasPrefix(got, "/app/bin: dir") || !strings.Contains(got, "1 hour ago") {
		t.Errorf("unexpected output %q", got)
	}

	buf.Reset()
	dirs := []watch.DirectoryInfo{{
		Dir:     "/app",
		Entries: []watch.EntryInfo{{Name: "a", Targets: 2}, {Name: "b", Targets: 1}},
	}}
	if err := formatter.FormatDirectories(&buf, dirs); err != nil {
		t.Fatalf("FormatDirectories() error = %v", err)
	}
	if !strings.Contains(buf.String(), "/app: 2 entries, 3 targets") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestFormatHelpers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"zero time", formatTime(time.Time{}), "-"},
		{"zero age", formatAge(time.Time{}, now), "-"},
		{"age", formatAge(now.Add(-3*24*time.Hour), now), "3 days ago"},
		{"bytes", formatSize(0), "0 B"},
		{"kilobytes", formatSize(1500), "1.5 kB"},
		{"megabytes", formatSize(12_000_000), "12 MB"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestCompactMode(t *testing.T) {
	t.Parallel()

	events := []audit.Event{{Seq: 1, Time: now, Kind: audit.KindAccessDenied, Path: "/secret"}}

	var buf1, buf2 bytes.Buffer
	if err := New(Config{Format: FormatTable}).FormatAuditEvents(&buf1, events); err != nil {
		t.Fatalf("FormatAuditEvents() error = %v", err)
	}
	if err := New(Config{Format: FormatTable, Compact: true}).FormatAuditEvents(&buf2, events); err != nil {
		t.Fatalf("FormatAuditEvents() error = %v", err)
	}

	if len(buf2.String()) >= len(buf1.String()) {
		t.Error("Compact mode did not reduce output length")
	}
}

func TestEmptyData(t *testing.T) {
	t.Parallel()

	formatter := New(Config{Format: FormatTable})

	var buf bytes.Buffer
	if err := formatter.FormatAuditEvents(&buf, nil); err != nil {
		t.Fatalf("FormatAuditEvents() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No data") {
		t.Error("Empty audit events should show 'No data'")
	}

	buf.Reset()
	if err := formatter.FormatDirectories(&buf, []watch.DirectoryInfo{}); err != nil {
		t.Fatalf("FormatDirectories() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No data") {
		t.Error("Empty directories should show 'No data'")
	}
}
